// Package admin manages the dashboard identity: the admin_users record tied
// to a backend session, development sign-in, and role checks.
package admin

import (
	"time"

	"github.com/axelsjewelry/storefront/internal/role"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
	StatusPending Status = "pending"
)

// User is one admin_users record. AuthUserID is nil for development accounts
// that were never linked to a backend identity.
type User struct {
	ID         string     `json:"id"`
	AuthUserID *string    `json:"auth_user_id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Role       role.Role  `json:"role"`
	Status     Status     `json:"status"`
	LastLogin  *time.Time `json:"last_login"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

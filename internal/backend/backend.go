// Package backend defines the contract with the hosted auth/data service and
// provides its HTTP implementation. Auth state belongs to a per-client
// Client; record access goes through the shared RecordStore.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Identity is the authenticated end-user as the auth service reports it.
type Identity struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
}

// SignUpResult mirrors the raw sign-up response: sign-up never
// auto-authenticates, the identity is pending email confirmation.
type SignUpResult struct {
	Identity         *Identity
	ConfirmationSent bool
}

type AuthEventType string

const (
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is pushed to subscribers on session changes (sign-in, token
// refresh, external sign-out). Identity is nil for EventSignedOut.
type AuthEvent struct {
	Type     AuthEventType
	Identity *Identity
}

// SessionBackend is the session-management surface of the hosted backend.
// One instance owns one client session's tokens.
type SessionBackend interface {
	GetUser(ctx context.Context) (*Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)
	SignUp(ctx context.Context, email, password, redirectTo string) (*SignUpResult, error)
	SignOut(ctx context.Context) error
	ResendVerification(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	OAuthURL(provider, redirectTo string) string
	// OnAuthChange registers fn for session-change notifications and returns
	// an unsubscribe func. Callbacks run on the client's notifier goroutine.
	OnAuthChange(fn func(AuthEvent)) (unsubscribe func())
}

// AuthError is an opaque error value from the auth service, passed through to
// callers untranslated.
type AuthError struct {
	Code    string
	Message string
	Status  int
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
)

// ErrInvalidCredentials is returned for a wrong password or unknown account.
// The message deliberately does not distinguish the two cases.
var ErrInvalidCredentials = &AuthError{
	Code:    CodeInvalidCredentials,
	Message: "Invalid login credentials",
	Status:  400,
}

func IsInvalidCredentials(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Code == CodeInvalidCredentials
}

func IsEmailNotConfirmed(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Code == CodeEmailNotConfirmed
}

// Record is one row of a named collection, keyed by column name.
type Record map[string]any

// ErrNoRows is returned by SelectOne when no record matches.
var ErrNoRows = errors.New("backend: no rows")

// RecordStore is generic CRUD against the backend's named record
// collections. Implementations: the hosted REST store and the direct
// Postgres store.
type RecordStore interface {
	Select(ctx context.Context, table string, q Query) ([]Record, error)
	Insert(ctx context.Context, table string, values Record) (Record, error)
	Update(ctx context.Context, table string, q Query, values Record) ([]Record, error)
	Delete(ctx context.Context, table string, q Query) error
}

// SelectOne returns the single record matching q, or ErrNoRows.
func SelectOne(ctx context.Context, s RecordStore, table string, q Query) (Record, error) {
	rows, err := s.Select(ctx, table, q.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// Decode converts records (or slices of them) into typed structs via their
// JSON representation, so repositories share one set of column tags.
func Decode(src, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

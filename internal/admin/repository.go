package admin

import (
	"context"
	"time"

	"github.com/axelsjewelry/storefront/internal/backend"
	"github.com/axelsjewelry/storefront/internal/role"
)

const table = "admin_users"

// Repository reads and writes admin_users records. Sign-in only ever looks
// at active records.
type Repository struct {
	records backend.RecordStore
}

func NewRepository(records backend.RecordStore) *Repository {
	return &Repository{records: records}
}

func (r *Repository) FindActiveByEmail(ctx context.Context, email string) (*User, error) {
	return r.findActive(ctx, backend.NewQuery().Eq("email", email))
}

func (r *Repository) FindActiveByAuthUserID(ctx context.Context, authUserID string) (*User, error) {
	return r.findActive(ctx, backend.NewQuery().Eq("auth_user_id", authUserID))
}

func (r *Repository) findActive(ctx context.Context, q backend.Query) (*User, error) {
	rec, err := backend.SelectOne(ctx, r.records, table, q.Eq("status", string(StatusActive)))
	if err != nil {
		return nil, err
	}
	var u User
	if err := backend.Decode(rec, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

type CreateParams struct {
	AuthUserID *string
	Email      string
	Name       string
	Role       role.Role
}

// Create inserts a new active admin record.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*User, error) {
	values := backend.Record{
		"email":  p.Email,
		"name":   p.Name,
		"role":   string(p.Role),
		"status": string(StatusActive),
	}
	if p.AuthUserID != nil {
		values["auth_user_id"] = *p.AuthUserID
	}
	rec, err := r.records.Insert(ctx, table, values)
	if err != nil {
		return nil, err
	}
	var u User
	if err := backend.Decode(rec, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// LinkAuthUser backfills a missing backend identity link.
func (r *Repository) LinkAuthUser(ctx context.Context, id, authUserID string) error {
	_, err := r.records.Update(ctx, table,
		backend.NewQuery().Eq("id", id),
		backend.Record{"auth_user_id": authUserID})
	return err
}

// TouchLastLogin refreshes last_login and updated_at.
func (r *Repository) TouchLastLogin(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.records.Update(ctx, table,
		backend.NewQuery().Eq("id", id),
		backend.Record{"last_login": now, "updated_at": now})
	return err
}

// ListAll returns every admin record, newest first, for the dashboard's
// user management view.
func (r *Repository) ListAll(ctx context.Context) ([]User, error) {
	recs, err := r.records.Select(ctx, table, backend.NewQuery().OrderBy("created_at", true))
	if err != nil {
		return nil, err
	}
	var users []User
	if err := backend.Decode(recs, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetStatus updates an admin record's status (block, unblock, approve).
func (r *Repository) SetStatus(ctx context.Context, id string, status Status) error {
	_, err := r.records.Update(ctx, table,
		backend.NewQuery().Eq("id", id),
		backend.Record{"status": string(status), "updated_at": time.Now().UTC().Format(time.RFC3339)})
	return err
}

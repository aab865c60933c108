package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/axelsjewelry/storefront/internal/backend"
	"github.com/axelsjewelry/storefront/internal/role"
)

// DefaultRole is assigned when a backend identity signs in with no existing
// admin record. Auto-provisioning at Moderator is deliberate (see DESIGN.md):
// the record exists but holds the lowest dashboard tier.
const DefaultRole = role.Moderator

// DevCredential is one entry of the injectable development credential table,
// keyed by email. An empty table disables the development path.
type DevCredential struct {
	Password string
	Name     string
	Role     role.Role
}

// DefaultDevCredentials is the dashboard's development account table.
func DefaultDevCredentials() map[string]DevCredential {
	return map[string]DevCredential{
		"admin@axels.com":   {Password: "admin123", Name: "Super Admin", Role: role.SuperAdmin},
		"manager@axels.com": {Password: "manager123", Name: "Admin Manager", Role: role.Admin},
		"mod@axels.com":     {Password: "mod123", Name: "Moderator User", Role: role.Moderator},
	}
}

// Session is the admin identity store for one client session. Unlike the
// end-user session there is no separate dev-mode exit state: development
// accounts are persisted as ordinary admin records when the backend allows.
type Session struct {
	backend  backend.SessionBackend
	repo     *Repository
	devCreds map[string]DevCredential
	logger   *log.Logger

	mu        sync.Mutex
	user      *User
	loading   bool
	ephemeral bool
}

type Options struct {
	DevCredentials map[string]DevCredential
	Logger         *log.Logger
}

func NewSession(sb backend.SessionBackend, repo *Repository, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Session{
		backend:  sb,
		repo:     repo,
		devCreds: opts.DevCredentials,
		logger:   opts.Logger,
		loading:  true,
	}
}

func (s *Session) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// IsEphemeral reports whether the current admin user is a session-only
// synthetic record that never reached the backend.
func (s *Session) IsEphemeral() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ephemeral
}

// HasRole reports whether the signed-in admin satisfies required. False with
// no admin loaded.
func (s *Session) HasRole(required role.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return false
	}
	return role.HasPermission(s.user.Role, required)
}

// CheckAuthState silently resolves an existing backend session into an
// active admin record. Any failure leaves the session anonymous; nothing is
// surfaced to the caller.
func (s *Session) CheckAuthState(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	id, err := s.backend.GetUser(ctx)
	if err != nil || id == nil {
		if err != nil {
			s.logger.Printf("admin: get session: %v", err)
		}
		return
	}

	u, err := s.repo.FindActiveByAuthUserID(ctx, id.ID)
	if err != nil {
		if !errors.Is(err, backend.ErrNoRows) {
			s.logger.Printf("admin: resolve admin record: %v", err)
		}
		return
	}
	s.setUser(u, false)
}

// SignIn authenticates an admin. Development emails are checked against the
// credential table before any backend call; other emails go through backend
// password sign-in with find-or-provision of the admin record.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	if cred, ok := s.devCreds[email]; ok {
		if cred.Password != password {
			return backend.ErrInvalidCredentials
		}
		return s.signInDev(ctx, email, cred)
	}

	id, err := s.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}

	u, err := s.repo.FindActiveByEmail(ctx, email)
	switch {
	case errors.Is(err, backend.ErrNoRows):
		// First backend sign-in: provision an admin record at the default
		// role, linked to the new identity.
		u, err = s.repo.Create(ctx, CreateParams{
			AuthUserID: &id.ID,
			Email:      email,
			Name:       emailLocalPart(email),
			Role:       DefaultRole,
		})
		if err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
	case err != nil:
		return fmt.Errorf("fetch admin user: %w", err)
	default:
		if u.AuthUserID == nil {
			// Backfill is best-effort: a failure is logged, not fatal.
			if err := s.repo.LinkAuthUser(ctx, u.ID, id.ID); err != nil {
				s.logger.Printf("admin: backfill auth link for %s: %v", u.ID, err)
			} else {
				linked := id.ID
				u.AuthUserID = &linked
			}
		}
	}

	s.touchLastLogin(ctx, u)
	s.setUser(u, false)
	return nil
}

// signInDev resolves a development credential: reuse an existing active
// record, else create one without a backend identity link, else fall back to
// a fully in-memory record so login does not fail on a profile write.
func (s *Session) signInDev(ctx context.Context, email string, cred DevCredential) error {
	u, err := s.repo.FindActiveByEmail(ctx, email)
	switch {
	case errors.Is(err, backend.ErrNoRows):
		u, err = s.repo.Create(ctx, CreateParams{Email: email, Name: cred.Name, Role: cred.Role})
		if err != nil {
			s.logger.Printf("admin: create dev admin record: %v", err)
			now := time.Now().UTC()
			s.setUser(&User{
				ID:        fmt.Sprintf("dev-%s-%d", emailLocalPart(email), now.UnixMilli()),
				Email:     email,
				Name:      cred.Name,
				Role:      cred.Role,
				Status:    StatusActive,
				LastLogin: &now,
				CreatedAt: now,
				UpdatedAt: now,
			}, true)
			return nil
		}
	case err != nil:
		return fmt.Errorf("fetch admin user: %w", err)
	}

	s.touchLastLogin(ctx, u)
	s.setUser(u, false)
	return nil
}

// SignOut is best-effort against the backend; the in-memory admin user is
// cleared unconditionally. The admin record itself is never deleted.
func (s *Session) SignOut(ctx context.Context) {
	if err := s.backend.SignOut(ctx); err != nil {
		s.logger.Printf("admin: backend sign-out: %v", err)
	}
	s.mu.Lock()
	s.user = nil
	s.ephemeral = false
	s.mu.Unlock()
}

func (s *Session) touchLastLogin(ctx context.Context, u *User) {
	if err := s.repo.TouchLastLogin(ctx, u.ID); err != nil {
		s.logger.Printf("admin: touch last_login for %s: %v", u.ID, err)
	}
}

func (s *Session) setUser(u *User, ephemeral bool) {
	s.mu.Lock()
	s.user = u
	s.ephemeral = ephemeral
	s.loading = false
	s.mu.Unlock()
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

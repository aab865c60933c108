// Package auth manages the storefront end-user identity for one client
// session: current user, loading state, the development bypass mode, and the
// mirror of backend session-change events.
package auth

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/axelsjewelry/storefront/internal/backend"
	"github.com/axelsjewelry/storefront/internal/kvstore"
)

// BypassFlagKey is the durable key holding the development bypass flag.
const BypassFlagKey = "dev_auth_bypass"

type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
}

// DevCredential is the injectable development bypass account. A nil
// credential disables the bypass path entirely, which is how production
// configurations should run.
type DevCredential struct {
	Email    string
	Password string
	User     User
}

// DefaultDevCredential matches the storefront's fixed test account.
func DefaultDevCredential() *DevCredential {
	confirmed := time.Now().UTC()
	return &DevCredential{
		Email:    "test@axels.com",
		Password: "password123",
		User: User{
			ID:               "dev-user-123",
			Email:            "test@axels.com",
			EmailConfirmedAt: &confirmed,
		},
	}
}

// Session is the end-user auth store. It resolves loading -> authenticated
// or anonymous, mirrors backend session changes while not in dev mode, and
// owns the persisted bypass flag.
type Session struct {
	backend    backend.SessionBackend
	flags      kvstore.Store
	flagKey    string
	devCred    *DevCredential
	redirectTo string
	logger     *log.Logger

	mu      sync.Mutex
	user    *User
	loading bool
	devMode bool

	unsubOnce sync.Once
	unsub     func()
}

type Options struct {
	// FlagKey overrides the bypass flag key (several client sessions may
	// share one kvstore). Defaults to BypassFlagKey.
	FlagKey string
	// RedirectTo is the email-verification redirect target passed to the
	// backend on sign-up and resend.
	RedirectTo string
	// DevCredential enables the development bypass. Nil disables it.
	DevCredential *DevCredential
	Logger        *log.Logger
}

func NewSession(sb backend.SessionBackend, flags kvstore.Store, opts Options) *Session {
	if opts.FlagKey == "" {
		opts.FlagKey = BypassFlagKey
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	s := &Session{
		backend:    sb,
		flags:      flags,
		flagKey:    opts.FlagKey,
		devCred:    opts.DevCredential,
		redirectTo: opts.RedirectTo,
		logger:     opts.Logger,
		loading:    true,
	}
	// Established once; torn down via Close. Events are ignored entirely
	// while dev mode is active.
	s.unsub = sb.OnAuthChange(s.handleAuthEvent)
	return s
}

// Close tears down the backend subscription.
func (s *Session) Close() {
	s.unsubOnce.Do(func() {
		if s.unsub != nil {
			s.unsub()
		}
	})
}

func (s *Session) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) IsDevMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devMode
}

// CheckAuth resolves the session state. The persisted bypass flag
// short-circuits to the fixed development user without contacting the
// backend; otherwise the backend decides. Always terminates non-loading.
func (s *Session) CheckAuth(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if s.devCred != nil {
		flag, err := s.flags.Get(ctx, s.flagKey)
		if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
			s.logger.Printf("auth: read bypass flag: %v", err)
		}
		if flag == "true" {
			u := s.devCred.User
			s.mu.Lock()
			s.devMode = true
			s.user = &u
			s.mu.Unlock()
			return
		}
	}

	id, err := s.backend.GetUser(ctx)
	if err != nil || id == nil {
		if err != nil {
			s.logger.Printf("auth: check auth: %v", err)
		}
		s.setUser(nil)
		return
	}
	s.setUser(userFromIdentity(id))
}

// BypassAuth forces dev mode: fixed development user, persisted flag.
func (s *Session) BypassAuth(ctx context.Context) {
	if s.devCred == nil {
		return
	}
	u := s.devCred.User
	s.mu.Lock()
	s.devMode = true
	s.user = &u
	s.loading = false
	s.mu.Unlock()
	if err := s.flags.Set(ctx, s.flagKey, "true"); err != nil {
		s.logger.Printf("auth: persist bypass flag: %v", err)
	}
}

// SignIn authenticates with the dev credential (bypassing the backend) or
// delegates to backend password sign-in. Backend errors are returned
// untouched so callers see the service's own invalid-credentials value.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	if s.devCred != nil && email == s.devCred.Email && password == s.devCred.Password {
		s.BypassAuth(ctx)
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	id, err := s.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	s.setUser(userFromIdentity(id))
	return nil
}

// SignUp delegates to the backend with the email-verification redirect
// target. It does not auto-authenticate; the raw result passes through.
func (s *Session) SignUp(ctx context.Context, email, password string) (*backend.SignUpResult, error) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	return s.backend.SignUp(ctx, email, password, s.redirectTo)
}

// ResendVerification is a pass-through to the backend.
func (s *Session) ResendVerification(ctx context.Context, email string) error {
	return s.backend.ResendVerification(ctx, email, s.redirectTo)
}

// UpdatePassword changes the signed-in account's password. The dev user
// has no backend account, so dev mode makes this a no-op.
func (s *Session) UpdatePassword(ctx context.Context, newPassword string) error {
	s.mu.Lock()
	dev := s.devMode
	s.mu.Unlock()
	if dev {
		return nil
	}
	return s.backend.UpdatePassword(ctx, newPassword)
}

// SignOut leaves dev mode locally (no backend call) or signs the backend
// session out. The in-memory user is cleared unconditionally.
func (s *Session) SignOut(ctx context.Context) {
	s.mu.Lock()
	wasDev := s.devMode
	s.devMode = false
	s.mu.Unlock()

	if wasDev {
		if err := s.flags.Delete(ctx, s.flagKey); err != nil {
			s.logger.Printf("auth: clear bypass flag: %v", err)
		}
	} else {
		if err := s.backend.SignOut(ctx); err != nil {
			s.logger.Printf("auth: backend sign-out: %v", err)
		}
	}
	s.setUser(nil)
}

func (s *Session) handleAuthEvent(ev backend.AuthEvent) {
	s.mu.Lock()
	if s.devMode {
		s.mu.Unlock()
		return
	}
	if ev.Identity != nil {
		s.user = userFromIdentity(ev.Identity)
	} else {
		s.user = nil
	}
	s.loading = false
	s.mu.Unlock()
}

func (s *Session) setUser(u *User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func userFromIdentity(id *backend.Identity) *User {
	return &User{ID: id.ID, Email: id.Email, EmailConfirmedAt: id.EmailConfirmedAt}
}

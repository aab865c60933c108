package httpapi

import (
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/axelsjewelry/storefront/internal/admin"
	"github.com/axelsjewelry/storefront/internal/auth"
	"github.com/axelsjewelry/storefront/internal/backend"
	"github.com/axelsjewelry/storefront/internal/cart"
	"github.com/axelsjewelry/storefront/internal/kvstore"
)

const SessionCookie = "storefront_session"

// BackendFactory creates a fresh auth backend per client session. Each
// browser gets its own token state.
type BackendFactory func() backend.SessionBackend

// ClientSession bundles the per-browser state: storefront auth, admin
// auth and the shopping cart.
type ClientSession struct {
	ID    string
	Auth  *auth.Session
	Admin *admin.Session
	Cart  *cart.Store
}

// SessionManager hands out client sessions keyed by a browser cookie.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*ClientSession

	newBackend BackendFactory
	records    backend.RecordStore
	kv         kvstore.Store
	devLogins  bool
	redirectTo string
	logger     *log.Logger
}

type SessionManagerOptions struct {
	// DevLogins enables the development credential shortcuts. Keep it
	// off outside local environments.
	DevLogins  bool
	RedirectTo string
	Logger     *log.Logger
}

func NewSessionManager(newBackend BackendFactory, records backend.RecordStore, kv kvstore.Store, opts SessionManagerOptions) *SessionManager {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[sessions] ", log.LstdFlags)
	}
	return &SessionManager{
		sessions:   map[string]*ClientSession{},
		newBackend: newBackend,
		records:    records,
		kv:         kv,
		devLogins:  opts.DevLogins,
		redirectTo: opts.RedirectTo,
		logger:     logger,
	}
}

// Session returns the client session for the request, creating one and
// setting the cookie when the browser has none yet.
func (m *SessionManager) Session(w http.ResponseWriter, r *http.Request) *ClientSession {
	if c, err := r.Cookie(SessionCookie); err == nil {
		m.mu.Lock()
		if cs, ok := m.sessions[c.Value]; ok {
			m.mu.Unlock()
			return cs
		}
		m.mu.Unlock()
		// Stale cookie from a restart: rebuild state under the same id
		// so persisted carts and bypass flags survive.
		return m.create(w, c.Value)
	}
	return m.create(w, uuid.NewString())
}

func (m *SessionManager) create(w http.ResponseWriter, id string) *ClientSession {
	var devCred *auth.DevCredential
	devAdmins := map[string]admin.DevCredential{}
	if m.devLogins {
		devCred = auth.DefaultDevCredential()
		devAdmins = admin.DefaultDevCredentials()
	}

	sb := m.newBackend()
	cs := &ClientSession{
		ID: id,
		Auth: auth.NewSession(sb, m.kv, auth.Options{
			FlagKey:       auth.BypassFlagKey + ":" + id,
			RedirectTo:    m.redirectTo,
			DevCredential: devCred,
			Logger:        m.logger,
		}),
		Admin: admin.NewSession(sb, admin.NewRepository(m.records), admin.Options{
			DevCredentials: devAdmins,
			Logger:         m.logger,
		}),
		Cart: cart.NewStore(m.kv, "cart:"+id, m.logger),
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		cs.Auth.Close()
		return existing
	}
	m.sessions[id] = cs
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return cs
}

// Close tears down every live session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cs := range m.sessions {
		cs.Auth.Close()
		delete(m.sessions, id)
	}
}

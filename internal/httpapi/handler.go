// Package httpapi exposes the storefront over HTTP. Every browser is
// backed by a server-side client session carrying its auth, admin auth
// and cart state.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/axelsjewelry/storefront/internal/activity"
	"github.com/axelsjewelry/storefront/internal/admin"
	"github.com/axelsjewelry/storefront/internal/catalog"
	"github.com/axelsjewelry/storefront/internal/orders"
	"github.com/axelsjewelry/storefront/internal/wishlist"
)

type Handler struct {
	sessions *SessionManager
	catalog  *catalog.Service
	orders   *orders.Service
	wishlist *wishlist.Service
	admins   *admin.Repository
	activity *activity.Recorder
	logger   *log.Logger
}

func NewHandler(sessions *SessionManager, cat *catalog.Service, ord *orders.Service, wl *wishlist.Service, admins *admin.Repository, rec *activity.Recorder, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(log.Writer(), "[httpapi] ", log.LstdFlags)
	}
	return &Handler{
		sessions: sessions,
		catalog:  cat,
		orders:   ord,
		wishlist: wl,
		admins:   admins,
		activity: rec,
		logger:   logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "storefront"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

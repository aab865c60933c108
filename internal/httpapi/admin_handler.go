package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/axelsjewelry/storefront/internal/admin"
	"github.com/axelsjewelry/storefront/internal/role"
)

func (h *Handler) AdminMe(w http.ResponseWriter, r *http.Request) {
	cs := h.sessions.Session(w, r)
	if cs.Admin.Loading() {
		cs.Admin.CheckAuthState(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      cs.Admin.User(),
		"ephemeral": cs.Admin.IsEphemeral(),
	})
}

func (h *Handler) AdminSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cs := h.sessions.Session(w, r)
	if err := cs.Admin.SignIn(r.Context(), req.Email, req.Password); err != nil {
		writeAuthError(w, err)
		return
	}
	u := cs.Admin.User()
	h.activity.Record(r.Context(), u.ID, u.Email, "admin_signin", "admin_user", u.ID, nil)
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handler) AdminSignOut(w http.ResponseWriter, r *http.Request) {
	cs := h.sessions.Session(w, r)
	cs.Admin.SignOut(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"signed_out": true})
}

// RequireRole gates a route subtree behind an admin role. A cold session
// is resolved against the backend before the decision falls.
func (h *Handler) RequireRole(required role.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cs := h.sessions.Session(w, r)
			if cs.Admin.Loading() {
				cs.Admin.CheckAuthState(r.Context())
			}
			if cs.Admin.User() == nil {
				writeError(w, http.StatusUnauthorized, "admin authentication required")
				return
			}
			if !cs.Admin.HasRole(required) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admins.ListAll(r.Context())
	if err != nil {
		h.logger.Printf("list admin users: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) AdminSetUserStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status admin.Status `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	switch req.Status {
	case admin.StatusActive, admin.StatusBlocked, admin.StatusPending:
	default:
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.admins.SetStatus(r.Context(), id, req.Status); err != nil {
		h.logger.Printf("set admin status %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	cs := h.sessions.Session(w, r)
	if u := cs.Admin.User(); u != nil {
		h.activity.Record(r.Context(), u.ID, u.Email, "admin_status_changed", "admin_user", id,
			map[string]any{"status": string(req.Status)})
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *Handler) AdminActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := h.activity.Recent(r.Context(), 100)
	if err != nil {
		h.logger.Printf("list activity: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

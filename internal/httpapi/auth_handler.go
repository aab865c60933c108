package httpapi

import (
	"errors"
	"net/http"

	"github.com/axelsjewelry/storefront/internal/backend"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) AuthMe(w http.ResponseWriter, r *http.Request) {
	cs := h.sessions.Session(w, r)
	cs.Auth.CheckAuth(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":     cs.Auth.User(),
		"dev_mode": cs.Auth.IsDevMode(),
	})
}

func (h *Handler) AuthSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cs := h.sessions.Session(w, r)
	if err := cs.Auth.SignIn(r.Context(), req.Email, req.Password); err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": cs.Auth.User()})
}

func (h *Handler) AuthSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cs := h.sessions.Session(w, r)
	result, err := cs.Auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) AuthResend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	cs := h.sessions.Session(w, r)
	if err := cs.Auth.ResendVerification(r.Context(), req.Email); err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

func (h *Handler) AuthUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}
	cs := h.sessions.Session(w, r)
	if cs.Auth.User() == nil {
		writeError(w, http.StatusUnauthorized, "sign in required")
		return
	}
	if err := cs.Auth.UpdatePassword(r.Context(), req.Password); err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *Handler) AuthSignOut(w http.ResponseWriter, r *http.Request) {
	cs := h.sessions.Session(w, r)
	cs.Auth.SignOut(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"signed_out": true})
}

// writeAuthError keeps the backend's error shape: known auth failures map
// to their own status, everything else is a 502 to the caller.
func writeAuthError(w http.ResponseWriter, err error) {
	var authErr *backend.AuthError
	if errors.As(err, &authErr) {
		status := authErr.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{
			"error":      authErr.Message,
			"error_code": authErr.Code,
		})
		return
	}
	writeError(w, http.StatusBadGateway, "authentication backend unavailable")
}

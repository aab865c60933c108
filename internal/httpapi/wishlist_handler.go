package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/axelsjewelry/storefront/internal/auth"
)

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) *auth.User {
	cs := h.sessions.Session(w, r)
	user := cs.Auth.User()
	if user == nil {
		writeError(w, http.StatusUnauthorized, "sign in required")
	}
	return user
}

func (h *Handler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	entries, err := h.wishlist.List(r.Context(), user.ID)
	if err != nil {
		h.logger.Printf("list wishlist for %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	entry, err := h.wishlist.Add(r.Context(), user.ID, chi.URLParam(r, "productID"))
	if err != nil {
		h.logger.Printf("wishlist add for %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	if err := h.wishlist.Remove(r.Context(), user.ID, chi.URLParam(r, "productID")); err != nil {
		h.logger.Printf("wishlist remove for %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

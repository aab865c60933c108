package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/axelsjewelry/storefront/internal/cart"
	"github.com/axelsjewelry/storefront/internal/orders"
)

type cartResponse struct {
	Items      []cart.Item `json:"items"`
	TotalItems int         `json:"total_items"`
	TotalPrice float64     `json:"total_price"`
}

func cartView(c *cart.Store) cartResponse {
	return cartResponse{
		Items:      c.Items(),
		TotalItems: c.TotalItems(),
		TotalPrice: c.TotalPrice(),
	}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cs := h.sessions.Session(w, r)
	writeJSON(w, http.StatusOK, cartView(cs.Cart))
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var item cart.Item
	if !decodeBody(w, r, &item) {
		return
	}
	if item.ID == "" || item.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "item id and a positive quantity are required")
		return
	}
	cs := h.sessions.Session(w, r)
	cs.Cart.Add(item)
	writeJSON(w, http.StatusOK, cartView(cs.Cart))
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	cs := h.sessions.Session(w, r)
	cs.Cart.UpdateQuantity(chi.URLParam(r, "id"), req.Quantity)
	writeJSON(w, http.StatusOK, cartView(cs.Cart))
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cs := h.sessions.Session(w, r)
	cs.Cart.Remove(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, cartView(cs.Cart))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cs := h.sessions.Session(w, r)
	cs.Cart.Clear()
	writeJSON(w, http.StatusOK, cartView(cs.Cart))
}

// Checkout places an order from the session cart. The cart empties only
// after the order is safely stored.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	cs := h.sessions.Session(w, r)
	user := cs.Auth.User()
	if user == nil {
		writeError(w, http.StatusUnauthorized, "sign in to check out")
		return
	}

	order, err := h.orders.Checkout(r.Context(), user.ID, cs.Cart.Items())
	if err != nil {
		if errors.Is(err, orders.ErrEmptyCart) {
			writeError(w, http.StatusBadRequest, "cart is empty")
			return
		}
		h.logger.Printf("checkout for %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	cs.Cart.Clear()
	writeJSON(w, http.StatusCreated, order)
}

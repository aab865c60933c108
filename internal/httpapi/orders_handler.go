package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/axelsjewelry/storefront/internal/orders"
)

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	cs := h.sessions.Session(w, r)
	user := cs.Auth.User()
	if user == nil {
		writeError(w, http.StatusUnauthorized, "sign in to view orders")
		return
	}
	list, err := h.orders.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Printf("list orders for %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetMyOrder(w http.ResponseWriter, r *http.Request) {
	cs := h.sessions.Session(w, r)
	user := cs.Auth.User()
	if user == nil {
		writeError(w, http.StatusUnauthorized, "sign in to view orders")
		return
	}
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Printf("get order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Customers only ever see their own orders.
	if order.UserID != user.ID {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	status := orders.Status(r.URL.Query().Get("status"))
	list, err := h.orders.ListAll(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Printf("get order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status orders.Status `json:"status"`
		Note   string        `json:"note"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	cs := h.sessions.Session(w, r)
	actor := ""
	if u := cs.Admin.User(); u != nil {
		actor = u.Email
	}

	id := chi.URLParam(r, "id")
	order, err := h.orders.UpdateStatus(r.Context(), id, req.Status, req.Note, actor)
	if err != nil {
		var illegal orders.ErrIllegalTransition
		switch {
		case errors.Is(err, orders.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.As(err, &illegal):
			writeError(w, http.StatusConflict, illegal.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	h.recordAdminAction(w, r, "order_status_changed", "order", id,
		map[string]any{"status": string(req.Status)})
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) AdminSetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentStatus orders.PaymentStatus `json:"payment_status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	order, err := h.orders.SetPaymentStatus(r.Context(), id, req.PaymentStatus)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.recordAdminAction(w, r, "payment_status_changed", "order", id,
		map[string]any{"payment_status": string(req.PaymentStatus)})
	writeJSON(w, http.StatusOK, order)
}

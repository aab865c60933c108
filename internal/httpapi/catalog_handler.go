package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/axelsjewelry/storefront/internal/catalog"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := catalog.ListParams{
		CategoryID:   q.Get("category"),
		MetalType:    q.Get("metal_type"),
		MetalColorID: q.Get("metal_color"),
		OnlyInStock:  q.Get("in_stock") == "true",
		PriceAsc:     q.Get("sort") == "price_asc",
		PriceDesc:    q.Get("sort") == "price_desc",
		Limit:        intParam(q.Get("limit")),
		Offset:       intParam(q.Get("offset")),
	}

	products, err := h.catalog.ListProducts(r.Context(), params)
	if err != nil {
		h.logger.Printf("list products: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Printf("get product: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.logger.Printf("list categories: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *Handler) ListMetalColors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.catalog.ListMetalColors(r.Context())
	if err != nil {
		h.logger.Printf("list metal colors: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, colors)
}

type productRequest struct {
	ProductID         string   `json:"product_id"`
	ProductName       string   `json:"product_name"`
	ProductLink       string   `json:"product_link"`
	MetalType         string   `json:"metal_type"`
	CategoryID        string   `json:"category_id"`
	DiamondColor      string   `json:"diamond_color"`
	DiamondPieceCount int      `json:"diamond_piece_count"`
	DiamondWeight     float64  `json:"diamond_weight"`
	GrossWeight       float64  `json:"gross_weight"`
	NetWeight         float64  `json:"net_weight"`
	MetalColorID      string   `json:"metal_color_id"`
	Description       string   `json:"description"`
	Price             float64  `json:"price"`
	Availability      bool     `json:"availability"`
	ImageURLs         []string `json:"image_urls"`
}

func (req productRequest) input() catalog.ProductInput {
	return catalog.ProductInput{
		ProductID:         req.ProductID,
		ProductName:       req.ProductName,
		ProductLink:       req.ProductLink,
		MetalType:         req.MetalType,
		CategoryID:        req.CategoryID,
		DiamondColor:      req.DiamondColor,
		DiamondPieceCount: req.DiamondPieceCount,
		DiamondWeight:     req.DiamondWeight,
		GrossWeight:       req.GrossWeight,
		NetWeight:         req.NetWeight,
		MetalColorID:      req.MetalColorID,
		Description:       req.Description,
		Price:             req.Price,
		Availability:      req.Availability,
		ImageURLs:         req.ImageURLs,
	}
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.catalog.CreateProduct(r.Context(), req.input())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.recordAdminAction(w, r, "product_created", "product", p.ID, nil)
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	p, err := h.catalog.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.recordAdminAction(w, r, "product_updated", "product", id, nil)
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		h.logger.Printf("delete product %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.recordAdminAction(w, r, "product_deleted", "product", id, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	c, err := h.catalog.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.logger.Printf("create category: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) CreateMetalColor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	c, err := h.catalog.CreateMetalColor(r.Context(), req.Name)
	if err != nil {
		h.logger.Printf("create metal color: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) recordAdminAction(w http.ResponseWriter, r *http.Request, action, entityType, entityID string, details map[string]any) {
	cs := h.sessions.Session(w, r)
	if u := cs.Admin.User(); u != nil {
		h.activity.Record(r.Context(), u.ID, u.Email, action, entityType, entityID, details)
	}
}

func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

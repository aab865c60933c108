// Package catalog exposes the product catalog: products with their images,
// categories and metal colors.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/axelsjewelry/storefront/internal/backend"
)

const (
	productsTable    = "products"
	imagesTable      = "product_images"
	categoriesTable  = "categories"
	metalColorsTable = "metal_colors"
)

var ErrNotFound = errors.New("catalog: not found")

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type MetalColor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Image struct {
	ID           string `json:"id"`
	ProductID    string `json:"product_id"`
	ImageURL     string `json:"image_url"`
	DisplayOrder int    `json:"display_order"`
}

type Product struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"product_id"`
	ProductName       string    `json:"product_name"`
	ProductLink       string    `json:"product_link,omitempty"`
	MetalType         string    `json:"metal_type"`
	CategoryID        string    `json:"category_id,omitempty"`
	DiamondColor      string    `json:"diamond_color,omitempty"`
	DiamondPieceCount int       `json:"diamond_piece_count,omitempty"`
	DiamondWeight     float64   `json:"diamond_weight,omitempty"`
	GrossWeight       float64   `json:"gross_weight"`
	NetWeight         float64   `json:"net_weight"`
	MetalColorID      string    `json:"metal_color_id,omitempty"`
	Description       string    `json:"description,omitempty"`
	Price             float64   `json:"price"`
	Availability      bool      `json:"availability"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Images []Image `json:"images,omitempty"`
}

// ListParams narrows and orders a product listing. The zero value lists
// every product, newest first.
type ListParams struct {
	CategoryID   string
	MetalType    string
	MetalColorID string
	OnlyInStock  bool
	PriceAsc     bool
	PriceDesc    bool
	Limit        int
	Offset       int
}

type Service struct {
	records backend.RecordStore
}

func NewService(records backend.RecordStore) *Service {
	return &Service{records: records}
}

func (s *Service) ListProducts(ctx context.Context, p ListParams) ([]Product, error) {
	q := backend.Query{}
	if p.CategoryID != "" {
		q = q.Eq("category_id", p.CategoryID)
	}
	if p.MetalType != "" {
		q = q.Eq("metal_type", p.MetalType)
	}
	if p.MetalColorID != "" {
		q = q.Eq("metal_color_id", p.MetalColorID)
	}
	if p.OnlyInStock {
		q = q.Eq("availability", true)
	}
	switch {
	case p.PriceAsc:
		q = q.OrderBy("price", false)
	case p.PriceDesc:
		q = q.OrderBy("price", true)
	default:
		q = q.OrderBy("created_at", true)
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}

	rows, err := s.records.Select(ctx, productsTable, q)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products, err := decodeProducts(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachImages(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct loads one product by primary key, images included.
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	row, err := backend.SelectOne(ctx, s.records, productsTable, backend.Query{}.Eq("id", id))
	if errors.Is(err, backend.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	var p Product
	if err := backend.Decode(row, &p); err != nil {
		return nil, err
	}
	products := []Product{p}
	if err := s.attachImages(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.records.Select(ctx, categoriesTable, backend.Query{}.OrderBy("name", false))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]Category, 0, len(rows))
	for _, row := range rows {
		var c Category
		if err := backend.Decode(row, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) ListMetalColors(ctx context.Context) ([]MetalColor, error) {
	rows, err := s.records.Select(ctx, metalColorsTable, backend.Query{}.OrderBy("name", false))
	if err != nil {
		return nil, fmt.Errorf("list metal colors: %w", err)
	}
	out := make([]MetalColor, 0, len(rows))
	for _, row := range rows {
		var c MetalColor
		if err := backend.Decode(row, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ProductInput carries the writable product fields for create and update.
type ProductInput struct {
	ProductID         string
	ProductName       string
	ProductLink       string
	MetalType         string
	CategoryID        string
	DiamondColor      string
	DiamondPieceCount int
	DiamondWeight     float64
	GrossWeight       float64
	NetWeight         float64
	MetalColorID      string
	Description       string
	Price             float64
	Availability      bool
	ImageURLs         []string
}

func (in ProductInput) record() backend.Record {
	rec := backend.Record{
		"product_id":   in.ProductID,
		"product_name": in.ProductName,
		"metal_type":   in.MetalType,
		"gross_weight": in.GrossWeight,
		"net_weight":   in.NetWeight,
		"price":        in.Price,
		"availability": in.Availability,
	}
	if in.ProductLink != "" {
		rec["product_link"] = in.ProductLink
	}
	if in.CategoryID != "" {
		rec["category_id"] = in.CategoryID
	}
	if in.DiamondColor != "" {
		rec["diamond_color"] = in.DiamondColor
	}
	if in.DiamondPieceCount > 0 {
		rec["diamond_piece_count"] = in.DiamondPieceCount
	}
	if in.DiamondWeight > 0 {
		rec["diamond_weight"] = in.DiamondWeight
	}
	if in.MetalColorID != "" {
		rec["metal_color_id"] = in.MetalColorID
	}
	if in.Description != "" {
		rec["description"] = in.Description
	}
	return rec
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if in.ProductID == "" || in.ProductName == "" || in.MetalType == "" {
		return nil, errors.New("catalog: product_id, product_name and metal_type are required")
	}
	row, err := s.records.Insert(ctx, productsTable, in.record())
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	var p Product
	if err := backend.Decode(row, &p); err != nil {
		return nil, err
	}
	if err := s.replaceImages(ctx, p.ID, in.ImageURLs); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, p.ID)
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	values := in.record()
	values["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	rows, err := s.records.Update(ctx, productsTable, backend.Query{}.Eq("id", id), values)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	if in.ImageURLs != nil {
		if err := s.replaceImages(ctx, id, in.ImageURLs); err != nil {
			return nil, err
		}
	}
	return s.GetProduct(ctx, id)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.records.Delete(ctx, imagesTable, backend.Query{}.Eq("product_id", id)); err != nil {
		return fmt.Errorf("delete product images: %w", err)
	}
	if err := s.records.Delete(ctx, productsTable, backend.Query{}.Eq("id", id)); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*Category, error) {
	row, err := s.records.Insert(ctx, categoriesTable, backend.Record{"name": name})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	var c Category
	if err := backend.Decode(row, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) CreateMetalColor(ctx context.Context, name string) (*MetalColor, error) {
	row, err := s.records.Insert(ctx, metalColorsTable, backend.Record{"name": name})
	if err != nil {
		return nil, fmt.Errorf("create metal color: %w", err)
	}
	var c MetalColor
	if err := backend.Decode(row, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// replaceImages swaps the full image set for a product, keeping the given
// URL order as the display order.
func (s *Service) replaceImages(ctx context.Context, productID string, urls []string) error {
	if urls == nil {
		return nil
	}
	if err := s.records.Delete(ctx, imagesTable, backend.Query{}.Eq("product_id", productID)); err != nil {
		return fmt.Errorf("replace images: %w", err)
	}
	for i, url := range urls {
		_, err := s.records.Insert(ctx, imagesTable, backend.Record{
			"product_id":    productID,
			"image_url":     url,
			"display_order": i,
		})
		if err != nil {
			return fmt.Errorf("replace images: %w", err)
		}
	}
	return nil
}

// attachImages loads the images for every product in one query.
func (s *Service) attachImages(ctx context.Context, products []Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	byID := make(map[string]*Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		byID[products[i].ID] = &products[i]
	}
	q := backend.Query{}.In("product_id", ids).OrderBy("display_order", false)
	rows, err := s.records.Select(ctx, imagesTable, q)
	if err != nil {
		return fmt.Errorf("load product images: %w", err)
	}
	for _, row := range rows {
		var img Image
		if err := backend.Decode(row, &img); err != nil {
			return err
		}
		if p, ok := byID[img.ProductID]; ok {
			p.Images = append(p.Images, img)
		}
	}
	return nil
}

func decodeProducts(rows []backend.Record) ([]Product, error) {
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		var p Product
		if err := backend.Decode(row, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

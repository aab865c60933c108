package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/axelsjewelry/storefront/internal/role"
)

func NewRouter(h *Handler, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/me", h.AuthMe)
			r.Post("/signin", h.AuthSignIn)
			r.Post("/signup", h.AuthSignUp)
			r.Post("/signout", h.AuthSignOut)
			r.Post("/resend", h.AuthResend)
			r.Post("/password", h.AuthUpdatePassword)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{id}", h.GetProduct)
		})
		r.Get("/categories", h.ListCategories)
		r.Get("/metal-colors", h.ListMetalColors)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Patch("/items/{id}", h.UpdateCartItem)
			r.Delete("/items/{id}", h.RemoveCartItem)
			r.Post("/checkout", h.Checkout)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListMyOrders)
			r.Get("/{id}", h.GetMyOrder)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.ListWishlist)
			r.Post("/{productID}", h.AddToWishlist)
			r.Delete("/{productID}", h.RemoveFromWishlist)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/auth", func(r chi.Router) {
				r.Get("/me", h.AdminMe)
				r.Post("/signin", h.AdminSignIn)
				r.Post("/signout", h.AdminSignOut)
			})

			// Dashboard reads need Moderator or better.
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(role.Moderator))
				r.Get("/orders", h.AdminListOrders)
				r.Get("/orders/{id}", h.AdminGetOrder)
				r.Get("/activity", h.AdminActivity)
			})

			// Mutations are Admin territory.
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(role.Admin))
				r.Patch("/orders/{id}/status", h.AdminUpdateOrderStatus)
				r.Patch("/orders/{id}/payment", h.AdminSetPaymentStatus)
				r.Post("/products", h.CreateProduct)
				r.Put("/products/{id}", h.UpdateProduct)
				r.Delete("/products/{id}", h.DeleteProduct)
				r.Post("/categories", h.CreateCategory)
				r.Post("/metal-colors", h.CreateMetalColor)
			})

			// User management stays with SuperAdmin.
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(role.SuperAdmin))
				r.Get("/users", h.AdminListUsers)
				r.Patch("/users/{id}/status", h.AdminSetUserStatus)
			})
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/auth"
	"github.com/fjod/hebec-shop/internal/cart"
	"github.com/fjod/hebec-shop/internal/checkout"
	"github.com/fjod/hebec-shop/internal/metrics"
)

// Remote is everything the storefront asks of the Hebec API.
type Remote interface {
	Catalog
	Accounts
	AddressBook
	AdminDirectory
}

type Dependencies struct {
	Log                *zap.Logger
	Metrics            *metrics.Collector
	Sessions           *auth.Sessions
	Carts              *cart.Service
	Checkouts          *checkout.Service
	Remote             Remote
	LoginLimiter       *RateLimiter
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	SecureCookies      bool
}

func NewRouter(d Dependencies) chi.Router {
	cartHandler := NewCartHandler(d.Carts, d.Remote, d.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(d.Checkouts, d.RequestTimeout)
	catalogHandler := NewCatalogHandler(d.Remote, d.RequestTimeout)
	authHandler := NewAuthHandler(d.Remote, d.Sessions, d.RequestTimeout)
	addressHandler := NewAddressHandler(d.Remote, d.RequestTimeout)
	adminHandler := NewAdminHandler(d.Remote, d.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(middleware.Compress(5))
	if d.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(d.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(d.Sessions.Middleware(d.SecureCookies))

		r.Route("/auth", func(r chi.Router) {
			if d.LoginLimiter != nil {
				r.With(d.LoginLimiter.Middleware).Post("/login", authHandler.Login)
			} else {
				r.Post("/login", authHandler.Login)
			}
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{product_id}", catalogHandler.GetProduct)
			r.Get("/categories", catalogHandler.ListCategories)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{item_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{item_id}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.Begin)
			r.Get("/", checkoutHandler.Get)
			r.Delete("/", checkoutHandler.Cancel)
			r.Post("/next", checkoutHandler.Next)
			r.Post("/back", checkoutHandler.Back)
			r.Post("/confirm", checkoutHandler.Confirm)
		})

		r.Route("/address", func(r chi.Router) {
			r.Get("/provinces", addressHandler.Provinces)
			r.Get("/provinces/{code}/districts", addressHandler.Districts)
			r.Get("/districts/{code}/wards", addressHandler.Wards)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireSignIn)
			r.Get("/customers", adminHandler.Customers)
			r.Get("/orders", adminHandler.Orders)
			r.Get("/products", adminHandler.Products)
			r.Get("/categories", adminHandler.Categories)
		})
	})

	return r
}

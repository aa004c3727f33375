package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/service"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/health"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/middleware"
)

// RouterConfig carries the dependencies of NewRouter.
type RouterConfig struct {
	ServiceName string
	Categories  *service.CategoryService
	Products    *service.ProductService
	Reviews     *service.ReviewService
	Tokens      middleware.TokenValidator
	Health      *health.Handler
	Metrics     *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	CORS        middleware.CORSConfig
	CacheMaxAge int
	Logger      *slog.Logger
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	logger := cfg.Logger

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Handler)
	}

	// Health check endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.LivenessHandler())
		r.Get("/health/ready", cfg.Health.ReadinessHandler())
	}
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	publicGet := middleware.CacheControl(cfg.CacheMaxAge)
	admin := middleware.RequireAdmin()
	authenticated := middleware.Auth(cfg.Tokens)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.OptionalAuth(cfg.Tokens))
		r.Use(middleware.RequestLogger(logger))

		// Category API endpoints
		categoryHandler := NewCategoryHandler(cfg.Categories, logger)

		r.Route("/categories", func(r chi.Router) {
			r.With(publicGet).Get("/", categoryHandler.ListCategories)
			r.With(publicGet).Get("/{slug}", categoryHandler.GetCategory)

			r.Group(func(r chi.Router) {
				r.Use(admin)

				r.Post("/", categoryHandler.CreateCategory)
				r.Put("/{slug}", categoryHandler.UpdateCategory)
				r.Patch("/{slug}", categoryHandler.UpdateCategory)
				r.Delete("/{slug}", categoryHandler.DeleteCategory)
			})
		})

		// Product API endpoints
		productHandler := NewProductHandler(cfg.Products, logger)
		reviewHandler := NewReviewHandler(cfg.Reviews, logger)

		r.Route("/products", func(r chi.Router) {
			r.With(publicGet).Get("/", productHandler.ListProducts)
			r.With(publicGet).Get("/featured", productHandler.FeaturedProducts)
			r.With(publicGet).Get("/on-sale", productHandler.OnSaleProducts)
			r.With(publicGet).Get("/{slug}", productHandler.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(admin)

				r.Post("/", productHandler.CreateProduct)
				r.Put("/{slug}", productHandler.UpdateProduct)
				r.Patch("/{slug}", productHandler.UpdateProduct)
				r.Delete("/{slug}", productHandler.DeleteProduct)
				r.Post("/{slug}/images", productHandler.AddImage)
				r.Delete("/{slug}/images/{imageID}", productHandler.DeleteImage)
			})

			// Review API endpoints (nested under products)
			r.Route("/{slug}/reviews", func(r chi.Router) {
				r.With(publicGet).Get("/", reviewHandler.ListReviews)

				r.Group(func(r chi.Router) {
					r.Use(authenticated)

					r.Post("/", reviewHandler.CreateReview)
					r.Put("/{id}", reviewHandler.UpdateReview)
					r.Patch("/{id}", reviewHandler.UpdateReview)
					r.Delete("/{id}", reviewHandler.DeleteReview)
				})

				r.Group(func(r chi.Router) {
					r.Use(admin)

					r.Post("/{id}/approve", reviewHandler.ApproveReview)
					r.Post("/{id}/unapprove", reviewHandler.UnapproveReview)
				})
			})
		})
	})

	return r
}

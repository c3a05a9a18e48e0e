package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shopeazy-backend/api/controllers"
	"github.com/angelmondragon/shopeazy-backend/api/middleware"
	"github.com/angelmondragon/shopeazy-backend/internal/cart"
	"github.com/angelmondragon/shopeazy-backend/internal/orders"
	"github.com/angelmondragon/shopeazy-backend/internal/products"
	"github.com/angelmondragon/shopeazy-backend/internal/sellers"
	"github.com/angelmondragon/shopeazy-backend/internal/users"
	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type sequenceResetter interface {
	Reset(ctx context.Context, ns enums.SequenceNamespace) error
}

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        pinger
	Redis     pinger
	Gatherer  prometheus.Gatherer
	Users     users.Service
	Sellers   sellers.Service
	Products  products.Service
	Cart      cart.Service
	Orders    orders.Service
	Sequences sequenceResetter
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
		middleware.Logging(logg),
	)

	checks := map[string]controllers.ReadinessCheck{}
	if deps.DB != nil {
		checks["database"] = deps.DB.Ping
	}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis.Ping
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", controllers.RegisterUser(deps.Users, logg))
		r.Post("/auth/login", controllers.Login(deps.Users, logg))

		r.Get("/products/{productId}", controllers.GetProduct(deps.Products, logg))
		r.Get("/products/{productId}/availability", controllers.ProductAvailability(deps.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Post("/sellers", controllers.RegisterSeller(deps.Sellers, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleSeller, enums.UserRoleAdmin))
				r.Post("/products", controllers.CreateProduct(deps.Products, logg))
				r.Patch("/products/{productId}/status", controllers.UpdateProductStatus(deps.Products, logg))
				r.Put("/products/{productId}/stock", controllers.SetProductStock(deps.Products, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(deps.Cart, logg))
				r.Delete("/", controllers.CartClear(deps.Cart, logg))
				r.Put("/items", controllers.CartPutItem(deps.Cart, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.PlaceOrder(deps.Orders, logg))
				r.Get("/", controllers.ListOrders(deps.Orders, logg))
				r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.CancelOrder(deps.Orders, logg))
				r.Patch("/{orderId}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
				r.Post("/sequences/{namespace}/reset", controllers.AdminResetSequence(deps.Sequences, logg))
			})
		})
	})

	return r
}

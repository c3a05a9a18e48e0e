// Package bootstrap assembles the domain services shared by the api and cron binaries.
package bootstrap

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/shopeazy-backend/internal/cart"
	"github.com/angelmondragon/shopeazy-backend/internal/inventory"
	"github.com/angelmondragon/shopeazy-backend/internal/orders"
	"github.com/angelmondragon/shopeazy-backend/internal/products"
	"github.com/angelmondragon/shopeazy-backend/internal/reservation"
	"github.com/angelmondragon/shopeazy-backend/internal/sellers"
	"github.com/angelmondragon/shopeazy-backend/internal/sequence"
	"github.com/angelmondragon/shopeazy-backend/internal/users"
	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/db"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
	"github.com/angelmondragon/shopeazy-backend/pkg/metrics"
	"github.com/angelmondragon/shopeazy-backend/pkg/outbox"
	pkgredis "github.com/angelmondragon/shopeazy-backend/pkg/redis"
)

// Services is the fully wired domain layer.
type Services struct {
	Ledger       *inventory.Ledger
	Issuer       sequence.Issuer
	Reservations reservation.Store
	Outbox       *outbox.Repository
	Users        users.Service
	Sellers      sellers.Service
	Products     products.Service
	Cart         cart.Service
	Orders       orders.Service
}

// Params carries the clients the services are built on. Registerer may be nil.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      *pkgredis.Client
	Registerer prometheus.Registerer
}

func NewServices(params Params) (*Services, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	conn := params.DB.DB()

	ledger, err := inventory.NewLedger(conn)
	if err != nil {
		return nil, fmt.Errorf("inventory ledger: %w", err)
	}
	issuer, err := sequence.NewIssuer(conn)
	if err != nil {
		return nil, fmt.Errorf("sequence issuer: %w", err)
	}

	store, err := reservation.New(cfg.Reservation, reservation.Deps{
		DB:      params.DB,
		Redis:   params.Redis,
		Ledger:  ledger,
		Metrics: metrics.NewReservationMetrics(params.Registerer),
		Logger:  params.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("reservation store: %w", err)
	}

	outboxRepo := outbox.NewRepository(conn)
	events := outbox.NewService(outboxRepo, params.Logger)

	usersRepo := users.NewRepository(conn)
	userSvc, err := users.NewService(users.ServiceParams{
		Repo:     usersRepo,
		Tx:       params.DB,
		Issuer:   issuer,
		Password: cfg.Password,
		JWT:      cfg.JWT,
		Logger:   params.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("users service: %w", err)
	}

	sellerRepo := sellers.NewRepository(conn)
	sellerSvc, err := sellers.NewService(sellerRepo, usersRepo, params.DB, issuer)
	if err != nil {
		return nil, fmt.Errorf("sellers service: %w", err)
	}

	productRepo := products.NewRepository(conn)
	productSvc, err := products.NewService(products.ServiceParams{
		Repo:         productRepo,
		Sellers:      sellerRepo,
		Tx:           params.DB,
		Issuer:       issuer,
		Ledger:       ledger,
		Reservations: store,
		Outbox:       events,
	})
	if err != nil {
		return nil, fmt.Errorf("products service: %w", err)
	}

	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:         cartRepo,
		Tx:           params.DB,
		Products:     productRepo,
		Reservations: store,
		TTL:          cfg.Reservation.TTL(),
		Metrics:      metrics.NewCartMetrics(params.Registerer),
		Logger:       params.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:         orders.NewRepository(conn),
		Tx:           params.DB,
		Cart:         cartSvc,
		CartRepo:     cartRepo,
		Issuer:       issuer,
		Ledger:       ledger,
		Reservations: store,
		Outbox:       events,
		Logger:       params.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	return &Services{
		Ledger:       ledger,
		Issuer:       issuer,
		Reservations: store,
		Outbox:       outboxRepo,
		Users:        userSvc,
		Sellers:      sellerSvc,
		Products:     productSvc,
		Cart:         cartSvc,
		Orders:       orderSvc,
	}, nil
}

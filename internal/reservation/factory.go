package reservation

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/shopeazy-backend/internal/inventory"
	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/db"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
	"github.com/angelmondragon/shopeazy-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/shopeazy-backend/pkg/redis"
)

// Deps are the shared clients a backend may need.
type Deps struct {
	DB      *db.Client
	Redis   *pkgredis.Client
	Ledger  *inventory.Ledger
	Metrics *metrics.ReservationMetrics
	Logger  *logger.Logger
	Clock   Clock
}

// New selects the configured backend and wraps it with instrumentation.
func New(cfg config.ReservationConfig, deps Deps) (Store, error) {
	if deps.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	var (
		store Store
		err   error
	)
	switch backend {
	case config.ReservationBackendRedis:
		store, err = NewRedisStore(RedisStoreParams{
			Client: deps.Redis,
			Stock:  deps.Ledger,
			Logger: deps.Logger,
			Clock:  deps.Clock,
		})
	case config.ReservationBackendSQL:
		if deps.DB == nil {
			return nil, fmt.Errorf("db client required for sql reservations")
		}
		store, err = NewSQLStore(SQLStoreParams{
			DB:     deps.DB.DB(),
			Tx:     deps.DB,
			Locker: deps.Ledger,
			Clock:  deps.Clock,
		})
	default:
		return nil, fmt.Errorf("unknown reservation backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(store, backend, deps.Metrics, deps.Logger), nil
}

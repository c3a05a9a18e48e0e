package reservation

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/internal/inventory"
	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/db"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopeazy-backend/pkg/metrics"
)

func TestInstrumentedStoreCountsOutcomes(t *testing.T) {
	conn := dbtest.Open(t)
	ledger, err := inventory.NewLedger(conn)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	store, err := New(config.ReservationConfig{Backend: "SQL"}, Deps{
		DB:      db.Wrap(conn),
		Ledger:  ledger,
		Metrics: metrics.NewReservationMetrics(reg),
	})
	require.NoError(t, err)

	ctx := context.Background()
	product := dbtest.SeedProduct(t, conn, 1)
	_, err = store.Reserve(ctx, uuid.New(), product.ID, 1, time.Minute)
	require.NoError(t, err)
	_, err = store.Reserve(ctx, uuid.New(), product.ID, 1, time.Minute)
	require.Error(t, err)

	expected := `
# HELP reservation_attempts_total Reserve calls partitioned by backend and outcome.
# TYPE reservation_attempts_total counter
reservation_attempts_total{backend="sql",outcome="out_of_stock"} 1
reservation_attempts_total{backend="sql",outcome="reserved"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "reservation_attempts_total"))
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	conn := dbtest.Open(t)
	ledger, err := inventory.NewLedger(conn)
	require.NoError(t, err)

	_, err = New(config.ReservationConfig{Backend: "memcached"}, Deps{Ledger: ledger})
	assert.Error(t, err)

	_, err = New(config.ReservationConfig{Backend: config.ReservationBackendRedis}, Deps{Ledger: ledger})
	assert.Error(t, err, "redis backend needs a client")
}

type blockingStockReader struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingStockReader) StockCount(ctx context.Context, productID uuid.UUID) (int, error) {
	b.calls.Add(1)
	b.once.Do(func() { close(b.started) })
	<-b.release
	return 7, nil
}

func TestSharedStockReaderCoalescesLookups(t *testing.T) {
	inner := &blockingStockReader{started: make(chan struct{}), release: make(chan struct{})}
	reader := NewSharedStockReader(inner)
	product := uuid.New()

	var wg sync.WaitGroup
	results := make([]int, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = reader.StockCount(context.Background(), product)
	}()
	<-inner.started

	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = reader.StockCount(context.Background(), product)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, 7, got)
	}
	assert.Less(t, inner.calls.Load(), int32(len(results)))
}

func TestInTxJoinsCallerTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	client := db.Wrap(conn)
	ledger, err := inventory.NewLedger(conn)
	require.NoError(t, err)

	store, err := New(config.ReservationConfig{Backend: "sql"}, Deps{
		DB:      client,
		Ledger:  ledger,
		Metrics: metrics.NewReservationMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	product := dbtest.SeedProduct(t, conn, 2)
	user := uuid.New()
	_, err = store.Reserve(ctx, user, product.ID, 2, time.Minute)
	require.NoError(t, err)

	rollback := assert.AnError
	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := InTx(store, tx)
		hold, err := scoped.FindOne(ctx, user, product.ID)
		require.NoError(t, err)
		require.NotNil(t, hold)
		require.NoError(t, scoped.Release(ctx, user, product.ID))
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	hold, err := store.FindOne(ctx, user, product.ID)
	require.NoError(t, err)
	require.NotNil(t, hold, "a rolled back release keeps the hold")

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return InTx(store, tx).Release(ctx, user, product.ID)
	}))
	hold, err = store.FindOne(ctx, user, product.ID)
	require.NoError(t, err)
	assert.Nil(t, hold)

	redisStore := &RedisStore{}
	assert.Same(t, Store(redisStore), InTx(redisStore, conn), "stores outside the database are returned as is")
}

// Package reservationtest runs the Redis reservation store against miniredis with a
// controllable clock.
package reservationtest

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/shopeazy-backend/internal/reservation"
	pkgredis "github.com/angelmondragon/shopeazy-backend/pkg/redis"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Env bundles a Redis-backed store with the clock and server driving its TTLs.
type Env struct {
	Store reservation.Store
	Clock *Clock
	mr    *miniredis.Miniredis
}

// Redis starts miniredis and builds a store reading stock from stock.
func Redis(t testing.TB, stock reservation.StockReader) *Env {
	t.Helper()

	mr := miniredis.RunT(t)
	client := pkgredis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	clock := NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	mr.SetTime(clock.Now())
	store, err := reservation.NewRedisStore(reservation.RedisStoreParams{
		Client: client,
		Stock:  stock,
		Clock:  clock.Now,
	})
	if err != nil {
		t.Fatalf("redis reservation store: %v", err)
	}
	return &Env{Store: store, Clock: clock, mr: mr}
}

// Advance moves the store clock, the server clock and the server's key TTLs together.
func (e *Env) Advance(d time.Duration) {
	e.Clock.Advance(d)
	e.mr.SetTime(e.Clock.Now())
	e.mr.FastForward(d)
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
)

const defaultPrefix = "se"

var errNotInitialized = errors.New("redis client not initialized")

// Client pairs a go-redis connection with the service key layout.
//
//	<prefix>:reservation:...   reservation store keys
//	<prefix>:lock:<name>       cron and maintenance locks
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// New connects using cfg and fails fast when the server does not answer PING.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "redis_addr", opts.Addr), "redis.connected")
	}
	return &Client{rdb: rdb, prefix: prefixOrDefault(cfg.KeyPrefix)}, nil
}

// Wrap adopts an existing go-redis client, typically one pointed at miniredis.
func Wrap(rdb *redis.Client) *Client {
	return &Client{rdb: rdb, prefix: defaultPrefix}
}

func prefixOrDefault(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		return defaultPrefix
	}
	return prefix
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis url or address is required")
	}

	// Values from the URL win over the discrete settings.
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	opts.DialTimeout = durationOr(opts.DialTimeout, cfg.DialTimeout)
	opts.ReadTimeout = durationOr(opts.ReadTimeout, cfg.ReadTimeout)
	opts.WriteTimeout = durationOr(opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func durationOr(current, fallback time.Duration) time.Duration {
	if current != 0 {
		return current
	}
	return fallback
}

// Raw exposes the full command set, including EVALSHA, for scripted stores.
func (c *Client) Raw() redis.Cmdable {
	if c.rdb == nil {
		return nil
	}
	return c.rdb
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.rdb == nil {
		return "", errNotInitialized
	}
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.rdb == nil {
		return false, errNotInitialized
	}
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// ReservationKey joins parts under <prefix>:reservation. Empty parts are skipped.
func (c *Client) ReservationKey(parts ...string) string {
	return c.key("reservation", parts...)
}

func (c *Client) LockKey(name string) string {
	return c.key("lock", name)
}

func (c *Client) Ping(ctx context.Context) error {
	if c.rdb == nil {
		return errNotInitialized
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *Client) key(area string, parts ...string) string {
	segments := make([]string, 0, len(parts)+2)
	segments = append(segments, prefixOrDefault(c.prefix), area)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, ":")
}

package reservation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/shopeazy-backend/pkg/redis"
)

// Key layout, all under the client namespace:
//
//	reservation:pair:<user>:<product>      hash, PEXPIREAT expires_at
//	reservation:product:<product>:expiry   zset user -> expires_at ms
//	reservation:product:<product>:qty      hash user -> quantity
//	reservation:user:<user>                zset product -> expires_at ms
//
// The product level keys are only ever touched inside scripts so the stock check and the
// write for one product are a single atomic step.

// reserveScript prunes expired holders, sums the other users' quantities and writes the
// claim when it fits. Returns {1, expiresAt, createdAt} or {0, available}.
var reserveScript = goredis.NewScript(`
local now = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', now)
for _, member in ipairs(expired) do
  redis.call('HDEL', KEYS[3], member)
end
redis.call('ZREMRANGEBYSCORE', KEYS[2], '-inf', now)

local held = 0
local entries = redis.call('HGETALL', KEYS[3])
for i = 1, #entries, 2 do
  if entries[i] ~= ARGV[1] then
    held = held + tonumber(entries[i + 1])
  end
end

local qty = tonumber(ARGV[3])
local available = tonumber(ARGV[6]) - held
if available < 0 then
  available = 0
end
if qty > available then
  return {0, available}
end

local expiresAt = now + ttl
redis.call('HSET', KEYS[1], 'user_id', ARGV[1], 'product_id', ARGV[2], 'quantity', qty, 'created_at', now, 'expires_at', expiresAt)
redis.call('PEXPIREAT', KEYS[1], expiresAt)
redis.call('ZADD', KEYS[2], expiresAt, ARGV[1])
redis.call('HSET', KEYS[3], ARGV[1], qty)
redis.call('ZADD', KEYS[4], expiresAt, ARGV[2])
for i = 2, 4 do
  if redis.call('PTTL', KEYS[i]) < ttl then
    redis.call('PEXPIRE', KEYS[i], ttl)
  end
end
return {1, expiresAt, now}
`)

var releaseScript = goredis.NewScript(`
local existed = redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('HDEL', KEYS[3], ARGV[1])
redis.call('ZREM', KEYS[4], ARGV[2])
return existed
`)

// purgeScript drops expired holders of one product. Returns the number removed.
var purgeScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local expired = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', now)
for _, member in ipairs(expired) do
  redis.call('HDEL', KEYS[2], member)
end
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now)
return #expired
`)

const scanBatch = 200

// RedisStore keeps reservations in Redis with native key expiry backing the
// score-based visibility checks.
type RedisStore struct {
	client *pkgredis.Client
	rdb    goredis.Cmdable
	stock  StockReader
	logg   *logger.Logger
	now    Clock
}

// RedisStoreParams wires a RedisStore.
type RedisStoreParams struct {
	Client *pkgredis.Client
	Stock  StockReader
	Logger *logger.Logger
	Clock  Clock
}

// NewRedisStore validates params and builds the store.
func NewRedisStore(params RedisStoreParams) (*RedisStore, error) {
	if params.Client == nil || params.Client.Raw() == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock reader required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &RedisStore{
		client: params.Client,
		rdb:    params.Client.Raw(),
		stock:  NewSharedStockReader(params.Stock),
		logg:   params.Logger,
		now:    clock,
	}, nil
}

func (s *RedisStore) pairKey(userID, productID uuid.UUID) string {
	return s.client.ReservationKey("pair", userID.String(), productID.String())
}

func (s *RedisStore) productExpiryKey(productID uuid.UUID) string {
	return s.client.ReservationKey("product", productID.String(), "expiry")
}

func (s *RedisStore) productQtyKey(productID uuid.UUID) string {
	return s.client.ReservationKey("product", productID.String(), "qty")
}

func (s *RedisStore) userKey(userID uuid.UUID) string {
	return s.client.ReservationKey("user", userID.String())
}

func (s *RedisStore) keys(userID, productID uuid.UUID) []string {
	return []string{
		s.pairKey(userID, productID),
		s.productExpiryKey(productID),
		s.productQtyKey(productID),
		s.userKey(userID),
	}
}

func (s *RedisStore) nowMillis() int64 {
	return s.now().UTC().UnixMilli()
}

func (s *RedisStore) Reserve(ctx context.Context, userID, productID uuid.UUID, quantity int, ttl time.Duration) (*Reservation, error) {
	if err := validateReserve(userID, productID, quantity, ttl); err != nil {
		return nil, err
	}

	stock, err := s.stock.StockCount(ctx, productID)
	if err != nil {
		return nil, storeUnavailable(err, "read stock")
	}

	ttlMillis := ttl.Milliseconds()
	if ttlMillis < 1 {
		ttlMillis = 1
	}
	res, err := reserveScript.Run(ctx, s.rdb, s.keys(userID, productID),
		userID.String(), productID.String(), quantity, s.nowMillis(), ttlMillis, stock,
	).Int64Slice()
	if err != nil {
		return nil, storeUnavailable(err, "reserve inventory")
	}
	if len(res) < 2 {
		return nil, storeUnavailable(fmt.Errorf("unexpected script reply %v", res), "reserve inventory")
	}
	if res[0] == 0 {
		return nil, outOfStock(productID, quantity, int(res[1]))
	}

	createdAt := time.UnixMilli(res[1] - ttlMillis).UTC()
	if len(res) > 2 {
		createdAt = time.UnixMilli(res[2]).UTC()
	}
	return &Reservation{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: createdAt,
		ExpiresAt: time.UnixMilli(res[1]).UTC(),
	}, nil
}

func (s *RedisStore) Release(ctx context.Context, userID, productID uuid.UUID) error {
	if err := releaseScript.Run(ctx, s.rdb, s.keys(userID, productID), userID.String(), productID.String()).Err(); err != nil {
		return storeUnavailable(err, "release reservation")
	}
	return nil
}

func (s *RedisStore) ReleaseAll(ctx context.Context, userID uuid.UUID) (int, error) {
	members, err := s.rdb.ZRangeWithScores(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return 0, storeUnavailable(err, "list user reservations")
	}

	now := s.nowMillis()
	released := 0
	for _, member := range members {
		productID, err := uuid.Parse(fmt.Sprint(member.Member))
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "member", member.Member), "skipping malformed reservation member")
			}
			continue
		}
		if err := s.Release(ctx, userID, productID); err != nil {
			return released, err
		}
		if int64(member.Score) > now {
			released++
		}
	}
	return released, nil
}

func (s *RedisStore) FindOne(ctx context.Context, userID, productID uuid.UUID) (*Reservation, error) {
	fields, err := s.rdb.HGetAll(ctx, s.pairKey(userID, productID)).Result()
	if err != nil {
		return nil, storeUnavailable(err, "load reservation")
	}
	if len(fields) == 0 {
		return nil, nil
	}

	res, err := parsePairHash(userID, productID, fields)
	if err != nil {
		return nil, storeUnavailable(err, "decode reservation")
	}
	if !res.ExpiresAt.After(s.now().UTC()) {
		return nil, nil
	}
	return res, nil
}

func (s *RedisStore) FindByUser(ctx context.Context, userID uuid.UUID) ([]Reservation, error) {
	products, err := s.liveMembers(ctx, s.userKey(userID))
	if err != nil {
		return nil, err
	}

	out := make([]Reservation, 0, len(products))
	for _, raw := range products {
		productID, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		res, err := s.FindOne(ctx, userID, productID)
		if err != nil {
			return nil, err
		}
		if res != nil {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (s *RedisStore) FindByProduct(ctx context.Context, productID uuid.UUID) ([]Reservation, error) {
	users, err := s.liveMembers(ctx, s.productExpiryKey(productID))
	if err != nil {
		return nil, err
	}

	out := make([]Reservation, 0, len(users))
	for _, raw := range users {
		userID, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		res, err := s.FindOne(ctx, userID, productID)
		if err != nil {
			return nil, err
		}
		if res != nil {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (s *RedisStore) Available(ctx context.Context, productID uuid.UUID) (int, error) {
	stock, err := s.stock.StockCount(ctx, productID)
	if err != nil {
		return 0, storeUnavailable(err, "read stock")
	}

	users, err := s.liveMembers(ctx, s.productExpiryKey(productID))
	if err != nil {
		return 0, err
	}
	held := 0
	if len(users) > 0 {
		values, err := s.rdb.HMGet(ctx, s.productQtyKey(productID), users...).Result()
		if err != nil {
			return 0, storeUnavailable(err, "read held quantities")
		}
		for _, v := range values {
			if v == nil {
				continue
			}
			qty, err := strconv.Atoi(fmt.Sprint(v))
			if err == nil {
				held += qty
			}
		}
	}

	if available := stock - held; available > 0 {
		return available, nil
	}
	return 0, nil
}

// PurgeExpired sweeps every product's holder set. Pair hashes expire on their own.
func (s *RedisStore) PurgeExpired(ctx context.Context) (int, error) {
	now := s.nowMillis()
	purged := 0

	err := s.scan(ctx, s.client.ReservationKey("product", "*", "expiry"), func(key string) error {
		productID, ok := productIDFromExpiryKey(key)
		if !ok {
			return nil
		}
		n, err := purgeScript.Run(ctx, s.rdb, []string{key, s.productQtyKey(productID)}, now).Int()
		if err != nil {
			return err
		}
		purged += n
		return nil
	})
	if err != nil {
		return purged, storeUnavailable(err, "purge product reservations")
	}

	cutoff := strconv.FormatInt(now, 10)
	err = s.scan(ctx, s.client.ReservationKey("user", "*"), func(key string) error {
		return s.rdb.ZRemRangeByScore(ctx, key, "-inf", cutoff).Err()
	})
	if err != nil {
		return purged, storeUnavailable(err, "purge user reservations")
	}
	return purged, nil
}

func (s *RedisStore) liveMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.rdb.ZRangeByScore(ctx, key, &goredis.ZRangeBy{
		Min: "(" + strconv.FormatInt(s.nowMillis(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, storeUnavailable(err, "list reservations")
	}
	return members, nil
}

func (s *RedisStore) scan(ctx context.Context, pattern string, fn func(key string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := fn(key); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func productIDFromExpiryKey(key string) (uuid.UUID, bool) {
	parts := strings.Split(key, ":")
	if len(parts) < 2 || parts[len(parts)-1] != "expiry" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[len(parts)-2])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func parsePairHash(userID, productID uuid.UUID, fields map[string]string) (*Reservation, error) {
	qty, err := strconv.Atoi(fields["quantity"])
	if err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	expires, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("expires_at: %w", err)
	}
	if qty < 1 {
		return nil, errors.New("quantity must be positive")
	}
	return &Reservation{
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: time.UnixMilli(created).UTC(),
		ExpiresAt: time.UnixMilli(expires).UTC(),
	}, nil
}

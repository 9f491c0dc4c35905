package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/PsylineServices/psy-scheduler/internal/models"
)

// Store is the durable side of the guard. Redis is a fast path only: the
// database row is what survives restarts, so a retry after a crash still
// replays instead of re-executing.
type Store interface {
	Get(ctx context.Context, key string, now time.Time) (*models.IdempotencyRecord, error)
	Put(ctx context.Context, rec *models.IdempotencyRecord) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Guard struct {
	store  Store
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewGuard accepts a nil redis client; the guard then runs on the durable
// store alone.
func NewGuard(store Store, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Guard {
	return &Guard{
		store:  store,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// HashBody fingerprints the request payload so "same key, different payload"
// is detectable as a conflict rather than silently replayed.
func HashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func (g *Guard) Check(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	now := time.Now()

	if g.rdb != nil {
		if raw, err := g.rdb.Get(ctx, cacheKey(key)).Result(); err == nil {
			var rec models.IdempotencyRecord
			if json.Unmarshal([]byte(raw), &rec) == nil && rec.ExpiresAt.After(now) {
				return &rec, nil
			}
		}
	}

	rec, err := g.store.Get(ctx, key, now)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	g.cache(ctx, rec)
	return rec, nil
}

func (g *Guard) Save(ctx context.Context, key, requestHash string, statusCode int, result string) error {
	now := time.Now()

	rec := &models.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		StatusCode:  statusCode,
		Result:      result,
		CreatedAt:   now,
		ExpiresAt:   now.Add(g.ttl),
	}

	if err := g.store.Put(ctx, rec); err != nil {
		return err
	}

	g.cache(ctx, rec)
	return nil
}

func (g *Guard) PurgeExpired(ctx context.Context) (int64, error) {
	return g.store.DeleteExpired(ctx, time.Now())
}

func (g *Guard) cache(ctx context.Context, rec *models.IdempotencyRecord) {
	if g.rdb == nil {
		return
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}

	if err := g.rdb.Set(ctx, cacheKey(rec.Key), raw, g.ttl).Err(); err != nil {
		// cache miss only; the durable store stays authoritative
		g.logger.Warn("idempotency cache write failed", zap.Error(err))
	}
}

func cacheKey(key string) string {
	return "idem:" + key
}

package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

// IdempotencyGuard rejects replays of mutating requests that carry an
// Idempotency-Key header, using a redis SETNX with a TTL. Requests without
// the header pass through; callers opt in. The guard fails open when redis
// is unreachable, so it is a convenience for clients, not a correctness
// mechanism - the services stay correct without it.
type IdempotencyGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewIdempotencyGuard(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{rdb: rdb, ttl: ttl, logger: logger}
}

func (g *IdempotencyGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(idempotencyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		redisKey := fmt.Sprintf("idem:%s:%s:%s", userFromRequest(r), r.URL.Path, key)
		fresh, err := g.rdb.SetNX(r.Context(), redisKey, "1", g.ttl).Result()
		if err != nil {
			g.logger.Warn("idempotency check unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !fresh {
			writeError(w, http.StatusConflict, codeDuplicateRequest, "request already processed")
			return
		}

		next.ServeHTTP(w, r)
	})
}

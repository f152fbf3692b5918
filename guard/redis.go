package guard

import (
	"context"
	"fmt"
	"time"

	"procurement-backend/apperrors"
	"procurement-backend/db/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a cross-process guard built on SET NX PX. A holder that dies leaves
// the lock to expire after TTL.
type Redis struct {
	client       *redis.Client
	ttl          time.Duration
	wait         time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewRedis(client *redis.Client, ttl, wait time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client:       client,
		ttl:          ttl,
		wait:         wait,
		pollInterval: 25 * time.Millisecond,
		logger:       logger,
	}
}

func (r *Redis) Lock(ctx context.Context, ref models.DocumentRef) (func(), error) {
	key := lockKey(ref)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(waitCtx, key, token, r.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("%w: acquiring lock on %s: %v", apperrors.ErrTransient, ref, err)
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w: timed out waiting for lock on %s", apperrors.ErrTransient, ref)
		case <-ticker.C:
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil {
			r.logger.Warn("failed to release document lock",
				zap.String("key", key),
				zap.Error(err))
		}
	}, nil
}

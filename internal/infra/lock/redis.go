package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
)

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// Redis is a SETNX lock shared by every API node.
type Redis struct {
	cli      *redis.Client
	ttl      time.Duration
	attempts int
	backoff  time.Duration
	log      zerolog.Logger
}

func NewRedis(cli *redis.Client, ttl time.Duration, log zerolog.Logger) *Redis {
	return &Redis{
		cli:      cli,
		ttl:      ttl,
		attempts: 40,
		backoff:  50 * time.Millisecond,
		log:      log.With().Str("component", "RedisLocker").Logger(),
	}
}

func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	key = "minimars:lock:" + key
	token := uuid.NewString()

	for i := 0; i < l.attempts; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				if err := luaUnlock.Run(context.Background(), l.cli, []string{key}, token).Err(); err != nil {
					l.log.Warn().Err(err).Str("key", key).Msg("unlock failed")
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.backoff):
		}
	}
	return nil, errs.ErrLocked
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores each key as a plain string under prefix + ":" + key.
// Apply runs inside MULTI/EXEC. Keys never expire: a session key that
// vanished on its own would leave the in-memory session authenticated over
// an empty store.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis store.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Redis) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, true, nil
}

func (s *Redis) Apply(ctx context.Context, ops ...Op) error {
	if err := validateOps(ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			switch op.Kind {
			case OpSet:
				pipe.Set(ctx, s.key(op.Key), op.Value, 0)
			case OpDelete:
				pipe.Del(ctx, s.key(op.Key))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping measures a round trip to the server.
func (s *Redis) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

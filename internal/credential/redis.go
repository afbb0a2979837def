package credential

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink is the persistent surface, one hash per gateway session. The TTL
// only bounds abandoned sessions; token expiry is carried by the token
// itself, never by the store.
type RedisSink struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration
}

func NewRedisSink(client *redis.Client, sessionID string, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, sessionID: sessionID, ttl: ttl}
}

func (s *RedisSink) key() string {
	return "nusantara_edu:session:" + s.sessionID
}

func (s *RedisSink) Set(ctx context.Context, key, value string) error {
	if err := s.client.HSet(ctx, s.key(), key, value).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, s.key(), s.ttl).Err()
}

func (s *RedisSink) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.HGet(ctx, s.key(), key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *RedisSink) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key()).Err()
}

package otp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "otp:v1:"

// The redis TTL runs past the logical expiry so Get can distinguish an
// expired verification from one that never existed.
const ttlGrace = time.Minute

type redisStore struct {
	cache *redis.Client
}

// NewRedisStore builds a Redis-backed verification store. Entries expire out
// of Redis shortly after their logical window to bound memory.
func NewRedisStore(cache *redis.Client) Store {
	return &redisStore{cache: cache}
}

func (s *redisStore) Put(ctx context.Context, phone string, pending Pending) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, keyPrefix+phone, payload, time.Until(pending.ExpiresAt)+ttlGrace).Err()
}

func (s *redisStore) Get(ctx context.Context, phone string) (Pending, error) {
	raw, err := s.cache.Get(ctx, keyPrefix+phone).Result()
	if errors.Is(err, redis.Nil) {
		return Pending{}, ErrNotFound
	}
	if err != nil {
		return Pending{}, err
	}

	var pending Pending
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return Pending{}, err
	}
	if time.Now().After(pending.ExpiresAt) {
		s.cache.Del(ctx, keyPrefix+phone)
		return Pending{}, ErrExpired
	}
	return pending, nil
}

func (s *redisStore) Update(ctx context.Context, phone string, pending Pending) error {
	exists, err := s.cache.Exists(ctx, keyPrefix+phone).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return s.Put(ctx, phone, pending)
}

func (s *redisStore) Delete(ctx context.Context, phone string) error {
	return s.cache.Del(ctx, keyPrefix+phone).Err()
}

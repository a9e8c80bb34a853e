package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"videotube/api/internal/models"
)

var ErrCacheMiss = errors.New("cache miss")

// UserCache keeps sanitized users keyed by id so the auth middleware can
// resolve a bearer without a database round trip. Only PublicUser is stored.
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewUserCache(client *redis.Client, ttl time.Duration) *UserCache {
	return &UserCache{client: client, ttl: ttl}
}

func userKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func (c *UserCache) Get(ctx context.Context, id string) (models.PublicUser, error) {
	raw, err := c.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.PublicUser{}, ErrCacheMiss
		}
		return models.PublicUser{}, err
	}

	var user models.PublicUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return models.PublicUser{}, fmt.Errorf("decode cached user: %w", err)
	}
	return user, nil
}

func (c *UserCache) Set(ctx context.Context, user models.PublicUser) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userKey(user.ID), raw, c.ttl).Err()
}

func (c *UserCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, userKey(id)).Err()
}

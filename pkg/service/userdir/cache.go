// Package userdir caches owner long names in Redis in front of any
// interfaces.UserDirectory.
package userdir

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/secmon-lab/taskbasket/pkg/domain/interfaces"
	"github.com/secmon-lab/taskbasket/pkg/utils/logging"
)

const defaultKeyPrefix = "taskbasket:user:"

// Cache is a read-through cache. Redis failures never fail a lookup; the
// backing directory is asked instead.
type Cache struct {
	base   interfaces.UserDirectory
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ interfaces.UserDirectory = (*Cache)(nil)

type Option func(*Cache)

// WithKeyPrefix sets the prefix of every cache key
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New returns a cache in front of base. A ttl of zero disables writes, so
// the cache only serves what another process stored.
func New(base interfaces.UserDirectory, client *redis.Client, ttl time.Duration, opts ...Option) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	c := &Cache{
		base:   base,
		client: client,
		ttl:    ttl,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(userID string) string {
	return c.prefix + userID
}

func (c *Cache) ResolveLongName(ctx context.Context, userID string) (string, error) {
	name, err := c.client.Get(ctx, c.key(userID)).Result()
	switch {
	case err == nil:
		return name, nil
	case !errors.Is(err, redis.Nil):
		logging.From(ctx).Warn("user cache read failed", slog.String("user_id", userID), slog.Any("error", err))
	}

	name, err = c.base.ResolveLongName(ctx, userID)
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve user", goerr.V("user_id", userID))
	}
	c.store(ctx, map[string]string{userID: name})
	return name, nil
}

// ResolveLongNames answers hits with one MGET and asks the backing directory
// only for the misses
func (c *Cache) ResolveLongNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = c.key(id)
	}

	missing := userIDs
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		logging.From(ctx).Warn("user cache read failed", slog.Int("users", len(userIDs)), slog.Any("error", err))
	} else {
		missing = nil
		for i, v := range values {
			if name, ok := v.(string); ok {
				out[userIDs[i]] = name
			} else {
				missing = append(missing, userIDs[i])
			}
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	resolved, err := c.base.ResolveLongNames(ctx, missing)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve users", goerr.V("users", len(missing)))
	}
	for id, name := range resolved {
		out[id] = name
	}
	c.store(ctx, resolved)

	logging.From(ctx).Debug("user cache lookup",
		slog.Int("hits", len(userIDs)-len(missing)),
		slog.Int("misses", len(missing)),
	)
	return out, nil
}

func (c *Cache) store(ctx context.Context, names map[string]string) {
	if c.ttl == 0 || len(names) == 0 {
		return
	}
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for id, name := range names {
			p.Set(ctx, c.key(id), name, c.ttl)
		}
		return nil
	})
	if err != nil {
		logging.From(ctx).Warn("user cache write failed", slog.Int("users", len(names)), slog.Any("error", err))
	}
}

// Evict drops cached names, e.g. after a user was renamed
func (c *Cache) Evict(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return goerr.Wrap(err, "failed to evict users", goerr.V("users", len(userIDs)))
	}
	return nil
}

package config

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/secmon-lab/taskbasket/pkg/domain/interfaces"
	"github.com/secmon-lab/taskbasket/pkg/service/userdir"
	"github.com/secmon-lab/taskbasket/pkg/utils/logging"
	"github.com/secmon-lab/taskbasket/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// Cache holds CLI flags for the Redis owner name cache
type Cache struct {
	addr     string
	password string `masq:"secret"`
	db       int
	ttl      time.Duration
}

func (c *Cache) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address (host:port) of the user name cache; disabled when empty",
			Sources:     cli.EnvVars("TASKBASKET_REDIS_ADDR"),
			Destination: &c.addr,
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Sources:     cli.EnvVars("TASKBASKET_REDIS_PASSWORD"),
			Destination: &c.password,
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Sources:     cli.EnvVars("TASKBASKET_REDIS_DB"),
			Destination: &c.db,
		},
		&cli.DurationFlag{
			Name:        "user-cache-ttl",
			Usage:       "Lifetime of cached user names",
			Value:       10 * time.Minute,
			Sources:     cli.EnvVars("TASKBASKET_USER_CACHE_TTL"),
			Destination: &c.ttl,
		},
	}
}

// IsEnabled returns true if a Redis address is configured
func (c *Cache) IsEnabled() bool {
	return c.addr != ""
}

// Configure puts the cache in front of base. Without a Redis address base
// is returned as is. The returned function closes the Redis client.
func (c *Cache) Configure(ctx context.Context, base interfaces.UserDirectory) (interfaces.UserDirectory, func(), error) {
	if !c.IsEnabled() {
		return base, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.addr,
		Password: c.password,
		DB:       c.db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", c.addr))
	}

	logging.Default().Info("Using Redis user name cache", "cache", c)
	return userdir.New(base, client, c.ttl), func() { safe.Close(ctx, client) }, nil
}

// Package geoindex is the Redis gateway. Each city owns one geoset of
// hexagon centers and one geoset per amenity (plus wheelchair-accessible
// variants); features are computed with GEOSEARCH around every center.
package geoindex

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/config"
	"github.com/sucolo/hexfeat/internal/model"
)

// Conn is the subset of the go-redis client the gateway uses.
// *redis.Client satisfies it.
type Conn interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	ZCard(ctx context.Context, key string) *redis.IntCmd
	ZRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	GeoPos(ctx context.Context, key string, members ...string) *redis.GeoPosCmd
	Pipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

const (
	defaultBatch = 1000
	scanCount    = 500
)

// Client reads and writes the city geosets.
type Client struct {
	conn  Conn
	batch int
	log   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPipelineBatch sets how many commands go into one pipeline.
func WithPipelineBatch(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batch = n
		}
	}
}

// New wraps conn.
func New(conn Conn, opts ...Option) *Client {
	c := &Client{
		conn:  conn,
		batch: defaultBatch,
		log:   zap.L().With(zap.String("component", "geoindex")),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Dial opens a go-redis client for cfg. The connection is lazy; use Ping to
// check it.
func Dial(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return model.NewGatewayError(model.StoreRedis, "ping", c.conn.Ping(ctx).Err())
}

func (c *Client) batches(n int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += c.batch {
		out = append(out, [2]int{start, min(start+c.batch, n)})
	}
	return out
}

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/sucolo/hexfeat/internal/citydata"
	"github.com/sucolo/hexfeat/internal/docstore"
	"github.com/sucolo/hexfeat/internal/features"
	"github.com/sucolo/hexfeat/internal/geoindex"
	"github.com/sucolo/hexfeat/internal/health"
	"github.com/sucolo/hexfeat/internal/metadata"
	"github.com/sucolo/hexfeat/internal/resilience"
)

// appEnv holds the gateways and services shared by the commands.
type appEnv struct {
	Docs     *docstore.Client
	Points   *geoindex.Client
	Meta     *metadata.Service
	Engine   *features.Engine
	CityData *citydata.Service
	Health   *health.Checker

	redis *redis.Client
}

// Close releases the Redis connection pool.
func (e *appEnv) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
}

// initEnv validates the configuration for mode and builds every gateway and
// service. Callers should defer env.Close().
func initEnv(mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	docs, err := docstore.NewFromConfig(cfg.Elastic)
	if err != nil {
		return nil, err
	}
	rdb := geoindex.Dial(cfg.Redis)
	points := geoindex.New(rdb, geoindex.WithPipelineBatch(cfg.Redis.PipelineBatch))

	meta := metadata.New(docs, points)
	return &appEnv{
		Docs:     docs,
		Points:   points,
		Meta:     meta,
		Engine:   features.NewEngine(points, docs, meta, features.WithParallelism(cfg.Engine.Parallelism)),
		CityData: citydata.New(docs, points),
		Health:   health.NewChecker(docs, points),
		redis:    rdb,
	}, nil
}

// waitReady blocks until both stores answer, using the configured backoff.
func (e *appEnv) waitReady(ctx context.Context) error {
	return e.Health.WaitReady(ctx, resilience.FromConfig(cfg.Ready.Attempts, cfg.Ready.InitialBackoffMs, cfg.Ready.MaxBackoffMs))
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

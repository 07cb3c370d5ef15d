// Package health probes the document store and the point store.
package health

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/model"
	"github.com/sucolo/hexfeat/internal/resilience"
)

// Pinger is a backing store that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the outcome of one probe round.
type Status struct {
	Elasticsearch bool `json:"elasticsearch"`
	Redis         bool `json:"redis"`
}

// Healthy reports whether every store answered.
func (s Status) Healthy() bool {
	return s.Elasticsearch && s.Redis
}

// Checker probes Elasticsearch and Redis. Probe errors are logged, never
// returned.
type Checker struct {
	es    Pinger
	redis Pinger
	log   *zap.Logger
}

// NewChecker creates a Checker.
func NewChecker(es, redis Pinger) *Checker {
	return &Checker{
		es:    es,
		redis: redis,
		log:   zap.L().With(zap.String("component", "health")),
	}
}

// CheckElasticsearch reports whether Elasticsearch answers a ping.
func (c *Checker) CheckElasticsearch(ctx context.Context) bool {
	return c.probe(ctx, model.StoreElasticsearch, c.es)
}

// CheckRedis reports whether Redis answers a ping.
func (c *Checker) CheckRedis(ctx context.Context) bool {
	return c.probe(ctx, model.StoreRedis, c.redis)
}

// Status runs both probes.
func (c *Checker) Status(ctx context.Context) Status {
	return Status{
		Elasticsearch: c.CheckElasticsearch(ctx),
		Redis:         c.CheckRedis(ctx),
	}
}

func (c *Checker) probe(ctx context.Context, store string, p Pinger) bool {
	if err := p.Ping(ctx); err != nil {
		c.log.Warn("health: probe failed", zap.String("store", store), zap.Error(err))
		return false
	}
	return true
}

// WaitReady blocks until both stores answer, retrying transient failures
// with b. The last probe error is returned when the attempts run out.
func (c *Checker) WaitReady(ctx context.Context, b resilience.Backoff) error {
	wait := func(store string, p Pinger) error {
		bo := b
		bo.OnRetry = resilience.LogRetry(store, "ping")
		return resilience.Do(ctx, bo, p.Ping)
	}

	start := time.Now()
	if err := wait(model.StoreElasticsearch, c.es); err != nil {
		return eris.Wrap(err, "health: elasticsearch not ready")
	}
	if err := wait(model.StoreRedis, c.redis); err != nil {
		return eris.Wrap(err, "health: redis not ready")
	}
	c.log.Info("health: stores ready", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Monitor logs a probe round every interval until ctx is done. Only
// changes of the overall state are logged at info level.
func (c *Checker) Monitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	c.log.Info("health: starting monitor", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			c.log.Info("health: monitor stopped")
			return
		case <-ticker.C:
			st := c.Status(ctx)
			if st.Healthy() != healthy {
				healthy = st.Healthy()
				c.log.Info("health: state changed",
					zap.Bool("healthy", healthy),
					zap.Bool("elasticsearch", st.Elasticsearch),
					zap.Bool("redis", st.Redis),
				)
			} else {
				c.log.Debug("health: probe round", zap.Bool("healthy", healthy))
			}
		}
	}
}

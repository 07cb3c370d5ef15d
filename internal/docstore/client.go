// Package docstore is the Elasticsearch gateway. Each city is one index
// holding three kinds of documents told apart by their `type` field:
// POIs, districts and hexagon centers.
package docstore

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/config"
	"github.com/sucolo/hexfeat/internal/model"
	"github.com/sucolo/hexfeat/internal/resilience"
)

const (
	defaultPageSize    = 10000
	defaultBulkWorkers = 2
	defaultFlushBytes  = 5 << 20
	defaultTimeout     = 30 * time.Second
)

// Client reads and writes the per-city indices.
type Client struct {
	es          *elasticsearch.Client
	pageSize    int
	bulkWorkers int
	flushBytes  int
	timeout     time.Duration
	log         *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPageSize sets the search page size (at most 10000).
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= defaultPageSize {
			c.pageSize = n
		}
	}
}

// WithBulk sets the bulk indexer's worker count and flush threshold.
func WithBulk(workers, flushBytes int) Option {
	return func(c *Client) {
		if workers > 0 {
			c.bulkWorkers = workers
		}
		if flushBytes > 0 {
			c.flushBytes = flushBytes
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New wraps an Elasticsearch client.
func New(es *elasticsearch.Client, opts ...Option) *Client {
	c := &Client{
		es:          es,
		pageSize:    defaultPageSize,
		bulkWorkers: defaultBulkWorkers,
		flushBytes:  defaultFlushBytes,
		timeout:     defaultTimeout,
		log:         zap.L().With(zap.String("component", "docstore")),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open builds an Elasticsearch client from cfg. For https hosts the CA
// certificate is read from cfg.CACert.
func Open(cfg config.ElasticConfig) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Hosts,
		Username:  cfg.User,
		Password:  cfg.Password,
	}
	if cfg.UsesTLS() {
		cert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, eris.Wrapf(model.ErrConfiguration, "docstore: read ca cert %s: %v", cfg.CACert, err)
		}
		esCfg.CACert = cert
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, eris.Wrap(err, "docstore: new client")
	}
	return es, nil
}

// NewFromConfig opens a client for cfg and applies its tuning.
func NewFromConfig(cfg config.ElasticConfig) (*Client, error) {
	es, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return New(es,
		WithPageSize(cfg.PageSize),
		WithBulk(cfg.BulkWorkers, cfg.BulkFlushBytes),
		WithTimeout(time.Duration(cfg.TimeoutSecs)*time.Second),
	), nil
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return model.NewGatewayError(model.StoreElasticsearch, "ping", err)
	}
	defer res.Body.Close()
	return model.NewGatewayError(model.StoreElasticsearch, "ping", responseError(res))
}

// responseError turns an error response into an error carrying the status
// line and the server's reason. Statuses worth retrying are marked
// transient.
func responseError(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}

	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(res.Body)
	err := eris.Errorf("docstore: %s", res.Status())
	if json.Unmarshal(raw, &body) == nil && body.Error.Type != "" {
		err = eris.Errorf("docstore: %s: %s: %s", res.Status(), body.Error.Type, body.Error.Reason)
	}

	if resilience.IsTransientHTTPStatus(res.StatusCode) {
		return resilience.NewTransientError(err, res.StatusCode)
	}
	return err
}

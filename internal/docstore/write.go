package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/model"
)

// IndexPOIs bulk-indexes POI documents under their deterministic ids.
func (c *Client) IndexPOIs(ctx context.Context, city string, docs []model.POIDocument) error {
	items := make([]model.Document, len(docs))
	for i, d := range docs {
		items[i] = d
	}
	return c.bulk(ctx, city, "bulk pois", items)
}

// IndexHexCenters bulk-indexes hexagon-center documents keyed by cell id.
func (c *Client) IndexHexCenters(ctx context.Context, city string, docs []model.HexCenterDocument) error {
	items := make([]model.Document, len(docs))
	for i, d := range docs {
		items[i] = d
	}
	return c.bulk(ctx, city, "bulk hex centers", items)
}

// IndexDistricts indexes district documents one request each, keyed by
// district name. Every district is attempted; failures are reported
// together.
func (c *Client) IndexDistricts(ctx context.Context, city string, docs []model.DistrictDocument) error {
	failed := 0
	for _, d := range docs {
		if err := c.indexOne(ctx, city, d); err != nil {
			if ctx.Err() != nil {
				return model.NewGatewayError(model.StoreElasticsearch, "index district", ctx.Err())
			}
			failed++
			c.log.Warn("district rejected", zap.String("index", city), zap.String("district", d.Name), zap.Error(err))
		}
	}
	if failed > 0 {
		return model.NewGatewayError(model.StoreElasticsearch, "index districts", &model.PartialWriteError{Failed: failed, Total: len(docs)})
	}
	return nil
}

func (c *Client) indexOne(ctx context.Context, city string, d model.Document) error {
	body, err := json.Marshal(d.Source())
	if err != nil {
		return eris.Wrapf(err, "docstore: encode %s %s", d.DocType(), d.DocID())
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Index(city, bytes.NewReader(body),
		c.es.Index.WithDocumentID(d.DocID()),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return responseError(res)
}

// bulk submits every document through a BulkIndexer. Rejected items are
// logged one by one and reported as a PartialWriteError once the indexer
// has flushed.
func (c *Client) bulk(ctx context.Context, city, op string, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}

	// First request-level failure; such failures never reach OnFailure.
	var flushErr error
	var flushOnce sync.Once

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        c.es,
		Index:         city,
		NumWorkers:    c.bulkWorkers,
		FlushBytes:    c.flushBytes,
		FlushInterval: 0,
		OnError: func(_ context.Context, err error) {
			flushOnce.Do(func() { flushErr = err })
			c.log.Error("bulk indexer error", zap.String("index", city), zap.Error(err))
		},
	})
	if err != nil {
		return model.NewGatewayError(model.StoreElasticsearch, op, eris.Wrap(err, "docstore: new bulk indexer"))
	}

	var failed atomic.Int64
	onFailure := func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
		failed.Add(1)
		if err != nil {
			c.log.Warn("bulk item failed", zap.String("index", city), zap.String("id", item.DocumentID), zap.Error(err))
			return
		}
		c.log.Warn("bulk item rejected",
			zap.String("index", city),
			zap.String("id", item.DocumentID),
			zap.Int("status", res.Status),
			zap.String("error_type", res.Error.Type),
			zap.String("reason", res.Error.Reason),
		)
	}

	for _, d := range docs {
		body, err := json.Marshal(d.Source())
		if err != nil {
			_ = bi.Close(ctx)
			return eris.Wrapf(err, "docstore: encode %s %s", d.DocType(), d.DocID())
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: d.DocID(),
			Body:       bytes.NewReader(body),
			OnFailure:  onFailure,
		})
		if err != nil {
			_ = bi.Close(ctx)
			return model.NewGatewayError(model.StoreElasticsearch, op, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return model.NewGatewayError(model.StoreElasticsearch, op, err)
	}

	stats := bi.Stats()
	c.log.Info("bulk indexed",
		zap.String("index", city),
		zap.String("op", op),
		zap.Uint64("indexed", stats.NumIndexed),
		zap.Uint64("failed", stats.NumFailed),
	)

	n := max(int(stats.NumFailed), int(failed.Load()))
	if flushErr != nil && n == 0 {
		n = len(docs)
	}
	if n > 0 {
		return model.NewGatewayError(model.StoreElasticsearch, op, &model.PartialWriteError{Failed: n, Total: len(docs), Err: flushErr})
	}
	return nil
}

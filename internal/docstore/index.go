package docstore

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/model"
)

var (
	// ErrIndexExists is returned by CreateIndex when the city already has
	// an index and existing indices are not to be reused.
	ErrIndexExists = eris.New("index already exists")

	// ErrIndexNotFound is returned by DeleteIndex when the city has no index
	// and a missing index is not acceptable.
	ErrIndexNotFound = eris.New("index not found")
)

// indexMapping declares the id fields as keywords so they can be sorted on
// for search_after paging.
const indexMapping = `{
  "mappings": {
    "properties": {
      "type":       {"type": "keyword"},
      "poi_id":     {"type": "keyword"},
      "amenity":    {"type": "keyword"},
      "name":       {"type": "text"},
      "wheelchair": {"type": "keyword"},
      "district":   {"type": "keyword"},
      "hex_id":     {"type": "keyword"},
      "location":   {"type": "geo_point"},
      "polygon":    {"type": "geo_shape"}
    }
  }
}`

// IndexExists reports whether city has an index.
func (c *Client) IndexExists(ctx context.Context, city string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Indices.Exists([]string{city}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, model.NewGatewayError(model.StoreElasticsearch, "index exists", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, model.NewGatewayError(model.StoreElasticsearch, "index exists", responseError(res))
	}
}

// CreateIndex creates the city's index with the document mapping. When the
// index exists it logs a warning and returns false if ignoreIfExists is set,
// and ErrIndexExists otherwise.
func (c *Client) CreateIndex(ctx context.Context, city string, ignoreIfExists bool) (bool, error) {
	exists, err := c.IndexExists(ctx, city)
	if err != nil {
		return false, err
	}
	if exists {
		if ignoreIfExists {
			c.log.Warn("index already exists", zap.String("index", city))
			return false, nil
		}
		return false, eris.Wrapf(ErrIndexExists, "docstore: index %q", city)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Indices.Create(city,
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return false, model.NewGatewayError(model.StoreElasticsearch, "create index", err)
	}
	defer res.Body.Close()
	if err := responseError(res); err != nil {
		return false, model.NewGatewayError(model.StoreElasticsearch, "create index", err)
	}

	c.log.Info("created index", zap.String("index", city))
	return true, nil
}

// DeleteIndex removes the city's index. A missing index logs a warning when
// ignoreIfNotExists is set and returns ErrIndexNotFound otherwise.
func (c *Client) DeleteIndex(ctx context.Context, city string, ignoreIfNotExists bool) error {
	exists, err := c.IndexExists(ctx, city)
	if err != nil {
		return err
	}
	if !exists {
		if ignoreIfNotExists {
			c.log.Warn("index does not exist", zap.String("index", city))
			return nil
		}
		return eris.Wrapf(ErrIndexNotFound, "docstore: index %q", city)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Indices.Delete([]string{city}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return model.NewGatewayError(model.StoreElasticsearch, "delete index", err)
	}
	defer res.Body.Close()
	if err := responseError(res); err != nil {
		return model.NewGatewayError(model.StoreElasticsearch, "delete index", err)
	}

	c.log.Info("deleted index", zap.String("index", city))
	return nil
}

// ListIndices returns the names of all indices, system indices included,
// sorted.
func (c *Client) ListIndices(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Indices.GetAlias(
		c.es.Indices.GetAlias.WithIndex("*"),
		c.es.Indices.GetAlias.WithContext(ctx),
	)
	if err != nil {
		return nil, model.NewGatewayError(model.StoreElasticsearch, "list indices", err)
	}
	defer res.Body.Close()
	if err := responseError(res); err != nil {
		return nil, model.NewGatewayError(model.StoreElasticsearch, "list indices", err)
	}

	var aliases map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&aliases); err != nil {
		return nil, model.NewGatewayError(model.StoreElasticsearch, "list indices", eris.Wrap(err, "docstore: decode aliases"))
	}

	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Refresh makes all writes to the city's index visible to search.
func (c *Client) Refresh(ctx context.Context, city string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithIndex(city),
		c.es.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return model.NewGatewayError(model.StoreElasticsearch, "refresh", err)
	}
	defer res.Body.Close()
	return model.NewGatewayError(model.StoreElasticsearch, "refresh", responseError(res))
}

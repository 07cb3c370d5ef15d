package geoindex

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/model"
)

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// scan returns every key matching the glob pattern, without duplicates.
func (c *Client) scan(ctx context.Context, match string) ([]string, error) {
	seen := make(map[string]bool)
	var keys []string
	var cursor uint64
	for {
		page, next, err := c.conn.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, model.NewGatewayError(model.StoreRedis, "scan", err)
		}
		for _, k := range page {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(keys)
	return keys, nil
}

// POIKeys lists the amenity geosets of city, wheelchair variants included.
func (c *Client) POIKeys(ctx context.Context, city string) ([]string, error) {
	keys, err := c.scan(ctx, globEscaper.Replace(city)+"_*"+model.POISuffix)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if _, ok := model.AmenityFromKey(city, k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

// PointCount returns the number of members of a geoset; zero when the key
// does not exist.
func (c *Client) PointCount(ctx context.Context, key string) (int64, error) {
	n, err := c.conn.ZCard(ctx, key).Result()
	if err != nil {
		return 0, model.NewGatewayError(model.StoreRedis, "zcard", err)
	}
	return n, nil
}

// DeleteCityKeys removes every key whose name contains city and returns how
// many were deleted. A name that is a substring of another city's name
// matches that city's keys too.
func (c *Client) DeleteCityKeys(ctx context.Context, city string) (int, error) {
	keys, err := c.scan(ctx, "*"+globEscaper.Replace(city)+"*")
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		c.log.Warn("no keys found for city", zap.String("city", city))
		return 0, nil
	}

	deleted := 0
	for _, b := range c.batches(len(keys)) {
		n, err := c.conn.Del(ctx, keys[b[0]:b[1]]...).Result()
		if err != nil {
			return deleted, model.NewGatewayError(model.StoreRedis, "del", err)
		}
		deleted += int(n)
	}
	c.log.Info("deleted city keys", zap.String("city", city), zap.Int("keys", deleted))
	return deleted, nil
}

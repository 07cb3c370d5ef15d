package geoindex

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/model"
)

// HexCenters returns the cells stored in the city's hexagon geoset. An
// unknown city yields no cells.
func (c *Client) HexCenters(ctx context.Context, city string) ([]model.Cell, error) {
	key := model.HexKey(city)
	members, err := c.conn.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, model.NewGatewayError(model.StoreRedis, "zrange", err)
	}

	cells := make([]model.Cell, 0, len(members))
	for _, b := range c.batches(len(members)) {
		ids := members[b[0]:b[1]]
		pos, err := c.conn.GeoPos(ctx, key, ids...).Result()
		if err != nil {
			return nil, model.NewGatewayError(model.StoreRedis, "geopos", err)
		}
		for i, p := range pos {
			// Members removed between ZRANGE and GEOPOS come back nil.
			if p == nil {
				continue
			}
			cells = append(cells, model.Cell{
				ID:     ids[i],
				Center: model.GeoPoint{Lon: p.Longitude, Lat: p.Latitude},
			})
		}
	}
	return cells, nil
}

// SearchAroundCells runs a radius search on the amenity geoset around each
// hexagon center of city. Every cell is present in the result; its slice
// holds the distances of the matches, nearest first, and is empty when
// nothing is in range.
func (c *Client) SearchAroundCells(ctx context.Context, city, amenity string, q model.RadiusSearch) (map[string][]float64, error) {
	start := time.Now()
	cells, err := c.HexCenters(ctx, city)
	if err != nil {
		return nil, err
	}

	unit := q.Unit
	if unit == "" {
		unit = model.UnitMeters
	}
	key := model.POIKey(city, amenity, false)
	out := make(map[string][]float64, len(cells))

	for _, b := range c.batches(len(cells)) {
		batch := cells[b[0]:b[1]]
		cmds := make([]*redis.GeoSearchLocationCmd, len(batch))
		_, err := c.conn.Pipelined(ctx, func(p redis.Pipeliner) error {
			for i, cell := range batch {
				cmds[i] = p.GeoSearchLocation(ctx, key, &redis.GeoSearchLocationQuery{
					GeoSearchQuery: redis.GeoSearchQuery{
						Longitude:  cell.Center.Lon,
						Latitude:   cell.Center.Lat,
						Radius:     q.Radius,
						RadiusUnit: unit,
						Sort:       "ASC",
						Count:      q.Count,
					},
					WithDist: true,
				})
			}
			return nil
		})
		if err != nil {
			return nil, model.NewGatewayError(model.StoreRedis, "geosearch "+key, err)
		}

		for i, cell := range batch {
			locs, err := cmds[i].Result()
			if err != nil {
				return nil, model.NewGatewayError(model.StoreRedis, "geosearch "+key, err)
			}
			dists := make([]float64, len(locs))
			for j, l := range locs {
				dists[j] = l.Dist
			}
			out[cell.ID] = dists
		}
	}

	c.log.Debug("searched around cells",
		zap.String("key", key),
		zap.Float64("radius", q.Radius),
		zap.Int("count", q.Count),
		zap.Int("cells", len(cells)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

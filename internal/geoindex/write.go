package geoindex

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/model"
)

type geoEntry struct {
	key string
	loc *redis.GeoLocation
}

// AddHexCenters adds the cells to the city's hexagon geoset.
func (c *Client) AddHexCenters(ctx context.Context, city string, cells []model.Cell) error {
	key := model.HexKey(city)
	entries := make([]geoEntry, len(cells))
	for i, cell := range cells {
		entries[i] = geoEntry{key: key, loc: &redis.GeoLocation{
			Name:      cell.ID,
			Longitude: cell.Center.Lon,
			Latitude:  cell.Center.Lat,
		}}
	}
	return c.geoAdd(ctx, "geoadd hexagons", entries)
}

// AddPOIs adds the documents to their per-amenity geosets, or to the
// wheelchair variants when wheelchair is set. Members are document ids.
func (c *Client) AddPOIs(ctx context.Context, city string, docs []model.POIDocument, wheelchair bool) error {
	entries := make([]geoEntry, len(docs))
	for i, d := range docs {
		entries[i] = geoEntry{key: model.POIKey(city, d.Amenity, wheelchair), loc: &redis.GeoLocation{
			Name:      d.ID,
			Longitude: d.Location.Lon,
			Latitude:  d.Location.Lat,
		}}
	}
	op := "geoadd pois"
	if wheelchair {
		op = "geoadd wheelchair pois"
	}
	return c.geoAdd(ctx, op, entries)
}

// geoAdd submits every entry in pipelined batches. Rejected entries are
// logged one by one and reported together once all batches ran. A batch
// that failed as a whole stops the write.
func (c *Client) geoAdd(ctx context.Context, op string, entries []geoEntry) error {
	failed := 0
	for _, b := range c.batches(len(entries)) {
		batch := entries[b[0]:b[1]]
		cmds := make([]*redis.IntCmd, len(batch))
		// Per-command errors are inspected below; the pipeline error is
		// only the first of them.
		_, _ = c.conn.Pipelined(ctx, func(p redis.Pipeliner) error {
			for i, e := range batch {
				cmds[i] = p.GeoAdd(ctx, e.key, e.loc)
			}
			return nil
		})
		if err := ctx.Err(); err != nil {
			return model.NewGatewayError(model.StoreRedis, op, err)
		}

		if err := batchFailure(cmds); err != nil {
			return model.NewGatewayError(model.StoreRedis, op, err)
		}
		for i, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				failed++
				c.log.Warn("geoadd rejected",
					zap.String("key", batch[i].key),
					zap.String("member", batch[i].loc.Name),
					zap.Error(err),
				)
			}
		}
	}

	if failed > 0 {
		return model.NewGatewayError(model.StoreRedis, op, &model.PartialWriteError{Failed: failed, Total: len(entries)})
	}
	c.log.Debug("geoadd complete", zap.String("op", op), zap.Int("members", len(entries)))
	return nil
}

// batchFailure returns the shared error when every command of a batch
// failed the same way without a server reply, which means the connection
// failed rather than the individual members.
func batchFailure(cmds []*redis.IntCmd) error {
	if len(cmds) == 0 {
		return nil
	}
	first := cmds[0].Err()
	var reply redis.Error
	if first == nil || errors.As(first, &reply) {
		return nil
	}
	for _, cmd := range cmds[1:] {
		if err := cmd.Err(); err == nil || err.Error() != first.Error() {
			return nil
		}
	}
	return first
}

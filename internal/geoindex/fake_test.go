package geoindex

import (
	"context"
	"math"
	"path"
	"sort"

	"github.com/redis/go-redis/v9"
)

const earthRadiusMeters = 6372797.560856

// fakeRedis is an in-memory Conn holding geosets.
type fakeRedis struct {
	sets      map[string]map[string]redis.GeoPos
	pageSize  int
	searchErr error
	pingErr   error
	writeErr  error
	pipelines int
}

// replyError is an error returned by the server itself.
type replyError string

func (e replyError) Error() string { return string(e) }
func (replyError) RedisError() {}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{sets: make(map[string]map[string]redis.GeoPos), pageSize: 1000}
}

func (f *fakeRedis) put(key, member string, lon, lat float64) {
	if f.sets[key] == nil {
		f.sets[key] = make(map[string]redis.GeoPos)
	}
	f.sets[key][member] = redis.GeoPos{Longitude: lon, Latitude: lat}
}

func (f *fakeRedis) sortedKeys() []string {
	keys := make([]string, 0, len(f.sets))
	for k := range f.sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeRedis) members(key string) []string {
	out := make([]string, 0, len(f.sets[key]))
	for m := range f.sets[key] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (f *fakeRedis) Ping(_ context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.pingErr)
}

func (f *fakeRedis) Scan(_ context.Context, cursor uint64, match string, _ int64) *redis.ScanCmd {
	all := f.sortedKeys()
	start := int(cursor)
	end := min(start+f.pageSize, len(all))
	var page []string
	for _, k := range all[start:end] {
		if ok, _ := path.Match(match, k); ok {
			page = append(page, k)
		}
	}
	next := uint64(end)
	if end == len(all) {
		next = 0
	}
	return redis.NewScanCmdResult(page, next, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.sets[k]; ok {
			delete(f.sets, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) ZCard(_ context.Context, key string) *redis.IntCmd {
	return redis.NewIntResult(int64(len(f.sets[key])), nil)
}

func (f *fakeRedis) ZRange(_ context.Context, key string, _, _ int64) *redis.StringSliceCmd {
	return redis.NewStringSliceResult(f.members(key), nil)
}

func (f *fakeRedis) GeoPos(_ context.Context, key string, members ...string) *redis.GeoPosCmd {
	out := make([]*redis.GeoPos, len(members))
	for i, m := range members {
		if p, ok := f.sets[key][m]; ok {
			out[i] = &redis.GeoPos{Longitude: p.Longitude, Latitude: p.Latitude}
		}
	}
	return redis.NewGeoPosCmdResult(out, nil)
}

func (f *fakeRedis) Pipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	f.pipelines++
	p := &fakePipe{f: f}
	if err := fn(p); err != nil {
		return nil, err
	}
	var first error
	for _, c := range p.cmds {
		if c.Err() != nil && first == nil {
			first = c.Err()
		}
	}
	return p.cmds, first
}

// fakePipe executes commands immediately. Only the methods the gateway uses
// are implemented; anything else panics on the nil embedded interface.
type fakePipe struct {
	redis.Pipeliner
	f    *fakeRedis
	cmds []redis.Cmder
}

func (p *fakePipe) GeoAdd(_ context.Context, key string, locs ...*redis.GeoLocation) *redis.IntCmd {
	var added int64
	var err error
	if p.f.writeErr != nil {
		cmd := redis.NewIntResult(0, p.f.writeErr)
		p.cmds = append(p.cmds, cmd)
		return cmd
	}
	for _, l := range locs {
		if l.Latitude > 85.05112878 || l.Latitude < -85.05112878 || l.Longitude > 180 || l.Longitude < -180 {
			err = replyError("ERR invalid longitude,latitude pair")
			continue
		}
		if _, ok := p.f.sets[key][l.Name]; !ok {
			added++
		}
		p.f.put(key, l.Name, l.Longitude, l.Latitude)
	}
	cmd := redis.NewIntResult(added, err)
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipe) GeoSearchLocation(ctx context.Context, key string, q *redis.GeoSearchLocationQuery) *redis.GeoSearchLocationCmd {
	cmd := redis.NewGeoSearchLocationCmd(ctx, q)
	p.cmds = append(p.cmds, cmd)
	if p.f.searchErr != nil {
		cmd.SetErr(p.f.searchErr)
		return cmd
	}

	var locs []redis.GeoLocation
	for member, pos := range p.f.sets[key] {
		d := haversine(q.Longitude, q.Latitude, pos.Longitude, pos.Latitude)
		if d <= q.Radius {
			locs = append(locs, redis.GeoLocation{Name: member, Longitude: pos.Longitude, Latitude: pos.Latitude, Dist: d})
		}
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].Dist < locs[j].Dist })
	if q.Count > 0 && len(locs) > q.Count {
		locs = locs[:q.Count]
	}
	cmd.SetVal(locs)
	return cmd
}

func haversine(lon1, lat1, lon2, lat2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

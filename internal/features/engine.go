package features

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sucolo/hexfeat/internal/model"
)

// SpatialIndex runs a radius search around every cell center of a city and
// returns, per cell id, the distances of the matches ordered nearest first.
type SpatialIndex interface {
	SearchAroundCells(ctx context.Context, city, amenity string, q model.RadiusSearch) (map[string][]float64, error)
}

// AttributeStore reads hex-center documents. With onlyLocation set the
// projection is the cell id and location; otherwise it is the cell id and
// the given columns.
type AttributeStore interface {
	HexCenters(ctx context.Context, city string, columns []string, onlyLocation bool) ([]model.HexCenterDocument, error)
}

// CityChecker confirms that a city exists.
type CityChecker interface {
	CityExists(ctx context.Context, city string) (bool, error)
}

// Engine computes feature tables. It issues one gateway call per amenity
// sub-query plus one for all static columns, and joins the results on the
// cell id.
type Engine struct {
	spatial     SpatialIndex
	attrs       AttributeStore
	cities      CityChecker
	parallelism int
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallelism lets up to n sub-queries run concurrently. Values below
// 2 keep the sequential default. Output does not depend on n.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallelism = n }
}

// NewEngine creates an Engine over the given collaborators.
func NewEngine(spatial SpatialIndex, attrs AttributeStore, cities CityChecker, opts ...Option) *Engine {
	e := &Engine{spatial: spatial, attrs: attrs, cities: cities, parallelism: 1}
	for _, o := range opts {
		o(e)
	}
	return e
}

// partial is the output of one task: one or more columns keyed by cell id.
type partial struct {
	names   []string
	columns []map[string]model.Value
}

// Compute runs every sub-query of req and merges the results into a table
// whose rows are all cells of the city.
func (e *Engine) Compute(ctx context.Context, req *FeatureRequest) (*Table, error) {
	city := req.City()
	log := zap.L().With(zap.String("component", "features.engine"), zap.String("city", city))

	exists, err := e.cities.CityExists(ctx, city)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, eris.Wrapf(model.ErrCityNotFound, "city %q", city)
	}

	cells, err := e.attrs.HexCenters(ctx, city, nil, true)
	if err != nil {
		return nil, err
	}
	table := NewTable(cellIndex(cells))

	tasks, results := e.plan(city, req, log)
	if err := e.run(ctx, tasks); err != nil {
		return nil, err
	}

	for _, p := range results {
		for i, name := range p.names {
			if err := table.Join(name, p.columns[i]); err != nil {
				return nil, err
			}
		}
	}

	log.Info("computed features",
		zap.Int("cells", table.Len()),
		zap.Strings("columns", table.ColumnNames()),
	)
	return table, nil
}

// plan builds one task per gateway call. Each task writes only its own slot
// of the returned results, which are in declaration order.
func (e *Engine) plan(city string, req *FeatureRequest, log *zap.Logger) ([]func(context.Context) error, []*partial) {
	var tasks []func(context.Context) error
	var results []*partial
	var static []string

	for _, sq := range req.subQueries() {
		if sq.kind == "" {
			static = append(static, sq.column)
			continue
		}
		p := &partial{}
		results = append(results, p)
		tasks = append(tasks, func(ctx context.Context) error {
			col, err := e.amenityColumn(ctx, city, sq, log)
			if err != nil {
				return err
			}
			p.names = []string{sq.column}
			p.columns = []map[string]model.Value{col}
			return nil
		})
	}

	if len(static) > 0 {
		p := &partial{}
		results = append(results, p)
		tasks = append(tasks, func(ctx context.Context) error {
			names, cols, err := e.staticColumns(ctx, city, static, log)
			if err != nil {
				return err
			}
			p.names = names
			p.columns = cols
			return nil
		})
	}
	return tasks, results
}

func (e *Engine) run(ctx context.Context, tasks []func(context.Context) error) error {
	if e.parallelism < 2 {
		for _, task := range tasks {
			if err := task(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for _, task := range tasks {
		g.Go(func() error { return task(gctx) })
	}
	return g.Wait()
}

func (e *Engine) amenityColumn(ctx context.Context, city string, sq subQuery, log *zap.Logger) (map[string]model.Value, error) {
	search := model.RadiusSearch{Radius: float64(sq.amenity.Radius), Unit: model.UnitMeters}
	if sq.kind == KindNearest {
		search.Count = 1
	}

	start := time.Now()
	found, err := e.spatial.SearchAroundCells(ctx, city, sq.amenity.Amenity, search)
	if err != nil {
		return nil, err
	}

	col := make(map[string]model.Value, len(found))
	for cellID, distances := range found {
		col[cellID] = valueFor(sq.kind, sq.amenity, distances)
	}

	log.Debug("computed amenity feature",
		zap.String("column", sq.column),
		zap.Int("radius", sq.amenity.Radius),
		zap.Int("cells", len(col)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return col, nil
}

// staticColumns reads the requested attributes from the hex-center
// documents. Administrative fields are not attributes and are skipped.
func (e *Engine) staticColumns(ctx context.Context, city string, requested []string, log *zap.Logger) ([]string, []map[string]model.Value, error) {
	var names []string
	for _, c := range requested {
		if model.IsHexCenterAdminColumn(c) {
			log.Warn("skipping administrative field requested as static column", zap.String("column", c))
			continue
		}
		names = append(names, c)
	}
	if len(names) == 0 {
		return nil, nil, nil
	}

	docs, err := e.attrs.HexCenters(ctx, city, names, false)
	if err != nil {
		return nil, nil, err
	}

	cols := make([]map[string]model.Value, len(names))
	for i, name := range names {
		col := make(map[string]model.Value, len(docs))
		missing := 0
		for _, d := range docs {
			v, ok := d.Attributes[name]
			if !ok || v.IsNull() {
				missing++
				continue
			}
			col[d.HexID] = v
		}
		if missing > 0 {
			log.Warn("static column is null for some cells",
				zap.String("column", name),
				zap.Int("null_cells", missing),
				zap.Int("cells", len(docs)),
			)
		}
		cols[i] = col
	}
	return names, cols, nil
}

func cellIndex(cells []model.HexCenterDocument) []string {
	seen := make(map[string]bool, len(cells))
	ids := make([]string, 0, len(cells))
	for _, c := range cells {
		if seen[c.HexID] {
			continue
		}
		seen[c.HexID] = true
		ids = append(ids, c.HexID)
	}
	sort.Strings(ids)
	return ids
}

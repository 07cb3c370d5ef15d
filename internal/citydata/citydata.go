// Package citydata uploads and deletes the data of a city across the
// document store and the point store.
package citydata

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/hexgrid"
	"github.com/sucolo/hexfeat/internal/model"
)

// DocumentStore is the document-store side of uploads and deletes.
type DocumentStore interface {
	CreateIndex(ctx context.Context, city string, ignoreIfExists bool) (bool, error)
	DeleteIndex(ctx context.Context, city string, ignoreIfNotExists bool) error
	IndexExists(ctx context.Context, city string) (bool, error)
	IndexPOIs(ctx context.Context, city string, docs []model.POIDocument) error
	IndexDistricts(ctx context.Context, city string, docs []model.DistrictDocument) error
	IndexHexCenters(ctx context.Context, city string, docs []model.HexCenterDocument) error
	Refresh(ctx context.Context, city string) error
}

// PointStore is the geospatial side of uploads and deletes.
type PointStore interface {
	AddHexCenters(ctx context.Context, city string, cells []model.Cell) error
	AddPOIs(ctx context.Context, city string, docs []model.POIDocument, wheelchair bool) error
	DeleteCityKeys(ctx context.Context, city string) (int, error)
}

// Upload step names, in execution order.
const (
	StepCreateIndex      = "create_index"
	StepIndexPOIs        = "index_pois"
	StepIndexDistricts   = "index_districts"
	StepIndexHexCenters  = "index_hex_centers"
	StepAddHexCenters    = "add_hex_centers"
	StepAddPOIs          = "add_pois"
	StepAddWheelchairPOI = "add_wheelchair_pois"
)

// Dataset is everything uploaded for one city.
type Dataset struct {
	POIs      []model.POI
	Districts []model.District
}

// UploadOptions tunes UploadCity.
type UploadOptions struct {
	// Resolution of the hexagon grid; zero means hexgrid.DefaultResolution.
	Resolution     int
	IgnoreIfExists bool
	// WheelchairValues are the wheelchair tags counted as accessible;
	// empty means ["yes"].
	WheelchairValues []string
}

// StepResult records one executed step.
type StepResult struct {
	Name     string
	Items    int
	Duration time.Duration
}

// Report summarizes an upload.
type Report struct {
	City  string
	Steps []StepResult
	Cells int
}

// Service uploads and deletes city data.
type Service struct {
	docs   DocumentStore
	points PointStore
}

// New creates a Service.
func New(docs DocumentStore, points PointStore) *Service {
	return &Service{docs: docs, points: points}
}

type runner struct {
	log    *zap.Logger
	report *Report
}

// step runs fn and records it. A failure is annotated with the step name.
func (r *runner) step(name string, items int, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if err != nil {
		r.log.Error("citydata: step failed",
			zap.String("step", name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return eris.Wrapf(err, "citydata: %s", name)
	}
	r.log.Info("citydata: step complete",
		zap.String("step", name),
		zap.Int("items", items),
		zap.Duration("elapsed", elapsed),
	)
	r.report.Steps = append(r.report.Steps, StepResult{Name: name, Items: items, Duration: elapsed})
	return nil
}

// UploadCity writes a full dataset for city in a fixed order: index, POI
// documents, district documents, hex-center documents, hexagon point set,
// POI point sets, wheelchair point sets. The first failing step stops the
// upload; earlier steps are not rolled back.
func (s *Service) UploadCity(ctx context.Context, city string, data Dataset, opts UploadOptions) (*Report, error) {
	city = model.NormalizeCity(city)
	if city == "" {
		return nil, eris.New("citydata: city name is empty")
	}
	resolution := opts.Resolution
	if resolution == 0 {
		resolution = hexgrid.DefaultResolution
	}

	r := &runner{
		log:    zap.L().With(zap.String("component", "citydata"), zap.String("city", city)),
		report: &Report{City: city},
	}
	r.log.Info("citydata: starting upload",
		zap.Int("pois", len(data.POIs)),
		zap.Int("districts", len(data.Districts)),
		zap.Int("resolution", resolution),
	)

	err := r.step(StepCreateIndex, 1, func() error {
		created, err := s.docs.CreateIndex(ctx, city, opts.IgnoreIfExists)
		if err == nil && !created {
			r.log.Warn("citydata: index already exists, continuing")
		}
		return err
	})
	if err != nil {
		return r.report, err
	}

	poiDocs := poiDocuments(city, data.POIs)
	if err := r.step(StepIndexPOIs, len(poiDocs), func() error {
		return s.docs.IndexPOIs(ctx, city, poiDocs)
	}); err != nil {
		return r.report, err
	}

	districtDocs, err := districtDocuments(data.Districts)
	if err != nil {
		return r.report, eris.Wrapf(err, "citydata: %s", StepIndexDistricts)
	}
	if err := r.step(StepIndexDistricts, len(districtDocs), func() error {
		return s.docs.IndexDistricts(ctx, city, districtDocs)
	}); err != nil {
		return r.report, err
	}

	grid, err := hexgrid.Materialize(data.Districts, resolution)
	if err != nil {
		return r.report, eris.Wrapf(err, "citydata: %s", StepIndexHexCenters)
	}
	cells, hexDocs := hexCenterDocuments(data.Districts, grid)
	r.report.Cells = len(cells)
	if err := r.step(StepIndexHexCenters, len(hexDocs), func() error {
		return s.docs.IndexHexCenters(ctx, city, hexDocs)
	}); err != nil {
		return r.report, err
	}

	if err := r.step(StepAddHexCenters, len(cells), func() error {
		return s.points.AddHexCenters(ctx, city, cells)
	}); err != nil {
		return r.report, err
	}

	if err := s.addPoints(ctx, r, city, poiDocs, data.POIs, opts.WheelchairValues); err != nil {
		return r.report, err
	}

	if err := s.docs.Refresh(ctx, city); err != nil {
		r.log.Warn("citydata: refresh failed", zap.Error(err))
	}
	r.log.Info("citydata: upload complete", zap.Int("cells", r.report.Cells))
	return r.report, nil
}

// UploadPOIs appends POIs to an existing city: documents first, then both
// point-set passes.
func (s *Service) UploadPOIs(ctx context.Context, city string, pois []model.POI, wheelchairValues []string) (*Report, error) {
	city = model.NormalizeCity(city)
	exists, err := s.docs.IndexExists(ctx, city)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, eris.Wrapf(model.ErrCityNotFound, "city %q", city)
	}

	r := &runner{
		log:    zap.L().With(zap.String("component", "citydata"), zap.String("city", city)),
		report: &Report{City: city},
	}

	poiDocs := poiDocuments(city, pois)
	if err := r.step(StepIndexPOIs, len(poiDocs), func() error {
		return s.docs.IndexPOIs(ctx, city, poiDocs)
	}); err != nil {
		return r.report, err
	}
	if err := s.addPoints(ctx, r, city, poiDocs, pois, wheelchairValues); err != nil {
		return r.report, err
	}

	if err := s.docs.Refresh(ctx, city); err != nil {
		r.log.Warn("citydata: refresh failed", zap.Error(err))
	}
	return r.report, nil
}

// addPoints runs the POI and the wheelchair point-set passes. docs and
// pois are parallel slices.
func (s *Service) addPoints(ctx context.Context, r *runner, city string, docs []model.POIDocument, pois []model.POI, wheelchairValues []string) error {
	if err := r.step(StepAddPOIs, len(docs), func() error {
		return s.points.AddPOIs(ctx, city, docs, false)
	}); err != nil {
		return err
	}

	if len(wheelchairValues) == 0 {
		wheelchairValues = []string{"yes"}
	}
	var accessible []model.POIDocument
	for i, p := range pois {
		if p.WheelchairAccessible(wheelchairValues) {
			accessible = append(accessible, docs[i])
		}
	}
	return r.step(StepAddWheelchairPOI, len(accessible), func() error {
		if len(accessible) == 0 {
			return nil
		}
		return s.points.AddPOIs(ctx, city, accessible, true)
	})
}

// DeleteCity drops the city's index and every point set whose key contains
// the city name.
func (s *Service) DeleteCity(ctx context.Context, city string, ignoreIfNotExists bool) error {
	city = model.NormalizeCity(city)
	if city == "" {
		return eris.New("citydata: city name is empty")
	}
	log := zap.L().With(zap.String("component", "citydata"), zap.String("city", city))

	if err := s.docs.DeleteIndex(ctx, city, ignoreIfNotExists); err != nil {
		return eris.Wrap(err, "citydata: delete index")
	}
	n, err := s.points.DeleteCityKeys(ctx, city)
	if err != nil {
		return eris.Wrap(err, "citydata: delete point sets")
	}
	log.Info("citydata: city deleted", zap.Int("keys", n))
	return nil
}

func poiDocuments(city string, pois []model.POI) []model.POIDocument {
	docs := make([]model.POIDocument, len(pois))
	for i, p := range pois {
		docs[i] = model.NewPOIDocument(city, p)
	}
	return docs
}

func districtDocuments(districts []model.District) ([]model.DistrictDocument, error) {
	docs := make([]model.DistrictDocument, 0, len(districts))
	for _, d := range districts {
		if d.Polygon == nil {
			return nil, eris.Errorf("citydata: district %q has no polygon", d.Name)
		}
		text, err := wkt.Marshal(d.Polygon)
		if err != nil {
			return nil, eris.Wrapf(err, "citydata: encode polygon of %q", d.Name)
		}
		docs = append(docs, model.DistrictDocument{
			Name:       d.Name,
			PolygonWKT: text,
			Attributes: d.Attributes,
		})
	}
	return docs, nil
}

// hexCenterDocuments gives every cell the attributes of the district that
// claimed it, plus the district name. grid is aligned with districts.
func hexCenterDocuments(districts []model.District, grid []model.DistrictCells) ([]model.Cell, []model.HexCenterDocument) {
	var cells []model.Cell
	var docs []model.HexCenterDocument
	for i, dc := range grid {
		attrs := make(map[string]model.Value, len(districts[i].Attributes)+1)
		for k, v := range districts[i].Attributes {
			attrs[k] = v
		}
		attrs[model.FieldDistrict] = model.String(dc.District)

		for _, c := range dc.Cells {
			loc := c.Center
			cells = append(cells, c)
			docs = append(docs, model.HexCenterDocument{
				HexID:      c.ID,
				Location:   &loc,
				Attributes: attrs,
			})
		}
	}
	return cells, docs
}

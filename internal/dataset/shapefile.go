package dataset

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/model"
)

type shapeRecord struct {
	shape shp.Shape
	props map[string]model.Value
}

// readShapefile returns every record with its attributes. Numeric-looking
// attribute values become numbers, blanks become null.
func readShapefile(path string) ([]shapeRecord, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	var records []shapeRecord
	for reader.Next() {
		_, shape := reader.Shape()
		props := make(map[string]model.Value, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			props[name] = fieldValue(name, val)
		}
		records = append(records, shapeRecord{shape: shape, props: props})
	}
	return records, nil
}

func districtsFromShapefile(path, nameField string) ([]model.District, error) {
	records, err := readShapefile(path)
	if err != nil {
		return nil, err
	}

	var out []model.District
	skipped := 0
	for _, r := range records {
		poly, ok := r.shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}
		name, ok := r.props[nameField]
		if !ok || name.IsNull() {
			return nil, eris.Errorf("dataset: %s: record without %q", path, nameField)
		}
		out = append(out, model.District{
			Name:       name.String(),
			Polygon:    mp,
			Attributes: districtAttributes(r.props, nameField),
		})
	}

	if skipped > 0 {
		zap.L().Warn("dataset: skipped non-polygon shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

func poisFromShapefile(path string) ([]model.POI, error) {
	records, err := readShapefile(path)
	if err != nil {
		return nil, err
	}

	var out []model.POI
	skipped := 0
	for _, r := range records {
		pt, ok := r.shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}
		p, ok := poiFromProps(r.props, model.GeoPoint{Lon: pt.X, Lat: pt.Y})
		if !ok {
			skipped++
			continue
		}
		out = append(out, p)
	}

	if skipped > 0 {
		zap.L().Warn("dataset: skipped shapefile POI records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

// polygonToMultiPolygon converts a shapefile polygon. Clockwise rings start
// a new polygon; counter-clockwise rings are holes of the polygon before
// them.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon

	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("dataset: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if signedArea(flat) < 0 || current == nil {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(ring); err != nil {
			zap.L().Debug("dataset: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is negative for clockwise rings.
func signedArea(flat []float64) float64 {
	var sum float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return sum / 2
}

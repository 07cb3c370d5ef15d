package dataset

import (
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/model"
)

func readFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()
	return ReadFeatureCollection(f)
}

// ReadFeatureCollection decodes a GeoJSON FeatureCollection.
func ReadFeatureCollection(r io.Reader) (*geojson.FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read geojson")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: decode geojson")
	}
	return fc, nil
}

// featureProps converts scalar properties. Nested objects and arrays are
// dropped.
func featureProps(f *geojson.Feature) map[string]model.Value {
	props := make(map[string]model.Value, len(f.Properties))
	for k, raw := range f.Properties {
		v, err := model.ValueOf(raw)
		if err != nil {
			zap.L().Debug("dataset: dropping non-scalar property", zap.String("property", k))
			continue
		}
		props[k] = v
	}
	return props
}

func districtsFromGeoJSONFile(path, nameField string) ([]model.District, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	return DistrictsFromGeoJSON(fc, nameField)
}

// DistrictsFromGeoJSON converts Polygon and MultiPolygon features into
// districts. Other geometries are skipped.
func DistrictsFromGeoJSON(fc *geojson.FeatureCollection, nameField string) ([]model.District, error) {
	if nameField == "" {
		nameField = DefaultDistrictField
	}

	var out []model.District
	skipped := 0
	for i, f := range fc.Features {
		var mp *geom.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = toMultiPolygon(orb.MultiPolygon{g})
		case orb.MultiPolygon:
			mp = toMultiPolygon(g)
		}
		if mp == nil {
			skipped++
			continue
		}

		props := featureProps(f)
		name, ok := props[nameField]
		if !ok || name.IsNull() {
			return nil, eris.Errorf("dataset: feature %d has no %q property", i, nameField)
		}
		out = append(out, model.District{
			Name:       name.String(),
			Polygon:    mp,
			Attributes: districtAttributes(props, nameField),
		})
	}

	if skipped > 0 {
		zap.L().Warn("dataset: skipped non-polygon features", zap.Int("skipped", skipped))
	}
	return out, nil
}

func poisFromGeoJSONFile(path string) ([]model.POI, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	return POIsFromGeoJSON(fc), nil
}

// POIsFromGeoJSON converts Point features carrying an amenity property.
// The feature id is used as source id unless an "id" property is present.
func POIsFromGeoJSON(fc *geojson.FeatureCollection) []model.POI {
	var out []model.POI
	skipped := 0
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			skipped++
			continue
		}
		p, ok := poiFromProps(featureProps(f), model.GeoPoint{Lon: pt.Lon(), Lat: pt.Lat()})
		if !ok {
			skipped++
			continue
		}
		if p.SourceID == "" && f.ID != nil {
			p.SourceID = fmt.Sprint(f.ID)
		}
		out = append(out, p)
	}

	if skipped > 0 {
		zap.L().Warn("dataset: skipped POI features", zap.Int("skipped", skipped))
	}
	return out
}

func toMultiPolygon(mp orb.MultiPolygon) *geom.MultiPolygon {
	out := geom.NewMultiPolygon(geom.XY)
	for _, poly := range mp {
		p := geom.NewPolygon(geom.XY)
		for _, ring := range poly {
			flat := make([]float64, 0, 2*len(ring))
			for _, pt := range ring {
				flat = append(flat, pt.Lon(), pt.Lat())
			}
			if err := p.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
				zap.L().Debug("dataset: skipping malformed ring", zap.Error(err))
			}
		}
		if p.NumLinearRings() == 0 {
			continue
		}
		if err := out.Push(p); err != nil {
			zap.L().Debug("dataset: skipping malformed polygon", zap.Error(err))
		}
	}
	if out.NumPolygons() == 0 {
		return nil
	}
	return out
}

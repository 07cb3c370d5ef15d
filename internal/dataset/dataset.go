// Package dataset loads district polygons and POIs from Shapefile, GeoJSON
// and CSV sources.
package dataset

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sucolo/hexfeat/internal/model"
)

// DefaultDistrictField names the property holding a district's name.
const DefaultDistrictField = model.FieldDistrict

// Property names recognized on POI records. Everything else becomes an
// extra attribute.
const (
	PropID         = "id"
	PropAmenity    = model.FieldAmenity
	PropName       = model.FieldName
	PropWheelchair = model.FieldWheelchair
	PropLon        = "lon"
	PropLat        = "lat"
)

// LoadDistricts reads districts from a .shp, .geojson or .json file.
// nameField is the property holding the district name; empty means
// DefaultDistrictField.
func LoadDistricts(path, nameField string) ([]model.District, error) {
	if nameField == "" {
		nameField = DefaultDistrictField
	}
	switch ext(path) {
	case ".shp":
		return districtsFromShapefile(path, nameField)
	case ".geojson", ".json":
		return districtsFromGeoJSONFile(path, nameField)
	default:
		return nil, eris.Errorf("dataset: unsupported district file %s", path)
	}
}

// LoadPOIs reads POIs from a .shp, .geojson, .json or .csv file.
func LoadPOIs(ctx context.Context, path string) ([]model.POI, error) {
	switch ext(path) {
	case ".shp":
		return poisFromShapefile(path)
	case ".geojson", ".json":
		return poisFromGeoJSONFile(path)
	case ".csv":
		return poisFromCSVFile(ctx, path)
	default:
		return nil, eris.Errorf("dataset: unsupported POI file %s", path)
	}
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// poiFromProps builds a POI from flat string properties. ok is false when
// the record has no amenity.
func poiFromProps(props map[string]model.Value, loc model.GeoPoint) (model.POI, bool) {
	p := model.POI{Location: loc}
	for k, v := range props {
		switch strings.ToLower(k) {
		case PropAmenity:
			p.Amenity = v.String()
		case PropName:
			p.Name = v.String()
		case PropWheelchair:
			p.Wheelchair = v.String()
		case PropID:
			p.SourceID = v.String()
		case PropLon, PropLat, model.FieldType, model.FieldPOIID, model.FieldLocation:
		default:
			if v.IsNull() {
				continue
			}
			if p.Extra == nil {
				p.Extra = make(map[string]model.Value)
			}
			p.Extra[k] = v
		}
	}
	p.Amenity = strings.TrimSpace(p.Amenity)
	return p, p.Amenity != ""
}

// fieldValue interprets a raw text attribute. Identifying fields stay
// strings so ids like "007" survive; other fields are parsed as numbers
// when possible.
func fieldValue(field, raw string) model.Value {
	switch strings.ToLower(field) {
	case PropID, PropAmenity, PropName, PropWheelchair, model.FieldDistrict:
		if raw == "" {
			return model.Null()
		}
		return model.String(raw)
	default:
		return model.ParseValue(raw)
	}
}

// districtAttributes drops the name and the reserved fields from props.
func districtAttributes(props map[string]model.Value, nameField string) map[string]model.Value {
	attrs := make(map[string]model.Value, len(props))
	for k, v := range props {
		if k == nameField || model.IsDistrictAdminColumn(k) || model.IsHexCenterAdminColumn(k) {
			continue
		}
		attrs[k] = v
	}
	return attrs
}

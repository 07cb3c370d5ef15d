package model

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Document type discriminators stored in the `type` field.
const (
	DocTypePOI       = "poi"
	DocTypeDistrict  = "district"
	DocTypeHexCenter = "hex_center"
)

// Document field names.
const (
	FieldType       = "type"
	FieldLocation   = "location"
	FieldPolygon    = "polygon"
	FieldHexID      = "hex_id"
	FieldDistrict   = "district"
	FieldPOIID      = "poi_id"
	FieldAmenity    = "amenity"
	FieldName       = "name"
	FieldWheelchair = "wheelchair"
)

// Administrative columns are never reported as attributes.
var (
	DistrictAdminColumns  = []string{FieldType, FieldDistrict, FieldPolygon}
	HexCenterAdminColumns = []string{FieldType, FieldHexID, FieldLocation}
	POIAdminColumns       = []string{FieldType, FieldPOIID, FieldAmenity, FieldName, FieldLocation, FieldWheelchair}
)

var poiNamespace = uuid.MustParse("6f1c8a52-5a0b-4c61-9a3e-2d7f0d1b9e44")

// Document is one of POIDocument, DistrictDocument or HexCenterDocument.
type Document interface {
	DocType() string
	DocID() string
	Source() map[string]any
}

// POIDocument is the stored form of a POI.
type POIDocument struct {
	ID         string
	Amenity    string
	Name       string
	Location   GeoPoint
	Wheelchair string
	Extra      map[string]Value
}

// DistrictDocument is the stored form of a district.
type DistrictDocument struct {
	Name       string
	PolygonWKT string
	Attributes map[string]Value
}

// HexCenterDocument is the stored form of a cell. Location is nil when the
// query projected it away.
type HexCenterDocument struct {
	HexID      string
	Location   *GeoPoint
	Attributes map[string]Value
}

func (POIDocument) DocType() string       { return DocTypePOI }
func (DistrictDocument) DocType() string  { return DocTypeDistrict }
func (HexCenterDocument) DocType() string { return DocTypeHexCenter }

func (d POIDocument) DocID() string       { return d.ID }
func (d DistrictDocument) DocID() string  { return d.Name }
func (d HexCenterDocument) DocID() string { return d.HexID }

// Source renders the document body.
func (d POIDocument) Source() map[string]any {
	src := attributeSource(d.Extra, POIAdminColumns)
	src[FieldType] = DocTypePOI
	src[FieldPOIID] = d.ID
	src[FieldAmenity] = d.Amenity
	src[FieldLocation] = d.Location
	if d.Name != "" {
		src[FieldName] = d.Name
	}
	if d.Wheelchair != "" {
		src[FieldWheelchair] = d.Wheelchair
	}
	return src
}

// Source renders the document body.
func (d DistrictDocument) Source() map[string]any {
	src := attributeSource(d.Attributes, DistrictAdminColumns)
	src[FieldType] = DocTypeDistrict
	src[FieldDistrict] = d.Name
	src[FieldPolygon] = d.PolygonWKT
	return src
}

// Source renders the document body.
func (d HexCenterDocument) Source() map[string]any {
	src := attributeSource(d.Attributes, HexCenterAdminColumns)
	src[FieldType] = DocTypeHexCenter
	src[FieldHexID] = d.HexID
	if d.Location != nil {
		src[FieldLocation] = *d.Location
	}
	return src
}

func attributeSource(attrs map[string]Value, admin []string) map[string]any {
	src := make(map[string]any, len(attrs)+len(admin))
	for k, v := range attrs {
		if isAdmin(k, admin) {
			continue
		}
		src[k] = v.Raw()
	}
	return src
}

func isAdmin(field string, admin []string) bool {
	for _, a := range admin {
		if a == field {
			return true
		}
	}
	return false
}

// IsHexCenterAdminColumn reports whether field is reserved on hex centers.
func IsHexCenterAdminColumn(field string) bool {
	return isAdmin(field, HexCenterAdminColumns)
}

// IsDistrictAdminColumn reports whether field is reserved on districts.
func IsDistrictAdminColumn(field string) bool {
	return isAdmin(field, DistrictAdminColumns)
}

// NewPOIDocument builds the stored form of p. The id is derived from the
// city and the POI's content so uploading the same dataset twice
// overwrites instead of duplicating.
func NewPOIDocument(city string, p POI) POIDocument {
	return POIDocument{
		ID:         POIDocumentID(city, p),
		Amenity:    p.Amenity,
		Name:       p.Name,
		Location:   p.Location,
		Wheelchair: p.Wheelchair,
		Extra:      p.Extra,
	}
}

// POIDocumentID returns the deterministic id of p within city.
func POIDocumentID(city string, p POI) string {
	name := fmt.Sprintf("%s|%s|%s|%s|%s", city, p.Amenity, p.SourceID,
		strconv.FormatFloat(p.Location.Lon, 'f', 7, 64),
		strconv.FormatFloat(p.Location.Lat, 'f', 7, 64))
	return uuid.NewSHA1(poiNamespace, []byte(name)).String()
}

// DecodeDocument turns a raw `_source` into its typed document, dispatching
// on the `type` field.
func DecodeDocument(id string, src map[string]any) (Document, error) {
	typ, _ := src[FieldType].(string)
	switch typ {
	case DocTypePOI:
		loc, err := decodeLocation(src[FieldLocation])
		if err != nil {
			return nil, err
		}
		doc := POIDocument{ID: stringField(src, FieldPOIID, id), Amenity: stringField(src, FieldAmenity, "")}
		doc.Name = stringField(src, FieldName, "")
		doc.Wheelchair = stringField(src, FieldWheelchair, "")
		if loc != nil {
			doc.Location = *loc
		}
		doc.Extra, err = decodeAttributes(src, POIAdminColumns)
		if err != nil {
			return nil, err
		}
		return doc, nil
	case DocTypeDistrict:
		attrs, err := decodeAttributes(src, DistrictAdminColumns)
		if err != nil {
			return nil, err
		}
		return DistrictDocument{
			Name:       stringField(src, FieldDistrict, id),
			PolygonWKT: stringField(src, FieldPolygon, ""),
			Attributes: attrs,
		}, nil
	case DocTypeHexCenter:
		loc, err := decodeLocation(src[FieldLocation])
		if err != nil {
			return nil, err
		}
		attrs, err := decodeAttributes(src, HexCenterAdminColumns)
		if err != nil {
			return nil, err
		}
		return HexCenterDocument{
			HexID:      stringField(src, FieldHexID, id),
			Location:   loc,
			Attributes: attrs,
		}, nil
	default:
		return nil, eris.Errorf("model: document %q has unknown type %q", id, typ)
	}
}

func stringField(src map[string]any, field, fallback string) string {
	if s, ok := src[field].(string); ok && s != "" {
		return s
	}
	return fallback
}

func decodeLocation(raw any) (*GeoPoint, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, eris.Errorf("model: unsupported location encoding %T", raw)
	}
	lon, okLon := toFloat(m["lon"])
	lat, okLat := toFloat(m["lat"])
	if !okLon || !okLat {
		return nil, eris.New("model: location is missing lon/lat")
	}
	return &GeoPoint{Lon: lon, Lat: lat}, nil
}

func toFloat(raw any) (float64, bool) {
	v, err := ValueOf(raw)
	if err != nil {
		return 0, false
	}
	return v.Float()
}

func decodeAttributes(src map[string]any, admin []string) (map[string]Value, error) {
	attrs := make(map[string]Value, len(src))
	for k, raw := range src {
		if isAdmin(k, admin) {
			continue
		}
		v, err := ValueOf(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "model: attribute %q", k)
		}
		attrs[k] = v
	}
	return attrs, nil
}

// AttributeNames returns the sorted keys of attrs.
func AttributeNames(attrs map[string]Value) []string {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Package model holds the domain types shared by the gateways, the feature
// engine and the data management service.
package model

import (
	"github.com/twpayne/go-geom"
)

// GeoPoint is a WGS84 coordinate in the shape Elasticsearch expects for
// geo_point fields.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Cell is one hexagon of the grid covering a city.
type Cell struct {
	ID     string   `json:"hex_id"`
	Center GeoPoint `json:"location"`
}

// DistrictCells groups the cells materialized for a single district.
type DistrictCells struct {
	District string
	Cells    []Cell
}

// District is an administrative area with static attributes that are
// propagated onto every cell it covers.
type District struct {
	Name       string
	Polygon    *geom.MultiPolygon
	Attributes map[string]Value
}

// POI is a point of interest tagged with an amenity type.
type POI struct {
	// SourceID is the identifier in the source dataset (e.g. an OSM id).
	// Optional; it only feeds the deterministic document id.
	SourceID   string
	Amenity    string
	Name       string
	Location   GeoPoint
	Wheelchair string
	Extra      map[string]Value
}

// WheelchairAccessible reports whether the POI's wheelchair tag is one of
// the accepted positive values.
func (p POI) WheelchairAccessible(positive []string) bool {
	if p.Wheelchair == "" {
		return false
	}
	for _, v := range positive {
		if p.Wheelchair == v {
			return true
		}
	}
	return false
}

// Package hexgrid covers district polygons with H3 cells.
package hexgrid

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/uber/h3-go/v4"

	"github.com/sucolo/hexfeat/internal/model"
)

// Resolution bounds supported by H3.
const (
	MinResolution     = 0
	MaxResolution     = 15
	DefaultResolution = 9
)

// Materialize returns, per district and in input order, the cells whose
// centers fall inside the district polygon at the given resolution. Holes
// are honored. Cells are sorted by id, and a cell already claimed by an
// earlier district is not repeated.
func Materialize(districts []model.District, resolution int) ([]model.DistrictCells, error) {
	if resolution < MinResolution || resolution > MaxResolution {
		return nil, eris.Errorf("hexgrid: resolution %d outside [%d, %d]", resolution, MinResolution, MaxResolution)
	}

	claimed := make(map[h3.Cell]bool)
	out := make([]model.DistrictCells, 0, len(districts))
	total := 0

	for _, d := range districts {
		if d.Polygon == nil {
			return nil, eris.Errorf("hexgrid: district %q has no polygon", d.Name)
		}

		var ids []h3.Cell
		for i := 0; i < d.Polygon.NumPolygons(); i++ {
			found, err := h3.PolygonToCells(toGeoPolygon(d.Polygon.Polygon(i)), resolution)
			if err != nil {
				return nil, eris.Wrapf(err, "hexgrid: cover district %q", d.Name)
			}
			for _, c := range found {
				if !claimed[c] {
					claimed[c] = true
					ids = append(ids, c)
				}
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

		cells := make([]model.Cell, 0, len(ids))
		for _, c := range ids {
			ll, err := h3.CellToLatLng(c)
			if err != nil {
				return nil, eris.Wrapf(err, "hexgrid: center of %s", c)
			}
			cells = append(cells, model.Cell{
				ID:     c.String(),
				Center: model.GeoPoint{Lon: ll.Lng, Lat: ll.Lat},
			})
		}
		total += len(cells)
		out = append(out, model.DistrictCells{District: d.Name, Cells: cells})
	}

	if total == 0 {
		return nil, eris.Errorf("hexgrid: no cells at resolution %d", resolution)
	}
	return out, nil
}

func toGeoPolygon(p *geom.Polygon) h3.GeoPolygon {
	var gp h3.GeoPolygon
	for i := 0; i < p.NumLinearRings(); i++ {
		loop := toGeoLoop(p.LinearRing(i))
		if i == 0 {
			gp.GeoLoop = loop
		} else {
			gp.Holes = append(gp.Holes, loop)
		}
	}
	return gp
}

// toGeoLoop drops the closing vertex; H3 loops are implicitly closed.
func toGeoLoop(r *geom.LinearRing) h3.GeoLoop {
	coords := r.Coords()
	if n := len(coords); n > 1 && coords[0].Equal(r.Layout(), coords[n-1]) {
		coords = coords[:n-1]
	}
	loop := make(h3.GeoLoop, len(coords))
	for i, c := range coords {
		loop[i] = h3.NewLatLng(c.Y(), c.X())
	}
	return loop
}

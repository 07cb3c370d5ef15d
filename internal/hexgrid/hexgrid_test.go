package hexgrid

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sucolo/hexfeat/internal/model"
)

func square(minLon, minLat, maxLon, maxLat float64) [][]geom.Coord {
	return [][]geom.Coord{{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}
}

func district(t *testing.T, name string, rings ...[][]geom.Coord) model.District {
	t.Helper()
	mp := geom.NewMultiPolygon(geom.XY)
	for _, r := range rings {
		p, err := geom.NewPolygon(geom.XY).SetCoords(r)
		require.NoError(t, err)
		require.NoError(t, mp.Push(p))
	}
	return model.District{Name: name, Polygon: mp}
}

func TestMaterialize_CoversDistrict(t *testing.T) {
	t.Parallel()

	d := district(t, "Mitte", square(12.36, 51.33, 12.38, 51.35))
	got, err := Materialize([]model.District{d}, 9)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mitte", got[0].District)

	cells := got[0].Cells
	require.NotEmpty(t, cells)
	ids := make([]string, len(cells))
	for i, c := range cells {
		ids[i] = c.ID
		assert.Len(t, c.ID, 15)
		assert.GreaterOrEqual(t, c.Center.Lon, 12.36)
		assert.LessOrEqual(t, c.Center.Lon, 12.38)
		assert.GreaterOrEqual(t, c.Center.Lat, 51.33)
		assert.LessOrEqual(t, c.Center.Lat, 51.35)
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestMaterialize_Deterministic(t *testing.T) {
	t.Parallel()

	ds := []model.District{
		district(t, "A", square(12.36, 51.33, 12.38, 51.35)),
		district(t, "B", square(12.38, 51.33, 12.40, 51.35)),
	}
	first, err := Materialize(ds, 9)
	require.NoError(t, err)
	second, err := Materialize(ds, 9)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMaterialize_OverlapClaimedOnce(t *testing.T) {
	t.Parallel()

	ds := []model.District{
		district(t, "A", square(12.36, 51.33, 12.38, 51.35)),
		district(t, "Copy", square(12.36, 51.33, 12.38, 51.35)),
	}
	got, err := Materialize(ds, 9)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].Cells)
	assert.Empty(t, got[1].Cells)
}

func TestMaterialize_HoleExcluded(t *testing.T) {
	t.Parallel()

	outer := square(12.36, 51.33, 12.40, 51.37)
	hole := square(12.37, 51.34, 12.39, 51.36)[0]

	solid, err := Materialize([]model.District{district(t, "S", outer)}, 9)
	require.NoError(t, err)
	holed, err := Materialize([]model.District{district(t, "H", [][]geom.Coord{outer[0], hole})}, 9)
	require.NoError(t, err)

	assert.Less(t, len(holed[0].Cells), len(solid[0].Cells))
	for _, c := range holed[0].Cells {
		inside := c.Center.Lon > 12.371 && c.Center.Lon < 12.389 && c.Center.Lat > 51.341 && c.Center.Lat < 51.359
		assert.False(t, inside, "cell %s lies inside the hole", c.ID)
	}
}

func TestMaterialize_MultiPolygon(t *testing.T) {
	t.Parallel()

	d := district(t, "Split", square(12.36, 51.33, 12.37, 51.34), square(12.40, 51.33, 12.41, 51.34))
	got, err := Materialize([]model.District{d}, 9)
	require.NoError(t, err)

	var west, east int
	for _, c := range got[0].Cells {
		if c.Center.Lon < 12.38 {
			west++
		} else {
			east++
		}
	}
	assert.Positive(t, west)
	assert.Positive(t, east)
}

func TestMaterialize_Errors(t *testing.T) {
	t.Parallel()

	d := district(t, "Mitte", square(12.36, 51.33, 12.38, 51.35))

	_, err := Materialize([]model.District{d}, 16)
	assert.Error(t, err)
	_, err = Materialize([]model.District{d}, -1)
	assert.Error(t, err)

	_, err = Materialize([]model.District{{Name: "Empty"}}, 9)
	assert.Error(t, err)

	tiny := district(t, "Tiny", square(12.36, 51.33, 12.3601, 51.3301))
	_, err = Materialize([]model.District{tiny}, 0)
	assert.Error(t, err, "no cells at all")
}

package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sucolo/hexfeat/internal/model"
)

const poiCSV = `lon,lat,amenity,id,name,wheelchair,opening_hours
12.3731,51.3397,school,007,Thomasschule,yes,8-16
12.3800,51.3400,hospital,12,,limited,
not-a-number,51.3,school,13,,,
12.39,51.35,,14,No amenity,,
`

func TestReadPOIsCSV(t *testing.T) {
	t.Parallel()

	pois, err := ReadPOIsCSV(context.Background(), strings.NewReader(poiCSV))
	require.NoError(t, err)
	require.Len(t, pois, 2)

	p := pois[0]
	assert.Equal(t, "school", p.Amenity)
	assert.Equal(t, "007", p.SourceID)
	assert.Equal(t, "Thomasschule", p.Name)
	assert.Equal(t, "yes", p.Wheelchair)
	assert.InDelta(t, 12.3731, p.Location.Lon, 1e-9)
	assert.InDelta(t, 51.3397, p.Location.Lat, 1e-9)
	assert.Equal(t, model.String("8-16"), p.Extra["opening_hours"])

	assert.Equal(t, "hospital", pois[1].Amenity)
	assert.Empty(t, pois[1].Name)
	assert.NotContains(t, pois[1].Extra, "opening_hours", "empty extras are dropped")
}

func TestReadPOIsCSV_MissingCoordinates(t *testing.T) {
	t.Parallel()

	_, err := ReadPOIsCSV(context.Background(), strings.NewReader("x,y,amenity\n1,2,school\n"))
	assert.Error(t, err)

	_, err = ReadPOIsCSV(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}

func TestStreamCSV(t *testing.T) {
	t.Parallel()

	rows, errs := StreamCSV(context.Background(), strings.NewReader("a;b\n 1 ; 2 \n# note\n3;4\n"),
		CSVOptions{Delimiter: ';', Comment: '#', TrimSpace: true})

	var got [][]string
	for r := range rows {
		got = append(got, r)
	}
	require.NoError(t, <-errs)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}, {"3", "4"}}, got)
}

func TestStreamCSV_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var b strings.Builder
	for i := 0; i < 1000; i++ {
		b.WriteString("1,2\n")
	}
	rows, errs := StreamCSV(ctx, strings.NewReader(b.String()), CSVOptions{})
	n := 0
	for range rows {
		n++
	}
	assert.Error(t, <-errs)
	assert.Less(t, n, 1000)
}

const districtsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"district": "Mitte", "Average age": 42.5, "Population": 60000, "type": "ignored", "tags": {"a": 1}},
      "geometry": {"type": "Polygon", "coordinates": [[[12.36,51.33],[12.38,51.33],[12.38,51.35],[12.36,51.35],[12.36,51.33]]]}
    },
    {
      "type": "Feature",
      "properties": {"district": "Nord", "Average age": null},
      "geometry": {"type": "MultiPolygon", "coordinates": [
        [[[12.36,51.36],[12.38,51.36],[12.38,51.37],[12.36,51.36]]],
        [[[12.40,51.36],[12.41,51.36],[12.41,51.37],[12.40,51.36]]]
      ]}
    },
    {
      "type": "Feature",
      "properties": {"district": "Point"},
      "geometry": {"type": "Point", "coordinates": [12.3, 51.3]}
    }
  ]
}`

func TestDistrictsFromGeoJSON(t *testing.T) {
	t.Parallel()

	fc, err := ReadFeatureCollection(strings.NewReader(districtsGeoJSON))
	require.NoError(t, err)

	ds, err := DistrictsFromGeoJSON(fc, "")
	require.NoError(t, err)
	require.Len(t, ds, 2)

	assert.Equal(t, "Mitte", ds[0].Name)
	assert.Equal(t, 1, ds[0].Polygon.NumPolygons())
	assert.Equal(t, model.Number(42.5), ds[0].Attributes["Average age"])
	assert.Equal(t, model.Number(60000), ds[0].Attributes["Population"])
	assert.NotContains(t, ds[0].Attributes, "district")
	assert.NotContains(t, ds[0].Attributes, "type")
	assert.NotContains(t, ds[0].Attributes, "tags")

	assert.Equal(t, 2, ds[1].Polygon.NumPolygons())
	assert.True(t, ds[1].Attributes["Average age"].IsNull())
}

func TestDistrictsFromGeoJSON_MissingName(t *testing.T) {
	t.Parallel()

	fc, err := ReadFeatureCollection(strings.NewReader(districtsGeoJSON))
	require.NoError(t, err)
	_, err = DistrictsFromGeoJSON(fc, "Bezirk")
	assert.Error(t, err)
}

func TestPOIsFromGeoJSON(t *testing.T) {
	t.Parallel()

	const src = `{"type":"FeatureCollection","features":[
	  {"type":"Feature","id":4711,"properties":{"amenity":"pharmacy","name":"Apotheke"},"geometry":{"type":"Point","coordinates":[12.37,51.34]}},
	  {"type":"Feature","properties":{"amenity":"bench","id":"n1"},"geometry":{"type":"Point","coordinates":[12.38,51.35]}},
	  {"type":"Feature","properties":{"name":"nothing"},"geometry":{"type":"Point","coordinates":[12.38,51.35]}},
	  {"type":"Feature","properties":{"amenity":"park"},"geometry":{"type":"LineString","coordinates":[[12.38,51.35],[12.39,51.36]]}}
	]}`
	fc, err := ReadFeatureCollection(strings.NewReader(src))
	require.NoError(t, err)

	pois := POIsFromGeoJSON(fc)
	require.Len(t, pois, 2)
	assert.Equal(t, "4711", pois[0].SourceID)
	assert.Equal(t, "Apotheke", pois[0].Name)
	assert.InDelta(t, 12.37, pois[0].Location.Lon, 1e-9)
	assert.Equal(t, "n1", pois[1].SourceID)
}

func writePolygonShapefile(t *testing.T, path string) {
	t.Helper()
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("district", 32),
		shp.FloatField("avg_age", 8, 2),
	}))

	outer := []shp.Point{{X: 12.36, Y: 51.33}, {X: 12.36, Y: 51.35}, {X: 12.38, Y: 51.35}, {X: 12.38, Y: 51.33}, {X: 12.36, Y: 51.33}}
	hole := []shp.Point{{X: 12.365, Y: 51.335}, {X: 12.375, Y: 51.335}, {X: 12.375, Y: 51.345}, {X: 12.365, Y: 51.345}, {X: 12.365, Y: 51.335}}
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{outer, hole}))
	row := w.Write(&poly)
	require.NoError(t, w.WriteAttribute(int(row), 0, "Mitte"))
	require.NoError(t, w.WriteAttribute(int(row), 1, 41.5))
	w.Close()
}

func TestLoadDistricts_Shapefile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "districts.shp")
	writePolygonShapefile(t, path)

	ds, err := LoadDistricts(path, "")
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "Mitte", ds[0].Name)
	require.Equal(t, 1, ds[0].Polygon.NumPolygons())
	assert.Equal(t, 2, ds[0].Polygon.Polygon(0).NumLinearRings(), "counter-clockwise ring is a hole")

	age, ok := ds[0].Attributes["avg_age"].Float()
	require.True(t, ok)
	assert.InDelta(t, 41.5, age, 1e-9)
}

func TestLoadPOIs_Shapefile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pois.shp")
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("amenity", 16), shp.StringField("id", 8)}))
	row := w.Write(&shp.Point{X: 12.37, Y: 51.34})
	require.NoError(t, w.WriteAttribute(int(row), 0, "school"))
	require.NoError(t, w.WriteAttribute(int(row), 1, "007"))
	w.Close()

	pois, err := LoadPOIs(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, "school", pois[0].Amenity)
	assert.Equal(t, "007", pois[0].SourceID)
	assert.InDelta(t, 51.34, pois[0].Location.Lat, 1e-9)
}

func TestLoadPOIs_Files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "pois.CSV")
	require.NoError(t, os.WriteFile(csvPath, []byte(poiCSV), 0644))

	pois, err := LoadPOIs(context.Background(), csvPath)
	require.NoError(t, err)
	assert.Len(t, pois, 2)

	_, err = LoadPOIs(context.Background(), filepath.Join(dir, "pois.parquet"))
	assert.Error(t, err)
	_, err = LoadDistricts(filepath.Join(dir, "missing.geojson"), "")
	assert.Error(t, err)
}

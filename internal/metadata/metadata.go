// Package metadata answers what is stored for a city: which cities exist,
// which amenities have point sets and which static attributes every
// district carries.
package metadata

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/model"
)

// IndexLister lists the indices of the document store.
type IndexLister interface {
	ListIndices(ctx context.Context) ([]string, error)
}

// DistrictReader reads district documents of a city.
type DistrictReader interface {
	Districts(ctx context.Context, city string, columns []string, onlyPolygon bool) ([]model.DistrictDocument, error)
}

// KeyReader lists the point sets of a city.
type KeyReader interface {
	POIKeys(ctx context.Context, city string) ([]string, error)
	PointCount(ctx context.Context, key string) (int64, error)
}

// DocumentStore is the document-store side of the service.
type DocumentStore interface {
	IndexLister
	DistrictReader
}

// Service implements the metadata queries.
type Service struct {
	docs DocumentStore
	keys KeyReader
}

// New creates a Service.
func New(docs DocumentStore, keys KeyReader) *Service {
	return &Service{docs: docs, keys: keys}
}

// ListCities returns every city index, hidden (dot-prefixed) indices
// excluded, sorted.
func (s *Service) ListCities(ctx context.Context) ([]string, error) {
	indices, err := s.docs.ListIndices(ctx)
	if err != nil {
		return nil, err
	}
	cities := make([]string, 0, len(indices))
	for _, idx := range indices {
		if strings.HasPrefix(idx, ".") {
			continue
		}
		cities = append(cities, idx)
	}
	sort.Strings(cities)
	return cities, nil
}

// CityExists reports whether city is one of ListCities.
func (s *Service) CityExists(ctx context.Context, city string) (bool, error) {
	cities, err := s.ListCities(ctx)
	if err != nil {
		return false, err
	}
	i := sort.SearchStrings(cities, city)
	return i < len(cities) && cities[i] == city, nil
}

// ListAmenities returns the amenities with a point set in city, sorted.
// Wheelchair sets are listed as "<amenity>_wheelchair".
func (s *Service) ListAmenities(ctx context.Context, city string) ([]string, error) {
	keys, err := s.keys.POIKeys(ctx, city)
	if err != nil {
		return nil, err
	}
	amenities := make([]string, 0, len(keys))
	for _, k := range keys {
		if a, ok := model.AmenityFromKey(city, k); ok {
			amenities = append(amenities, a)
		}
	}
	sort.Strings(amenities)
	return amenities, nil
}

// ListStaticAttributes returns the attributes that are non-null on every
// district of city, sorted. A city without districts has none.
func (s *Service) ListStaticAttributes(ctx context.Context, city string) ([]string, error) {
	districts, err := s.docs.Districts(ctx, city, nil, false)
	if err != nil {
		return nil, err
	}
	if len(districts) == 0 {
		return []string{}, nil
	}

	present := make(map[string]int)
	for _, d := range districts {
		for name, v := range d.Attributes {
			if model.IsDistrictAdminColumn(name) || v.IsNull() {
				continue
			}
			present[name]++
		}
	}

	attrs := make([]string, 0, len(present))
	for name, n := range present {
		if n == len(districts) {
			attrs = append(attrs, name)
		}
	}
	sort.Strings(attrs)
	return attrs, nil
}

// AmenityCounts returns the number of points per amenity set of city.
func (s *Service) AmenityCounts(ctx context.Context, city string) (map[string]int64, error) {
	keys, err := s.keys.POIKeys(ctx, city)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(keys))
	for _, k := range keys {
		a, ok := model.AmenityFromKey(city, k)
		if !ok {
			continue
		}
		n, err := s.keys.PointCount(ctx, k)
		if err != nil {
			return nil, err
		}
		counts[a] = n
	}
	zap.L().Debug("counted amenity points",
		zap.String("component", "metadata"),
		zap.String("city", city),
		zap.Int("amenities", len(counts)),
	)
	return counts, nil
}

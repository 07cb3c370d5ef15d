package features

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sucolo/hexfeat/internal/model"
)

// mockSpatial implements SpatialIndex for testing.
type mockSpatial struct {
	mock.Mock
}

func (m *mockSpatial) SearchAroundCells(ctx context.Context, city, amenity string, q model.RadiusSearch) (map[string][]float64, error) {
	args := m.Called(ctx, city, amenity, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]float64), args.Error(1)
}

// mockAttrs implements AttributeStore for testing.
type mockAttrs struct {
	mock.Mock
}

func (m *mockAttrs) HexCenters(ctx context.Context, city string, columns []string, onlyLocation bool) ([]model.HexCenterDocument, error) {
	args := m.Called(ctx, city, columns, onlyLocation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HexCenterDocument), args.Error(1)
}

// mockCities implements CityChecker for testing.
type mockCities struct {
	mock.Mock
}

func (m *mockCities) CityExists(ctx context.Context, city string) (bool, error) {
	args := m.Called(ctx, city)
	return args.Bool(0), args.Error(1)
}

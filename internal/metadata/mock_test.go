package metadata

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sucolo/hexfeat/internal/model"
)

type mockDocs struct {
	mock.Mock
}

func (m *mockDocs) ListIndices(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockDocs) Districts(ctx context.Context, city string, columns []string, onlyPolygon bool) ([]model.DistrictDocument, error) {
	args := m.Called(ctx, city, columns, onlyPolygon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DistrictDocument), args.Error(1)
}

type mockKeys struct {
	mock.Mock
}

func (m *mockKeys) POIKeys(ctx context.Context, city string) ([]string, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockKeys) PointCount(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sucolo/hexfeat/internal/features"
	"github.com/sucolo/hexfeat/internal/health"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Compute(ctx context.Context, req *features.FeatureRequest) (*features.Table, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*features.Table), args.Error(1)
}

type mockMeta struct {
	mock.Mock
}

func (m *mockMeta) ListCities(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockMeta) CityExists(ctx context.Context, city string) (bool, error) {
	args := m.Called(ctx, city)
	return args.Bool(0), args.Error(1)
}

func (m *mockMeta) ListAmenities(ctx context.Context, city string) ([]string, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockMeta) ListStaticAttributes(ctx context.Context, city string) ([]string, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockMeta) AmenityCounts(ctx context.Context, city string) (map[string]int64, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

type stubHealth struct {
	status health.Status
}

func (s stubHealth) Status(context.Context) health.Status { return s.status }

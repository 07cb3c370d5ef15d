package citydata

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sucolo/hexfeat/internal/model"
)

type mockDocs struct {
	mock.Mock
}

func (m *mockDocs) CreateIndex(ctx context.Context, city string, ignoreIfExists bool) (bool, error) {
	args := m.Called(ctx, city, ignoreIfExists)
	return args.Bool(0), args.Error(1)
}

func (m *mockDocs) DeleteIndex(ctx context.Context, city string, ignoreIfNotExists bool) error {
	return m.Called(ctx, city, ignoreIfNotExists).Error(0)
}

func (m *mockDocs) IndexExists(ctx context.Context, city string) (bool, error) {
	args := m.Called(ctx, city)
	return args.Bool(0), args.Error(1)
}

func (m *mockDocs) IndexPOIs(ctx context.Context, city string, docs []model.POIDocument) error {
	return m.Called(ctx, city, docs).Error(0)
}

func (m *mockDocs) IndexDistricts(ctx context.Context, city string, docs []model.DistrictDocument) error {
	return m.Called(ctx, city, docs).Error(0)
}

func (m *mockDocs) IndexHexCenters(ctx context.Context, city string, docs []model.HexCenterDocument) error {
	return m.Called(ctx, city, docs).Error(0)
}

func (m *mockDocs) Refresh(ctx context.Context, city string) error {
	return m.Called(ctx, city).Error(0)
}

type mockPoints struct {
	mock.Mock
}

func (m *mockPoints) AddHexCenters(ctx context.Context, city string, cells []model.Cell) error {
	return m.Called(ctx, city, cells).Error(0)
}

func (m *mockPoints) AddPOIs(ctx context.Context, city string, docs []model.POIDocument, wheelchair bool) error {
	return m.Called(ctx, city, docs, wheelchair).Error(0)
}

func (m *mockPoints) DeleteCityKeys(ctx context.Context, city string) (int, error) {
	args := m.Called(ctx, city)
	return args.Int(0), args.Error(1)
}

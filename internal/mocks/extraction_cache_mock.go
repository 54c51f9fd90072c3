package mocks

import (
	"context"

	"scene-prompt-server/internal/cache"
	"scene-prompt-server/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockExtractionCache is a mock type for the ExtractionCache type
type MockExtractionCache struct {
	mock.Mock
}

// Get provides a mock function with given fields: ctx, key
func (_m *MockExtractionCache) Get(ctx context.Context, key string) (models.VisualElements, bool, error) {
	ret := _m.Called(ctx, key)

	var r0 models.VisualElements
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(models.VisualElements)
	}
	return r0, ret.Bool(1), ret.Error(2)
}

// Set provides a mock function with given fields: ctx, key, elements
func (_m *MockExtractionCache) Set(ctx context.Context, key string, elements models.VisualElements) error {
	ret := _m.Called(ctx, key, elements)
	return ret.Error(0)
}

// NewMockExtractionCache creates a new instance of MockExtractionCache.
func NewMockExtractionCache(t interface {
	mock.TestingT
	Helper()
}) *MockExtractionCache {
	m := &MockExtractionCache{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ cache.ExtractionCache = (*MockExtractionCache)(nil)

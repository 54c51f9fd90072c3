package mocks

import (
	"context"

	"scene-prompt-server/internal/ai"

	"github.com/stretchr/testify/mock"
)

// MockModelClient is a mock type for the ModelClient type
type MockModelClient struct {
	mock.Mock
}

// GenerateText provides a mock function with given fields: ctx, systemPrompt, userInput
func (_m *MockModelClient) GenerateText(ctx context.Context, systemPrompt string, userInput string) (string, error) {
	ret := _m.Called(ctx, systemPrompt, userInput)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string) string); ok {
		r0 = rf(ctx, systemPrompt, userInput)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, systemPrompt, userInput)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CheckAvailability provides a mock function with given fields: ctx
func (_m *MockModelClient) CheckAvailability(ctx context.Context) bool {
	ret := _m.Called(ctx)

	var r0 bool
	if rf, ok := ret.Get(0).(func(context.Context) bool); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Bool(0)
	}
	return r0
}

// GetRateLimitStatus provides a mock function with no fields
func (_m *MockModelClient) GetRateLimitStatus() ai.RateLimitStatus {
	ret := _m.Called()

	var r0 ai.RateLimitStatus
	if rf, ok := ret.Get(0).(func() ai.RateLimitStatus); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(ai.RateLimitStatus)
	}
	return r0
}

// NewMockModelClient creates a new instance of MockModelClient. It also registers a testing interface on the mock.
// The first argument is typically a *testing.T value.
func NewMockModelClient(t interface {
	mock.TestingT
	Helper()
}) *MockModelClient {
	m := &MockModelClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ ai.ModelClient = (*MockModelClient)(nil)

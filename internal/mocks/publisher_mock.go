package mocks

import (
	"context"

	"scene-prompt-server/internal/messaging"

	"github.com/stretchr/testify/mock"
)

// MockTaskPublisher is a mock type for the TaskPublisher type
type MockTaskPublisher struct {
	mock.Mock
}

// PublishTask provides a mock function with given fields: ctx, payload
func (_m *MockTaskPublisher) PublishTask(ctx context.Context, payload messaging.ScenePromptTaskPayload) error {
	ret := _m.Called(ctx, payload)

	if rf, ok := ret.Get(0).(func(context.Context, messaging.ScenePromptTaskPayload) error); ok {
		return rf(ctx, payload)
	}
	return ret.Error(0)
}

// NewMockTaskPublisher creates a new instance of MockTaskPublisher.
func NewMockTaskPublisher(t interface {
	mock.TestingT
	Helper()
}) *MockTaskPublisher {
	m := &MockTaskPublisher{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

// MockResultPublisher is a mock type for the ResultPublisher type
type MockResultPublisher struct {
	mock.Mock
}

// PublishResult provides a mock function with given fields: ctx, payload
func (_m *MockResultPublisher) PublishResult(ctx context.Context, payload messaging.ScenePromptResultPayload) error {
	ret := _m.Called(ctx, payload)

	if rf, ok := ret.Get(0).(func(context.Context, messaging.ScenePromptResultPayload) error); ok {
		return rf(ctx, payload)
	}
	return ret.Error(0)
}

// NewMockResultPublisher creates a new instance of MockResultPublisher.
func NewMockResultPublisher(t interface {
	mock.TestingT
	Helper()
}) *MockResultPublisher {
	m := &MockResultPublisher{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var (
	_ messaging.TaskPublisher   = (*MockTaskPublisher)(nil)
	_ messaging.ResultPublisher = (*MockResultPublisher)(nil)
)

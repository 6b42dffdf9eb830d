// Package mocks holds testify mocks for the interfaces package.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chatbox/web/internal/service"
)

// MockWorkspaceProvider is a mock type for the WorkspaceProvider type
type MockWorkspaceProvider struct {
	mock.Mock
}

// Get provides a mock function with given fields: ctx, sessionID
func (_m *MockWorkspaceProvider) Get(ctx context.Context, sessionID string) (*service.Workspace, error) {
	ret := _m.Called(ctx, sessionID)

	var r0 *service.Workspace
	if rf, ok := ret.Get(0).(func(context.Context, string) *service.Workspace); ok {
		r0 = rf(ctx, sessionID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.Workspace)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, sessionID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockWorkspaceProvider creates a new instance of MockWorkspaceProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockWorkspaceProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkspaceProvider {
	m := &MockWorkspaceProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

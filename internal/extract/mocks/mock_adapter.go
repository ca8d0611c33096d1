package mocks

import (
	"context"

	"github.com/hbomb79/mediascan/internal/extract"
	"github.com/hbomb79/mediascan/internal/media"
	"github.com/stretchr/testify/mock"
)

// MockAdapter is a mock implementation of extract.Adapter.
type MockAdapter struct {
	mock.Mock
}

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// NewMockAdapter creates a MockAdapter with the name and declared fields
// provided. Expectations for Accepts and Extract must be registered by the
// caller, and are asserted when the test completes.
func NewMockAdapter(t testingT, name string, fields ...string) *MockAdapter {
	m := &MockAdapter{}
	m.Mock.Test(t)
	m.On("Name").Return(name).Maybe()
	m.On("Fields").Return(fields).Maybe()

	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAdapter) Name() string {
	return m.Called().String(0)
}

func (m *MockAdapter) Fields() []string {
	fields, _ := m.Called().Get(0).([]string)
	return fields
}

func (m *MockAdapter) Accepts(f media.File) bool {
	return m.Called(f).Bool(0)
}

// Extract returns the configured extract.Result. If the return value
// registered is a func(context.Context, media.File) extract.Result, it is
// invoked instead.
func (m *MockAdapter) Extract(ctx context.Context, f media.File) extract.Result {
	ret := m.Called(ctx, f).Get(0)
	if fn, ok := ret.(func(context.Context, media.File) extract.Result); ok {
		return fn(ctx, f)
	}

	return ret.(extract.Result)
}

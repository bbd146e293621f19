package core

import (
	"github.com/stretchr/testify/mock"

	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
)

// MockLogger is a mock implementation of core.Logger
type MockLogger struct {
	mock.Mock
}

// NewMockLogger creates a mock logger that tolerates any log call, which is
// what most tests want
func NewMockLogger() *MockLogger {
	l := &MockLogger{}
	l.On("SetLevel", mock.Anything).Maybe().Return()
	l.On("Debug", mock.Anything, mock.Anything).Maybe().Return()
	l.On("Info", mock.Anything, mock.Anything).Maybe().Return()
	l.On("Warn", mock.Anything, mock.Anything).Maybe().Return()
	l.On("Error", mock.Anything, mock.Anything).Maybe().Return()
	l.On("Flush").Maybe().Return(nil)
	return l
}

func (m *MockLogger) SetLevel(level coreport.LogLevel) {
	m.Called(level)
}

func (m *MockLogger) Debug(message string, fields map[string]any) {
	m.Called(message, fields)
}

func (m *MockLogger) Info(message string, fields map[string]any) {
	m.Called(message, fields)
}

func (m *MockLogger) Warn(message string, fields map[string]any) {
	m.Called(message, fields)
}

func (m *MockLogger) Error(message string, fields map[string]any) {
	m.Called(message, fields)
}

func (m *MockLogger) Flush() error {
	args := m.Called()
	return args.Error(0)
}

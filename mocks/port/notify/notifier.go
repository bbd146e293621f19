package notify

import (
	"context"

	"github.com/stretchr/testify/mock"

	notifyport "github.com/maryreaky/betrix-payments/internal/domain/port/notify"
)

// MockNotifier is a mock implementation of notify.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PaymentStateChanged(ctx context.Context, change notifyport.StateChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *MockNotifier) StuckReport(ctx context.Context, stuck []notifyport.StuckTransaction) error {
	args := m.Called(ctx, stuck)
	return args.Error(0)
}

func (m *MockNotifier) ManualCorrection(ctx context.Context, reference string, evidence string) error {
	args := m.Called(ctx, reference, evidence)
	return args.Error(0)
}

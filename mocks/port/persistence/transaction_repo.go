package persistence

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
	persistenceport "github.com/maryreaky/betrix-payments/internal/domain/port/persistence"
)

// MockTransactionRepository is a mock implementation of
// persistence.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, reference string) (*entity.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByProviderTransactionID(ctx context.Context, providerTransactionID string) (*entity.Transaction, error) {
	args := m.Called(ctx, providerTransactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) SetProviderTransactionID(ctx context.Context, reference string, providerTransactionID string) (bool, error) {
	args := m.Called(ctx, reference, providerTransactionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) ResolveIfPending(ctx context.Context, reference string, resolution persistenceport.Resolution) (bool, error) {
	args := m.Called(ctx, reference, resolution)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) MarkPollAttempt(ctx context.Context, reference string, attempts int, nextPollAt time.Time) error {
	args := m.Called(ctx, reference, attempts, nextPollAt)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListPollDue(ctx context.Context, now time.Time, limit int) ([]*entity.Transaction, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*entity.Transaction, error) {
	args := m.Called(ctx, createdBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Transaction), args.Error(1)
}

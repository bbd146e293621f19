package provider

import (
	"context"

	"github.com/stretchr/testify/mock"

	providerport "github.com/maryreaky/betrix-payments/internal/domain/port/provider"
)

// MockPaymentProvider is a mock implementation of provider.PaymentProvider
type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) InitiatePayment(ctx context.Context, req providerport.InitiateRequest) (*providerport.InitiateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providerport.InitiateResponse), args.Error(1)
}

func (m *MockPaymentProvider) QueryStatus(ctx context.Context, reference string) (*providerport.StatusResponse, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providerport.StatusResponse), args.Error(1)
}

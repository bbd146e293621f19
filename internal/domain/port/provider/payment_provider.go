package provider

import (
	"context"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
)

// InitiateRequest carries everything the provider needs to start a payment
type InitiateRequest struct {
	Reference     string
	AmountInCents int64
	Currency      string
	Phone         string
	CallbackURL   string
}

// InitiateResponse is the provider's acknowledgement of an initiation
type InitiateResponse struct {
	ProviderTransactionID string
	Instructions          string // Customer-facing payment instructions or redirect info
	RawPayload            string
}

// StatusResponse is a provider status-query result normalized to the
// internal vocabulary, with the raw body kept as evidence
type StatusResponse struct {
	Status                entity.TransactionStatus
	ProviderTransactionID string
	RawPayload            string
}

// PaymentProvider is the outbound interface to the payment provider.
// All failures are reported as *error.ProviderError so callers can apply
// one retry policy keyed on the error kind.
type PaymentProvider interface {
	// InitiatePayment asks the provider to start collecting the payment
	InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)

	// QueryStatus asks the provider for the current status of a payment
	// previously initiated under the given reference
	QueryStatus(ctx context.Context, reference string) (*StatusResponse, error)
}

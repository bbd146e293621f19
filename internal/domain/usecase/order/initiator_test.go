package order

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
	errs "github.com/maryreaky/betrix-payments/internal/domain/error"
	persistenceport "github.com/maryreaky/betrix-payments/internal/domain/port/persistence"
	providerport "github.com/maryreaky/betrix-payments/internal/domain/port/provider"
	mockcore "github.com/maryreaky/betrix-payments/mocks/port/core"
	mockpersistence "github.com/maryreaky/betrix-payments/mocks/port/persistence"
	mockprovider "github.com/maryreaky/betrix-payments/mocks/port/provider"
)

type fakeScheduler struct {
	reference string
	at        time.Time
	calls     int
}

func (f *fakeScheduler) SchedulePoll(reference string, at time.Time) {
	f.reference = reference
	f.at = at
	f.calls++
}

func newTestInitiator(
	repo *mockpersistence.MockTransactionRepository,
	provider *mockprovider.MockPaymentProvider,
	scheduler *fakeScheduler,
	now time.Time,
) (*Initiator, *mockcore.FixedTimeProvider) {
	tp := mockcore.NewFixedTimeProvider(now)
	return NewInitiator(repo, provider, scheduler, tp, mockcore.NewMockLogger(), 30*time.Second), tp
}

func TestInitiator_Initiate_HappyPath(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(mockpersistence.MockTransactionRepository)
	provider := new(mockprovider.MockPaymentProvider)
	scheduler := &fakeScheduler{}
	initiator, _ := newTestInitiator(repo, provider, scheduler, now)

	repo.On("ReferenceExists", mock.Anything, "BX-CUSTOM").Return(false, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(txn *entity.Transaction) bool {
		return txn.Reference == "BX-CUSTOM" && txn.Status == entity.StatusPending
	})).Return(nil)
	provider.On("InitiatePayment", mock.Anything, mock.MatchedBy(func(req providerport.InitiateRequest) bool {
		return req.Reference == "BX-CUSTOM" && req.AmountInCents == 30000 && req.Phone == "254712345678"
	})).Return(&providerport.InitiateResponse{
		ProviderTransactionID: "prov-1",
		Instructions:          "Enter your PIN to confirm",
	}, nil)
	repo.On("SetProviderTransactionID", mock.Anything, "BX-CUSTOM", "prov-1").Return(true, nil)

	result, err := initiator.Initiate(context.Background(), InitiateRequest{
		Amount:    "300",
		Phone:     "254712345678",
		Reference: "BX-CUSTOM",
	})
	require.NoError(t, err)

	assert.Equal(t, "BX-CUSTOM", result.Transaction.Reference)
	assert.Equal(t, entity.StatusPending, result.Transaction.Status)
	assert.Equal(t, "prov-1", result.Transaction.ProviderTransactionID)
	assert.Equal(t, "Enter your PIN to confirm", result.Instructions)

	// the first poll is spaced out by firstPollWait
	assert.Equal(t, 1, scheduler.calls)
	assert.Equal(t, "BX-CUSTOM", scheduler.reference)
	assert.Equal(t, now.Add(30*time.Second), scheduler.at)

	repo.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestInitiator_Initiate_GeneratesReferenceWhenEmpty(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(mockpersistence.MockTransactionRepository)
	provider := new(mockprovider.MockPaymentProvider)
	scheduler := &fakeScheduler{}
	initiator, _ := newTestInitiator(repo, provider, scheduler, now)

	repo.On("ReferenceExists", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	provider.On("InitiatePayment", mock.Anything, mock.Anything).Return(&providerport.InitiateResponse{}, nil)

	result, err := initiator.Initiate(context.Background(), InitiateRequest{
		Amount: "100",
		Phone:  "254712345678",
	})
	require.NoError(t, err)

	ref := result.Transaction.Reference
	assert.True(t, strings.HasPrefix(ref, "BX"), "reference %q should have the BX prefix", ref)
	assert.Len(t, ref, 16)
	assert.Equal(t, strings.ToUpper(ref), ref)
}

func TestInitiator_Initiate_RegeneratesOnCollision(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(mockpersistence.MockTransactionRepository)
	provider := new(mockprovider.MockPaymentProvider)
	scheduler := &fakeScheduler{}
	initiator, _ := newTestInitiator(repo, provider, scheduler, now)

	repo.On("ReferenceExists", mock.Anything, mock.AnythingOfType("string")).Return(true, nil).Once()
	repo.On("ReferenceExists", mock.Anything, mock.AnythingOfType("string")).Return(false, nil).Once()
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	provider.On("InitiatePayment", mock.Anything, mock.Anything).Return(&providerport.InitiateResponse{}, nil)

	_, err := initiator.Initiate(context.Background(), InitiateRequest{
		Amount: "100",
		Phone:  "254712345678",
	})
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "ReferenceExists", 2)
}

func TestInitiator_Initiate_RecordsProviderTransactionID(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(mockpersistence.MockTransactionRepository)
	provider := new(mockprovider.MockPaymentProvider)
	scheduler := &fakeScheduler{}
	initiator, _ := newTestInitiator(repo, provider, scheduler, now)

	repo.On("ReferenceExists", mock.Anything, "BX-ID").Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	provider.On("InitiatePayment", mock.Anything, mock.Anything).Return(&providerport.InitiateResponse{
		ProviderTransactionID: "prov-9",
	}, nil)
	// the id is written to the store, not just the returned entity, so an
	// id-only webhook can correlate before resolution
	repo.On("SetProviderTransactionID", mock.Anything, "BX-ID", "prov-9").Return(true, nil).Once()

	result, err := initiator.Initiate(context.Background(), InitiateRequest{
		Amount:    "100",
		Phone:     "254712345678",
		Reference: "BX-ID",
	})
	require.NoError(t, err)
	assert.Equal(t, "prov-9", result.Transaction.ProviderTransactionID)

	repo.AssertExpectations(t)
}

func TestInitiator_Initiate_ProviderIDWriteFailureDoesNotFailInitiation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(mockpersistence.MockTransactionRepository)
	provider := new(mockprovider.MockPaymentProvider)
	scheduler := &fakeScheduler{}
	initiator, _ := newTestInitiator(repo, provider, scheduler, now)

	repo.On("ReferenceExists", mock.Anything, "BX-IDW").Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	provider.On("InitiatePayment", mock.Anything, mock.Anything).Return(&providerport.InitiateResponse{
		ProviderTransactionID: "prov-10",
	}, nil)
	repo.On("SetProviderTransactionID", mock.Anything, "BX-IDW", "prov-10").Return(false, errors.New("connection refused"))

	// best effort: the webhook reference match and the poller still resolve
	result, err := initiator.Initiate(context.Background(), InitiateRequest{
		Amount:    "100",
		Phone:     "254712345678",
		Reference: "BX-IDW",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, result.Transaction.Status)
	assert.Equal(t, 1, scheduler.calls)
}

func TestInitiator_Initiate_RejectsDuplicateReference(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(mockpersistence.MockTransactionRepository)
	provider := new(mockprovider.MockPaymentProvider)
	scheduler := &fakeScheduler{}
	initiator, _ := newTestInitiator(repo, provider, scheduler, now)

	repo.On("ReferenceExists", mock.Anything, "BX-TAKEN").Return(true, nil)

	_, err := initiator.Initiate(context.Background(), InitiateRequest{
		Amount:    "100",
		Phone:     "254712345678",
		Reference: "BX-TAKEN",
	})
	assert.ErrorIs(t, err, errs.ErrDuplicateReference)

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "InitiatePayment", mock.Anything, mock.Anything)
	assert.Zero(t, scheduler.calls)
}

func TestInitiator_Initiate_RejectsInvalidInput(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		amount    string
		phone     string
		errorType error
	}{
		{"invalid amount", "abc", "254712345678", errs.ErrInvalidAmount},
		{"zero amount", "0", "254712345678", errs.ErrInvalidAmount},
		{"invalid phone", "100", "12", errs.ErrInvalidPhone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mockpersistence.MockTransactionRepository)
			provider := new(mockprovider.MockPaymentProvider)
			scheduler := &fakeScheduler{}
			initiator, _ := newTestInitiator(repo, provider, scheduler, now)

			repo.On("ReferenceExists", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)

			_, err := initiator.Initiate(context.Background(), InitiateRequest{
				Amount: tc.amount,
				Phone:  tc.phone,
			})
			assert.ErrorIs(t, err, tc.errorType)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestInitiator_Initiate_ProviderRejectionMarksFailed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(mockpersistence.MockTransactionRepository)
	provider := new(mockprovider.MockPaymentProvider)
	scheduler := &fakeScheduler{}
	initiator, _ := newTestInitiator(repo, provider, scheduler, now)

	cause := errs.NewProviderError(errs.KindPermanentRejection, "initiate", 422, `{"error":"invalid channel"}`, errors.New("provider returned http 422"))

	repo.On("ReferenceExists", mock.Anything, "BX-REJ").Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	provider.On("InitiatePayment", mock.Anything, mock.Anything).Return(nil, cause)
	repo.On("ResolveIfPending", mock.Anything, "BX-REJ", mock.MatchedBy(func(res persistenceport.Resolution) bool {
		return res.Status == entity.StatusFailed && res.RawEvidence == `{"error":"invalid channel"}`
	})).Return(true, nil)

	_, err := initiator.Initiate(context.Background(), InitiateRequest{
		Amount:    "100",
		Phone:     "254712345678",
		Reference: "BX-REJ",
	})
	require.Error(t, err)

	pe, ok := errs.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindPermanentRejection, pe.Kind)

	// a rejected initiation is never polled
	assert.Zero(t, scheduler.calls)
	repo.AssertExpectations(t)
}

func TestInitiator_Initiate_PersistFailureIsSurfaced(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := new(mockpersistence.MockTransactionRepository)
	provider := new(mockprovider.MockPaymentProvider)
	scheduler := &fakeScheduler{}
	initiator, _ := newTestInitiator(repo, provider, scheduler, now)

	repo.On("ReferenceExists", mock.Anything, "BX-DB").Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	_, err := initiator.Initiate(context.Background(), InitiateRequest{
		Amount:    "100",
		Phone:     "254712345678",
		Reference: "BX-DB",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist")

	// the provider is never called when the intent was not recorded
	provider.AssertNotCalled(t, "InitiatePayment", mock.Anything, mock.Anything)
}

package dto

import (
	"encoding/json"
	"time"
)

// InitiatePaymentRequest is the transaction-request trigger from the bot
// command layer
type InitiatePaymentRequest struct {
	Amount    json.Number `json:"amount" binding:"required"`
	Phone     string      `json:"counterpartyId" binding:"required"`
	Currency  string      `json:"currency"`
	Reference string      `json:"reference"`
}

// InitiatePaymentResponse acknowledges an accepted initiation
type InitiatePaymentResponse struct {
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Instructions string `json:"instructions,omitempty"`
}

// TransactionResponse is the read model for a stored transaction
type TransactionResponse struct {
	Reference             string    `json:"reference"`
	ProviderTransactionID string    `json:"providerTransactionId,omitempty"`
	Amount                string    `json:"amount"`
	Currency              string    `json:"currency"`
	Phone                 string    `json:"counterpartyId"`
	Status                string    `json:"status"`
	Attempts              int       `json:"attempts"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
	FailureReason         string    `json:"failureReason,omitempty"`
}

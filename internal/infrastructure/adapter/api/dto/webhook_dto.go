package dto

// WebhookEvent is the provider's inbound event body. Signature verification
// always runs over the raw request bytes, never this struct.
type WebhookEvent struct {
	Event string           `json:"event"`
	Data  WebhookEventData `json:"data"`
}

// WebhookEventData is the event payload
type WebhookEventData struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Phone     string `json:"phone"`
}

// WebhookAck is returned on durable acceptance, including no-op duplicates
type WebhookAck struct {
	Accepted bool   `json:"accepted"`
	Applied  bool   `json:"applied"`
	Status   string `json:"status,omitempty"`
}

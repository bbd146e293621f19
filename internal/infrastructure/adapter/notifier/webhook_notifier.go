package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
	notifyport "github.com/maryreaky/betrix-payments/internal/domain/port/notify"
)

// WebhookNotifier delivers engine events to the bot layer as JSON POSTs.
// The bot renders and forwards them to the human-facing channel.
type WebhookNotifier struct {
	targetURL  string
	httpClient *http.Client
	logger     coreport.Logger
}

// NewWebhookNotifier creates a notifier posting to targetURL
func NewWebhookNotifier(targetURL string, timeout time.Duration, logger coreport.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		targetURL:  targetURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type notificationEnvelope struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

// PaymentStateChanged delivers a terminal transition
func (n *WebhookNotifier) PaymentStateChanged(ctx context.Context, change notifyport.StateChange) error {
	return n.deliver(ctx, notificationEnvelope{Kind: "state_change", Payload: change})
}

// StuckReport delivers the reconciliation report
func (n *WebhookNotifier) StuckReport(ctx context.Context, stuck []notifyport.StuckTransaction) error {
	return n.deliver(ctx, notificationEnvelope{Kind: "stuck_report", Payload: stuck})
}

// ManualCorrection flags a late success after timeout
func (n *WebhookNotifier) ManualCorrection(ctx context.Context, reference string, evidence string) error {
	return n.deliver(ctx, notificationEnvelope{Kind: "manual_correction", Payload: map[string]string{
		"reference": reference,
		"evidence":  evidence,
	}})
}

func (n *WebhookNotifier) deliver(ctx context.Context, envelope notificationEnvelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.targetURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification target returned http %d", resp.StatusCode)
	}
	return nil
}

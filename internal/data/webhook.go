package data

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/elliehq/issue-relay/internal/biz/domain"
	"github.com/elliehq/issue-relay/internal/biz/repo"
)

// WebhookPayload is the request body sent to the automation service
type WebhookPayload struct {
	CorrelationID   string                 `json:"correlationId"`
	Requester       string                 `json:"requester"`
	OriginChatID    string                 `json:"originChatId"`
	TriggerMsgID    string                 `json:"triggerMessageId"`
	ContextMessages []domain.BundleMessage `json:"contextMessages"`
	StaleTrigger    bool                   `json:"staleTrigger"`
	Analysis        string                 `json:"analysis,omitempty"`
}

// WebhookResponse is the structured result from the automation service
type WebhookResponse struct {
	CorrelationID   string `json:"correlationId"`
	Status          string `json:"status"` // created, no-issue, error
	TicketReference string `json:"ticketReference,omitempty"`
	Message         string `json:"message,omitempty"`
}

// WebhookConfig contains dispatcher configuration
type WebhookConfig struct {
	URL        string
	Secret     string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// DefaultWebhookConfig returns default dispatcher configuration
func DefaultWebhookConfig(url, secret string) WebhookConfig {
	return WebhookConfig{
		URL:        url,
		Secret:     secret,
		Timeout:    10 * time.Second,
		MaxRetries: 2,
		Backoff:    time.Second,
	}
}

// webhookRepo dispatches signed context bundles over HTTP
type webhookRepo struct {
	config WebhookConfig
	client *http.Client
	now    func() time.Time
}

// NewWebhookRepo creates the webhook dispatcher
func NewWebhookRepo(config WebhookConfig) repo.WebhookRepo {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &webhookRepo{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		now:    time.Now,
	}
}

// SignPayload computes the hex HMAC-SHA256 over the canonical payload
// bytes joined with the request timestamp. An independent verifier with
// the same secret reproduces it from the raw body and timestamp header.
func SignPayload(secret string, payload []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// Dispatch serializes, signs and sends the bundle. Transport failures
// are retried with exponential backoff; an HTTP rejection is not (it
// signals a configuration or auth problem, not transience).
func (r *webhookRepo) Dispatch(ctx context.Context, bundle *domain.ContextBundle) domain.DispatchOutcome {
	payload := WebhookPayload{
		CorrelationID:   bundle.CorrelationID,
		Requester:       bundle.Requester,
		OriginChatID:    bundle.OriginChatID,
		TriggerMsgID:    bundle.TriggerMsgID,
		ContextMessages: bundle.Messages,
		StaleTrigger:    bundle.StaleTrigger,
		Analysis:        bundle.Analysis,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		// Marshalling plain structs cannot fail in practice; classify as
		// a terminal rejection rather than crash the event loop
		fmt.Printf("[Webhook] Marshal payload failed: %v\n", err)
		return domain.DispatchOutcome{Status: domain.DispatchFailed, Failure: domain.FailureWebhookRejected}
	}

	timestamp := strconv.FormatInt(r.now().Unix(), 10)
	signature := SignPayload(r.config.Secret, body, timestamp)

	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.config.Backoff * time.Duration(1<<(attempt-1))
			fmt.Printf("[Webhook] Retry %d/%d for %s in %v\n", attempt, r.config.MaxRetries, bundle.CorrelationID, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return domain.DispatchOutcome{
					Status:   domain.DispatchFailed,
					Failure:  domain.FailureWebhookUnreachable,
					Attempts: attempt,
				}
			}
		}

		outcome, transient := r.attempt(ctx, body, signature, timestamp)
		if !transient {
			outcome.Attempts = attempt + 1
			return outcome
		}
		lastErr = fmt.Errorf("attempt %d: transport failure", attempt+1)
	}

	fmt.Printf("[Webhook] Unreachable after %d attempts for %s: %v\n", r.config.MaxRetries+1, bundle.CorrelationID, lastErr)
	return domain.DispatchOutcome{
		Status:   domain.DispatchFailed,
		Failure:  domain.FailureWebhookUnreachable,
		Attempts: r.config.MaxRetries + 1,
	}
}

// attempt performs one HTTP call. The second return reports whether the
// failure is transient (retryable).
func (r *webhookRepo) attempt(ctx context.Context, body []byte, signature, timestamp string) (domain.DispatchOutcome, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.URL, bytes.NewReader(body))
	if err != nil {
		return domain.DispatchOutcome{Status: domain.DispatchFailed, Failure: domain.FailureWebhookRejected}, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "issue-relay/1.0")
	req.Header.Set("X-Webhook-Signature", "sha256="+signature)
	req.Header.Set("X-Webhook-Timestamp", timestamp)

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.DispatchOutcome{}, true
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fmt.Printf("[Webhook] Rejected with status %d\n", resp.StatusCode)
		return domain.DispatchOutcome{Status: domain.DispatchFailed, Failure: domain.FailureWebhookRejected}, false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.DispatchOutcome{Status: domain.DispatchFailed, Failure: domain.FailureMalformedResponse}, false
	}

	var parsed WebhookResponse
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.Status == "" {
		return domain.DispatchOutcome{Status: domain.DispatchFailed, Failure: domain.FailureMalformedResponse}, false
	}

	switch parsed.Status {
	case "created":
		return domain.DispatchOutcome{
			Status:    domain.DispatchSucceeded,
			TicketRef: parsed.TicketReference,
			Message:   parsed.Message,
		}, false
	case "no-issue":
		return domain.DispatchOutcome{
			Status:  domain.DispatchSucceeded,
			NoIssue: true,
			Message: parsed.Message,
		}, false
	case "error":
		return domain.DispatchOutcome{
			Status:  domain.DispatchFailed,
			Failure: domain.FailureWebhookRejected,
			Message: parsed.Message,
		}, false
	default:
		return domain.DispatchOutcome{Status: domain.DispatchFailed, Failure: domain.FailureMalformedResponse}, false
	}
}

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// SignatureHeader carries the HMAC-SHA256 of the body when a secret is set.
const SignatureHeader = "X-SmartPick-Signature"

// EventSearchCompleted is sent when a search run finishes.
const EventSearchCompleted = "search.completed"

// Event is the payload sent to webhook endpoints.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	RunID     string `json:"run_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType, runID string, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RunID:     runID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
}

// Sender posts events to one endpoint, retrying on transport errors and
// 5xx responses.
type Sender struct {
	client *resty.Client
	url    string
	secret string
}

// NewSender creates a Sender. retries is the number of extra attempts.
func NewSender(url, secret string, retries int) *Sender {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(retries).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "SmartPick-Webhook/1.0").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &Sender{client: client, url: url, secret: secret}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends event and waits for the endpoint to accept it.
func (s *Sender) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req := s.client.R().SetContext(ctx).SetBody(body)
	if s.secret != "" {
		req.SetHeader(SignatureHeader, Sign(s.secret, body))
	}

	resp, err := req.Post(s.url)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode())
	}
	return nil
}

// DeliverAsync sends event in the background and logs the outcome.
func (s *Sender) DeliverAsync(event *Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.Deliver(ctx, event); err != nil {
			slog.Error("webhook delivery failed",
				"url", s.url,
				"event", event.Type,
				"run", event.RunID,
				"error", err,
			)
			return
		}
		slog.Info("webhook delivered",
			"url", s.url,
			"event", event.Type,
			"run", event.RunID,
		)
	}()
}

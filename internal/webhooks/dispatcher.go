package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/kbchat/internal/metrics"
	"github.com/ziadkadry99/kbchat/internal/tasks"
)

const (
	// DefaultTimeout bounds a single delivery.
	DefaultTimeout = 10 * time.Second

	SignatureHeader = "X-Webhook-Signature"
	EventHeader     = "X-Webhook-Event"

	maxResponseBody = 1000
)

// Sign returns the base64 HMAC-SHA256 of body keyed by secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Dispatcher fans events out to subscribed webhooks.
type Dispatcher struct {
	store   *Store
	client  *http.Client
	timeout time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
	runner  *tasks.Runner
	now     func() time.Time
}

// NewDispatcher creates a Dispatcher. A non-positive timeout uses
// DefaultTimeout; m may be nil.
func NewDispatcher(store *Store, timeout time.Duration, log *zap.Logger, m *metrics.Metrics, runner *tasks.Runner) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		store:   store,
		client:  &http.Client{},
		timeout: timeout,
		log:     log,
		metrics: m,
		runner:  runner,
		now:     time.Now,
	}
}

// Publish dispatches in the background and returns immediately.
func (d *Dispatcher) Publish(botID string, event Event, data any) {
	d.runner.Go("webhook."+string(event), func(ctx context.Context) error {
		return d.Dispatch(ctx, botID, event, data)
	})
}

// Dispatch delivers event to every active subscriber of botID concurrently
// and waits for all of them. Individual delivery failures are logged to the
// delivery log, not returned.
func (d *Dispatcher) Dispatch(ctx context.Context, botID string, event Event, data any) error {
	hooks, err := d.store.ListActive(ctx, botID, event)
	if err != nil {
		return fmt.Errorf("loading webhooks: %w", err)
	}
	if len(hooks) == 0 {
		return nil
	}

	body, err := json.Marshal(Envelope{
		Event:     event,
		Timestamp: d.now().UTC().Format(time.RFC3339Nano),
		BotID:     botID,
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("marshalling envelope: %w", err)
	}

	var g errgroup.Group
	for _, h := range hooks {
		h := h
		g.Go(func() error {
			d.deliver(ctx, h, event, body)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, h Webhook, event Event, body []byte) {
	entry := DeliveryLog{
		WebhookID: h.ID,
		BotID:     h.BotID,
		EventType: event,
		Payload:   string(body),
	}

	start := time.Now()
	status, respBody, err := d.send(ctx, h, event, body)
	entry.DurationMS = time.Since(start).Milliseconds()

	outcome := "success"
	switch {
	case err != nil:
		entry.ErrorMessage = err.Error()
		outcome = "network_error"
	default:
		entry.StatusCode = &status
		entry.ResponseBody = respBody
		entry.Success = status >= 200 && status < 300
		if !entry.Success {
			outcome = "http_error"
		}
	}
	d.metrics.ObserveWebhook(string(event), outcome)

	if outcome != "success" {
		d.log.Warn("webhook delivery failed",
			zap.String("webhook_id", h.ID),
			zap.String("event", string(event)),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	if err := d.store.LogDelivery(ctx, entry); err != nil {
		d.log.Error("writing webhook delivery log", zap.String("webhook_id", h.ID), zap.Error(err))
	}
}

func (d *Dispatcher) send(ctx context.Context, h Webhook, event Event, body []byte) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("creating webhook request: %w", err)
	}
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, string(event))
	if h.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(h.Secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	return resp.StatusCode, string(trimPartialRune(respBody)), nil
}

// trimPartialRune drops a multi-byte rune cut off at the end of b.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax-1 && len(b) > 0; i++ {
		if r, size := utf8.DecodeLastRune(b); r != utf8.RuneError || size != 1 {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

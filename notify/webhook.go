package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"worker-transcribe/config"
	"worker-transcribe/constant"
	"worker-transcribe/dto"
)

type WebhookNotifier struct {
	httpClient *http.Client
	maxRetries uint
}

func NewWebhookNotifier(cfg config.Webhook) *WebhookNotifier {
	return &WebhookNotifier{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries: cfg.MaxRetries,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, target string, event constant.EventType, payload dto.WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Event-Type", string(event))

		resp, err := n.httpClient.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return struct{}{}, fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 10 * time.Second
	_, err = backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(n.maxRetries))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("target", target).
			Str("event", string(event)).
			Msg("failed to deliver webhook after all retries")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("target", target).
		Str("event", string(event)).
		Msg("webhook delivered")
	return nil
}

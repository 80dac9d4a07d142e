package notify

import (
	"context"

	"worker-transcribe/constant"
	"worker-transcribe/dto"
)

// Notifier delivers terminal job outcomes to an external callback target.
// Delivery failures are the caller's to log; they never change job state.
type Notifier interface {
	Notify(ctx context.Context, target string, event constant.EventType, payload dto.WebhookPayload) error
}

// NopNotifier drops every event. Used when webhook delivery is disabled.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, target string, event constant.EventType, payload dto.WebhookPayload) error {
	return nil
}

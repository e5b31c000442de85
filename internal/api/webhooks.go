package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// WebhookEvents are the events a webhook can subscribe to.
var WebhookEvents = []string{"budget.exceeded", "budget.warning", "anomaly.detected"}

// List returns all webhooks.
func (s WebhooksService) List(ctx context.Context) ([]Webhook, error) {
	var result []Webhook
	if err := s.do(ctx, http.MethodGet, "/api/webhooks", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Create registers a webhook.
func (s WebhooksService) Create(ctx context.Context, req CreateWebhookRequest) (*Webhook, error) {
	if req.URL == "" {
		return nil, errors.New("webhook URL is required")
	}
	if len(req.Events) == 0 {
		return nil, errors.New("at least one webhook event is required")
	}
	var result Webhook
	if err := s.do(ctx, http.MethodPost, "/api/webhooks", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a webhook.
func (s WebhooksService) Delete(ctx context.Context, id string) error {
	return s.Client.Delete(ctx, "/api/webhooks/"+url.PathEscape(id))
}

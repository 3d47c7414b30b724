package nationbuilder

import (
	"context"
	"iter"
	"net/http"
)

// WebhookVersion is the payload version this package understands.
const WebhookVersion = 4

// WebhookEvent is an event a webhook can subscribe to.
type WebhookEvent string

const (
	EventPersonCreation    WebhookEvent = "person_creation"
	EventPersonChanged     WebhookEvent = "person_changed"
	EventPersonContacted   WebhookEvent = "person_contacted"
	EventPersonDestroyed   WebhookEvent = "person_destroyed"
	EventPersonMerged      WebhookEvent = "person_merged"
	EventDonationSucceeded WebhookEvent = "donation_succeeded"
	EventDonationChanged   WebhookEvent = "donation_changed"
	EventDonationFailed    WebhookEvent = "donation_failed"
	EventDonationCanceled  WebhookEvent = "donation_canceled"
)

// Webhook is a registered webhook.
type Webhook struct {
	ID      string       `json:"id,omitempty"`
	Version int          `json:"version,omitempty"`
	URL     string       `json:"url,omitempty"`
	Event   WebhookEvent `json:"event,omitempty"`
}

// WebhookResponse wraps a single webhook.
type WebhookResponse struct {
	Webhook Webhook `json:"webhook"`
}

// Webhooks retrieves a page of the webhooks registered by the nation.
func (c *Client) Webhooks(ctx context.Context, params LimitParams) (*Page[Webhook], error) {
	return getPage[Webhook](ctx, c, apiPath("webhooks"), params)
}

// WebhooksIter returns an iterator over all registered webhooks.
func (c *Client) WebhooksIter(ctx context.Context) iter.Seq2[Webhook, error] {
	return iterate(ctx, pages(c, func(ctx context.Context) (*Page[Webhook], error) {
		return c.Webhooks(ctx, LimitParams{Limit: iterLimit})
	}))
}

// ShowWebhook retrieves a webhook by its id.
func (c *Client) ShowWebhook(ctx context.Context, id string) (*Webhook, error) {
	req, err := c.newRequest(ctx, http.MethodGet, apiPath("webhooks", id), nil, nil)
	if err != nil {
		return nil, err
	}

	var result WebhookResponse
	if _, err := c.doJSON(req, &result); err != nil {
		return nil, err
	}

	return &result.Webhook, nil
}

// CreateWebhook registers a webhook that fires on w.Event.
// The version defaults to [WebhookVersion].
func (c *Client) CreateWebhook(ctx context.Context, w Webhook) (*Webhook, error) {
	if w.Version == 0 {
		w.Version = WebhookVersion
	}

	req, err := c.newRequest(ctx, http.MethodPost, apiPath("webhooks"), nil, WebhookResponse{Webhook: w})
	if err != nil {
		return nil, err
	}

	var result WebhookResponse
	if _, err := c.doJSON(req, &result); err != nil {
		return nil, err
	}

	return &result.Webhook, nil
}

// DestroyWebhook removes a webhook so NationBuilder stops sending events to it.
func (c *Client) DestroyWebhook(ctx context.Context, id string) error {
	return c.destroy(ctx, apiPath("webhooks", id))
}

package service

import (
	"context"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

// Publisher delivers committed events to the event hub and to webhook
// subscribers. Both legs are non-blocking, so it is safe to call while
// holding a transition lock.
type Publisher struct {
	hub      *EventHub
	webhooks *WebhookService
}

// NewPublisher creates a Publisher. Either target may be nil.
func NewPublisher(hub *EventHub, webhooks *WebhookService) *Publisher {
	return &Publisher{hub: hub, webhooks: webhooks}
}

func (p *Publisher) Publish(_ context.Context, ev domain.Event) {
	if p.hub != nil {
		p.hub.Broadcast(ev)
	}
	if p.webhooks != nil {
		p.webhooks.Dispatch(ev)
	}
}

package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bullmarketlab/keymarket/internal/domain"
	"github.com/bullmarketlab/keymarket/internal/store"
)

// Valid webhook event types, in the order they are listed in errors.
var webhookEvents = []string{
	domain.EventKeyBought,
	domain.EventKeySold,
	domain.EventQuestionAsked,
	domain.EventQuestionAnswered,
}

// partyAttributes are the event attributes that name an interested
// address. Transfer recipients are parties too.
var partyAttributes = []string{"buyer", "seller", "asker"}

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	Subscriber string
	URL        string
	Events     []string
}

// WebhookService handles webhook CRUD and event dispatch.
type WebhookService struct {
	store  *store.WebhookStore
	client *http.Client
}

// NewWebhookService creates a new WebhookService with the given dependencies.
func NewWebhookService(webhookStore *store.WebhookStore, webhookTimeout time.Duration) *WebhookService {
	return &WebhookService{
		store: webhookStore,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
	}
}

func isWebhookEvent(event string) bool {
	for _, e := range webhookEvents {
		if e == event {
			return true
		}
	}
	return false
}

// Upsert validates the request and creates or updates webhook subscriptions.
// Returns the resulting webhooks, whether any new subscriptions were created, and any error.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	subscriber, err := domain.ParseAddress(req.Subscriber)
	if err != nil {
		return nil, false, err
	}

	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	// Deduplicate events while preserving order and validating.
	seen := make(map[string]bool, len(req.Events))
	events := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !isWebhookEvent(event) {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + event + ". Must be one of: " + strings.Join(webhookEvents, ", "),
			}
		}
		if !seen[event] {
			seen[event] = true
			events = append(events, event)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(events))

	for _, event := range events {
		w, created := s.store.Upsert(&domain.Webhook{
			WebhookID:  uuid.New().String(),
			Subscriber: subscriber,
			Event:      event,
			URL:        req.URL,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if created {
			anyCreated = true
		}
		webhooks = append(webhooks, w)
	}

	return webhooks, anyCreated, nil
}

// List returns all webhook subscriptions of a subscriber address.
func (s *WebhookService) List(subscriber string) ([]*domain.Webhook, error) {
	addr, err := domain.ParseAddress(subscriber)
	if err != nil {
		return nil, err
	}
	return s.store.ListBySubscriber(addr), nil
}

// Delete removes a webhook subscription by ID.
func (s *WebhookService) Delete(webhookID string) error {
	return s.store.Delete(webhookID)
}

type eventPayload struct {
	Event     string    `json:"event"`
	Timestamp string    `json:"timestamp"`
	Data      eventData `json:"data"`
}

type eventData struct {
	TxID       string            `json:"tx_id"`
	Attributes map[string]string `json:"attributes"`
	Transfers  []transferData    `json:"transfers"`
}

type transferData struct {
	To     string `json:"to"`
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

func buildEventPayload(ev domain.Event) eventPayload {
	attrs := make(map[string]string, len(ev.Attributes))
	for _, a := range ev.Attributes {
		attrs[a.Key] = a.Value
	}
	transfers := make([]transferData, len(ev.Transfers))
	for i, tr := range ev.Transfers {
		transfers[i] = transferData{
			To:     tr.To.String(),
			Denom:  tr.Coin.Denom,
			Amount: tr.Coin.Amount.String(),
		}
	}
	return eventPayload{
		Event:     ev.Type,
		Timestamp: ev.Timestamp.UTC().Truncate(time.Second).Format(time.RFC3339),
		Data: eventData{
			TxID:       ev.TxID,
			Attributes: attrs,
			Transfers:  transfers,
		},
	}
}

// eventParties returns every address an event concerns, without duplicates.
func eventParties(ev domain.Event) []domain.Address {
	seen := make(map[domain.Address]bool)
	var parties []domain.Address
	add := func(a domain.Address) {
		if a != "" && !seen[a] {
			seen[a] = true
			parties = append(parties, a)
		}
	}
	for _, key := range partyAttributes {
		if v, ok := ev.Attr(key); ok {
			add(domain.Address(v))
		}
	}
	for _, tr := range ev.Transfers {
		add(tr.To)
	}
	return parties
}

// Dispatch sends the event to the matching subscription of every party
// of the event. Fire-and-forget.
func (s *WebhookService) Dispatch(ev domain.Event) {
	var payload *eventPayload
	for _, party := range eventParties(ev) {
		wh := s.store.Lookup(party, ev.Type)
		if wh == nil {
			continue
		}
		if payload == nil {
			p := buildEventPayload(ev)
			payload = &p
		}
		go s.deliver(wh, ev.Type, payload)
	}
}

// deliver sends the webhook payload via HTTP POST with the required headers.
// Errors are silently ignored (fire-and-forget).
func (s *WebhookService) deliver(wh *domain.Webhook, eventType string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", eventType)

	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

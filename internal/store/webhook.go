package store

import (
	"sort"
	"sync"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

// WebhookStore is a thread-safe in-memory store for webhook
// subscriptions, indexed by ID and by (subscriber, event).
type WebhookStore struct {
	mu           sync.RWMutex
	webhooks     map[string]*domain.Webhook
	bySubscriber map[domain.Address]map[string]*domain.Webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks:     make(map[string]*domain.Webhook),
		bySubscriber: make(map[domain.Address]map[string]*domain.Webhook),
	}
}

// Upsert inserts a subscription or, if the subscriber already has one
// for the event, points it at the new URL keeping its ID. Returns the
// stored webhook and whether it was newly created.
func (s *WebhookStore) Upsert(w *domain.Webhook) (*domain.Webhook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.bySubscriber[w.Subscriber]
	if existing, ok := events[w.Event]; ok {
		if existing.URL != w.URL {
			existing.URL = w.URL
			existing.UpdatedAt = w.UpdatedAt
		}
		return existing, false
	}

	if events == nil {
		events = make(map[string]*domain.Webhook)
		s.bySubscriber[w.Subscriber] = events
	}
	events[w.Event] = w
	s.webhooks[w.WebhookID] = w
	return w, true
}

// ListBySubscriber returns the subscriber's webhooks ordered by event name.
func (s *WebhookStore) ListBySubscriber(subscriber domain.Address) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.bySubscriber[subscriber]
	result := make([]*domain.Webhook, 0, len(events))
	for _, w := range events {
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Event < result[j].Event })
	return result
}

// Delete removes a webhook by ID from both indexes. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.webhooks, id)

	if events, ok := s.bySubscriber[w.Subscriber]; ok {
		delete(events, w.Event)
		if len(events) == 0 {
			delete(s.bySubscriber, w.Subscriber)
		}
	}
	return nil
}

// Lookup returns the subscriber's webhook for event, or nil.
func (s *WebhookStore) Lookup(subscriber domain.Address, event string) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bySubscriber[subscriber][event]
}

package domain

import "time"

// Webhook represents an address's subscription to an event notification.
type Webhook struct {
	WebhookID  string
	Subscriber Address
	Event      string
	URL        string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

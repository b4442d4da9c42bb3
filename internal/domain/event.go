package domain

import "time"

// Event types published after a committed state transition.
const (
	EventKeyBought        = "key.bought"
	EventKeySold          = "key.sold"
	EventQuestionAsked    = "question.asked"
	EventQuestionAnswered = "question.answered"
)

// Transfer is an outbound bank-send instruction produced by a transition.
type Transfer struct {
	To   Address
	Coin Coin
}

// Attribute is a key/value fact emitted by a transition.
type Attribute struct {
	Key   string
	Value string
}

// Event describes a committed transition for subscribers.
type Event struct {
	TxID       string
	Type       string
	Attributes []Attribute
	Transfers  []Transfer
	Timestamp  time.Time
}

// Attr returns the value of the first attribute with the given key.
func (e *Event) Attr(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

package domain

import "time"

// Question is a paid question addressed to the market's account owner.
type Question struct {
	ID         uint64
	Asker      Address
	Content    string
	Answered   bool
	Answer     *string
	AskedAt    time.Time
	AnsweredAt *time.Time
}

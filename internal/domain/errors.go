package domain

import (
	"errors"
	"fmt"

	"lukechampine.com/uint128"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrNotInstantiated         = errors.New("market_not_instantiated")
	ErrAlreadyInstantiated     = errors.New("market_already_instantiated")
	ErrAccountOwnerNotSet      = errors.New("Account owner must be set to issue key")
	ErrIssuerCannotSellLastKey = errors.New("Issuer cannot sell last key")
	ErrOnlyOwnerCanAnswer      = errors.New("Only account owner can answer the question")
	ErrQuestionNotFound        = errors.New("question_not_found")
	ErrWebhookNotFound         = errors.New("webhook_not_found")
	ErrOverflow                = errors.New("arithmetic_overflow")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InsufficientFundsError is returned when the attached payment does not
// cover the total cost of an operation.
type InsufficientFundsError struct {
	Required uint128.Uint128
	Paid     uint128.Uint128
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("Insufficient funds, required: %s, paid: %s", e.Required, e.Paid)
}

// CannotSellMoreThanOwnedError is returned when a seller asks to sell
// more keys than their current balance.
type CannotSellMoreThanOwnedError struct {
	Owned  uint128.Uint128
	ToSell uint128.Uint128
}

func (e *CannotSellMoreThanOwnedError) Error() string {
	return fmt.Sprintf("Cannot sell more than owned, owned: %s, to sell: %s", e.Owned, e.ToSell)
}

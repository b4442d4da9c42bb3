package domain

import (
	"errors"
	"fmt"
	"testing"

	"lukechampine.com/uint128"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "no funds sent"}
	if err.Error() != "no funds sent" {
		t.Errorf("Error() = %q, want %q", err.Error(), "no funds sent")
	}
}

func TestInsufficientFundsError_Error(t *testing.T) {
	err := &InsufficientFundsError{Required: uint128.From64(252656), Paid: uint128.From64(1)}
	want := "Insufficient funds, required: 252656, paid: 1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCannotSellMoreThanOwnedError_Error(t *testing.T) {
	err := &CannotSellMoreThanOwnedError{Owned: uint128.From64(3), ToSell: uint128.From64(5)}
	want := "Cannot sell more than owned, owned: 3, to sell: 5"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestTypedErrors_SurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("sell_key: %w", &CannotSellMoreThanOwnedError{Owned: uint128.Zero, ToSell: uint128.From64(1)})

	var target *CannotSellMoreThanOwnedError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As failed to find CannotSellMoreThanOwnedError")
	}
	if !target.Owned.IsZero() {
		t.Errorf("Owned = %s, want 0", target.Owned)
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	errs := []error{
		ErrNotInstantiated,
		ErrAlreadyInstantiated,
		ErrAccountOwnerNotSet,
		ErrIssuerCannotSellLastKey,
		ErrOnlyOwnerCanAnswer,
		ErrQuestionNotFound,
		ErrWebhookNotFound,
		ErrOverflow,
	}
	for i := 0; i < len(errs); i++ {
		for j := i + 1; j < len(errs); j++ {
			if errors.Is(errs[i], errs[j]) {
				t.Errorf("sentinel errors %d and %d should be distinct", i, j)
			}
		}
	}
}

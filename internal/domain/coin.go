package domain

import (
	"fmt"

	"lukechampine.com/uint128"
)

// Coin is an amount of a single payment denomination.
type Coin struct {
	Denom  string
	Amount uint128.Uint128
}

// Funds is the set of coins attached to a payable message.
type Funds []Coin

// MustPay returns the amount paid in denom. Exactly one non-zero coin of
// the expected denomination must be attached.
func MustPay(funds Funds, denom string) (uint128.Uint128, error) {
	switch {
	case len(funds) == 0:
		return uint128.Zero, &ValidationError{Message: "no funds sent"}
	case len(funds) > 1:
		return uint128.Zero, &ValidationError{Message: "sent more than one denomination"}
	}

	coin := funds[0]
	if coin.Amount.IsZero() {
		return uint128.Zero, &ValidationError{Message: "no funds sent"}
	}
	if coin.Denom != denom {
		return uint128.Zero, &ValidationError{
			Message: fmt.Sprintf("must send reserve token '%s'", denom),
		}
	}
	return coin.Amount, nil
}

// Nonpayable rejects any attached funds.
func Nonpayable(funds Funds) error {
	if len(funds) > 0 {
		return &ValidationError{Message: "this message does not accept funds"}
	}
	return nil
}

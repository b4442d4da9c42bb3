// Package pricing implements the key bonding curve and the issuer fee.
//
// The curve charges i² scaled units for the key that moves supply from i
// to i+1, so the cost of a range of keys is a difference of partial sums
// of squares. Selling prices the same range a buy would have covered,
// which makes buy(s, a) == sell(s+a, a) for every s and a.
package pricing

import (
	"fmt"

	"lukechampine.com/uint128"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

const (
	// Scale and Divisor set the steepness of the curve in the smallest
	// unit of the payment denomination.
	Scale   = 1_000_000
	Divisor = 1_600

	// IssuerFeePercent is charged on top of every buy and sell.
	IssuerFeePercent = 5
)

var six = uint128.From64(6)

// sumOfSquares returns S(n) = n(n-1)(2n-1)/6, the sum of i² for i in
// [0, n). S(0) = S(1) = 0.
func sumOfSquares(n uint128.Uint128) (uint128.Uint128, error) {
	if n.Cmp64(1) <= 0 {
		return uint128.Zero, nil
	}
	nMinus1 := n.Sub64(1)
	twoNMinus1, err := add(nMinus1, n)
	if err != nil {
		return uint128.Zero, err
	}

	// One of n, n-1 is even and one of n, n-1, 2n-1 is divisible by 3.
	// Dividing early keeps the intermediate product small.
	a, b, c := n, nMinus1, twoNMinus1
	if a.Mod64(2) == 0 {
		a = a.Div64(2)
	} else {
		b = b.Div64(2)
	}
	switch {
	case a.Mod64(3) == 0:
		a = a.Div64(3)
	case b.Mod64(3) == 0:
		b = b.Div64(3)
	default:
		c = c.Div64(3)
	}

	ab, err := mul(a, b)
	if err != nil {
		return uint128.Zero, err
	}
	return mul(ab, c)
}

// Price returns the cost of moving supply from supply to supply+amount.
// Price(s, 0) is always zero.
func Price(supply, amount uint128.Uint128) (uint128.Uint128, error) {
	if amount.IsZero() {
		return uint128.Zero, nil
	}

	sum1, err := sumOfSquares(supply)
	if err != nil {
		return uint128.Zero, err
	}

	var sum2 uint128.Uint128
	if !(supply.IsZero() && amount.Equals64(1)) {
		end, err := add(supply, amount)
		if err != nil {
			return uint128.Zero, err
		}
		if sum2, err = sumOfSquares(end); err != nil {
			return uint128.Zero, err
		}
	}

	// S is monotone in n, so sum2 >= sum1 for every reachable pair.
	if sum2.Cmp(sum1) < 0 {
		panic(fmt.Sprintf("pricing: curve not monotone at supply=%s amount=%s", supply, amount))
	}

	scaled, err := mul(sum2.Sub(sum1), uint128.From64(Scale))
	if err != nil {
		return uint128.Zero, err
	}
	return scaled.Div64(Divisor), nil
}

// BuyPrice returns the price of buying amount keys at the current supply.
func BuyPrice(supplyBeforeBuy, amount uint128.Uint128) (uint128.Uint128, error) {
	return Price(supplyBeforeBuy, amount)
}

// SellPrice returns the proceeds of selling amount keys at the current
// supply: the price of the buy that would have taken supply from
// supplyBeforeSell-amount back to supplyBeforeSell.
func SellPrice(supplyBeforeSell, amount uint128.Uint128) (uint128.Uint128, error) {
	if amount.Cmp(supplyBeforeSell) > 0 {
		return uint128.Zero, &domain.ValidationError{
			Message: fmt.Sprintf("cannot sell %s keys from a supply of %s", amount, supplyBeforeSell),
		}
	}
	return Price(supplyBeforeSell.Sub(amount), amount)
}

// Fee returns price * percent / 100, truncated toward zero.
func Fee(price uint128.Uint128, percent uint32) (uint128.Uint128, error) {
	scaled, err := mul(price, uint128.From64(uint64(percent)))
	if err != nil {
		return uint128.Zero, err
	}
	return scaled.Div64(100), nil
}

// Quote is the cost breakdown of a buy or sell.
type Quote struct {
	Price     uint128.Uint128
	IssuerFee uint128.Uint128
	TotalCost uint128.Uint128
}

// QuoteBuy prices a buy. The buyer pays price plus fee.
func QuoteBuy(supply, amount uint128.Uint128) (Quote, error) {
	price, err := BuyPrice(supply, amount)
	if err != nil {
		return Quote{}, err
	}
	fee, err := Fee(price, IssuerFeePercent)
	if err != nil {
		return Quote{}, err
	}
	total, err := add(price, fee)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Price: price, IssuerFee: fee, TotalCost: total}, nil
}

// QuoteSell prices a sell. The seller pays only the fee; the price is
// returned to them as proceeds.
func QuoteSell(supply, amount uint128.Uint128) (Quote, error) {
	price, err := SellPrice(supply, amount)
	if err != nil {
		return Quote{}, err
	}
	fee, err := Fee(price, IssuerFeePercent)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Price: price, IssuerFee: fee, TotalCost: fee}, nil
}

func add(a, b uint128.Uint128) (uint128.Uint128, error) {
	if a.Cmp(uint128.Max.Sub(b)) > 0 {
		return uint128.Zero, domain.ErrOverflow
	}
	return a.Add(b), nil
}

func mul(a, b uint128.Uint128) (uint128.Uint128, error) {
	if a.IsZero() || b.IsZero() {
		return uint128.Zero, nil
	}
	if b.Cmp(uint128.Max.Div(a)) > 0 {
		return uint128.Zero, domain.ErrOverflow
	}
	return a.Mul(b), nil
}

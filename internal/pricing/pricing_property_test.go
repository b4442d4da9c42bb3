package pricing

import (
	"testing"

	"lukechampine.com/uint128"
	"pgregory.net/rapid"
)

func drawSupplyAmount(t *rapid.T) (uint128.Uint128, uint128.Uint128) {
	s := rapid.Uint64Range(0, 1_000_000).Draw(t, "supply")
	a := rapid.Uint64Range(0, 1_000_000).Draw(t, "amount")
	return uint128.From64(s), uint128.From64(a)
}

func TestProperty_PriceIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, a := drawSupplyAmount(t)

		p1, err1 := BuyPrice(s, a)
		p2, err2 := BuyPrice(s, a)
		if err1 != nil || err2 != nil {
			t.Fatalf("BuyPrice(%s, %s) errors: %v, %v", s, a, err1, err2)
		}
		if p1 != p2 {
			t.Fatalf("BuyPrice(%s, %s) not deterministic: %s vs %s", s, a, p1, p2)
		}
	})
}

func TestProperty_ZeroAmountIsFree(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := uint128.From64(rapid.Uint64().Draw(t, "supply"))
		p, err := BuyPrice(s, uint128.Zero)
		if err != nil {
			t.Fatalf("BuyPrice(%s, 0) unexpected error: %v", s, err)
		}
		if !p.IsZero() {
			t.Fatalf("BuyPrice(%s, 0) = %s, want 0", s, p)
		}
	})
}

func TestProperty_BuySellSymmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, a := drawSupplyAmount(t)

		buy, err := BuyPrice(s, a)
		if err != nil {
			t.Fatalf("BuyPrice(%s, %s) unexpected error: %v", s, a, err)
		}
		sell, err := SellPrice(s.Add(a), a)
		if err != nil {
			t.Fatalf("SellPrice(%s, %s) unexpected error: %v", s.Add(a), a, err)
		}
		if buy != sell {
			t.Fatalf("buy(%s, %s) = %s but sell(%s, %s) = %s", s, a, buy, s.Add(a), a, sell)
		}
	})
}

func TestProperty_PriceIsAdditive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, a := drawSupplyAmount(t)
		b := uint128.From64(rapid.Uint64Range(0, 1_000_000).Draw(t, "second"))

		first, err := Price(s, a)
		if err != nil {
			t.Fatal(err)
		}
		second, err := Price(s.Add(a), b)
		if err != nil {
			t.Fatal(err)
		}
		whole, err := Price(s, a.Add(b))
		if err != nil {
			t.Fatal(err)
		}
		if first.Add(second) != whole {
			t.Fatalf("price(%s,%s)+price(%s,%s) = %s, want price(%s,%s) = %s",
				s, a, s.Add(a), b, first.Add(second), s, a.Add(b), whole)
		}
	})
}

func TestProperty_PriceNonDecreasingInSupply(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, a := drawSupplyAmount(t)

		lower, err := Price(s, a)
		if err != nil {
			t.Fatal(err)
		}
		higher, err := Price(s.Add64(1), a)
		if err != nil {
			t.Fatal(err)
		}
		if higher.Cmp(lower) < 0 {
			t.Fatalf("price(%s, %s) = %s > price(%s, %s) = %s", s, a, lower, s.Add64(1), a, higher)
		}
	})
}

package pricing

import (
	"errors"
	"math"
	"testing"

	"lukechampine.com/uint128"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

func u(v uint64) uint128.Uint128 { return uint128.From64(v) }

func TestSumOfSquares(t *testing.T) {
	tests := []struct {
		n    uint64
		want uint64
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{3, 5},
		{6, 55},
		{11, 385},
		{100, 328350},
	}

	for _, tt := range tests {
		got, err := sumOfSquares(u(tt.n))
		if err != nil {
			t.Fatalf("sumOfSquares(%d) unexpected error: %v", tt.n, err)
		}
		if !got.Equals64(tt.want) {
			t.Errorf("sumOfSquares(%d) = %s, want %d", tt.n, got, tt.want)
		}
	}
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name   string
		supply uint64
		amount uint64
		want   uint64
	}{
		{"zero amount", 7, 0, 0},
		{"first key from empty supply", 0, 1, 0},
		{"two keys from empty supply", 0, 2, 625},
		{"second key", 1, 1, 625},
		{"ten keys after issuer key", 1, 10, 240625},
		{"five keys from six", 6, 5, 206250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Price(u(tt.supply), u(tt.amount))
			if err != nil {
				t.Fatalf("Price(%d, %d) unexpected error: %v", tt.supply, tt.amount, err)
			}
			if !got.Equals64(tt.want) {
				t.Errorf("Price(%d, %d) = %s, want %d", tt.supply, tt.amount, got, tt.want)
			}
		})
	}
}

func TestSellPrice_MatchesReverseBuy(t *testing.T) {
	sell, err := SellPrice(u(11), u(5))
	if err != nil {
		t.Fatalf("SellPrice() unexpected error: %v", err)
	}
	if !sell.Equals64(206250) {
		t.Errorf("SellPrice(11, 5) = %s, want 206250", sell)
	}
}

func TestSellPrice_MoreThanSupply(t *testing.T) {
	_, err := SellPrice(u(3), u(4))
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("SellPrice(3, 4) error = %v, want ValidationError", err)
	}
}

func TestPrice_Overflow(t *testing.T) {
	_, err := Price(u(math.MaxUint64), u(1))
	if !errors.Is(err, domain.ErrOverflow) {
		t.Fatalf("Price(MaxUint64, 1) error = %v, want ErrOverflow", err)
	}

	_, err = Price(uint128.Max, u(1))
	if !errors.Is(err, domain.ErrOverflow) {
		t.Fatalf("Price(Max, 1) error = %v, want ErrOverflow", err)
	}
}

func TestFee(t *testing.T) {
	tests := []struct {
		price   uint64
		percent uint32
		want    uint64
	}{
		{0, 5, 0},
		{19, 5, 0},
		{20, 5, 1},
		{240625, 5, 12031},
		{206250, 5, 10312},
		{100, 100, 100},
	}

	for _, tt := range tests {
		got, err := Fee(u(tt.price), tt.percent)
		if err != nil {
			t.Fatalf("Fee(%d, %d) unexpected error: %v", tt.price, tt.percent, err)
		}
		if !got.Equals64(tt.want) {
			t.Errorf("Fee(%d, %d) = %s, want %d", tt.price, tt.percent, got, tt.want)
		}
	}
}

func TestQuoteBuy(t *testing.T) {
	q, err := QuoteBuy(u(1), u(10))
	if err != nil {
		t.Fatalf("QuoteBuy() unexpected error: %v", err)
	}
	if !q.Price.Equals64(240625) || !q.IssuerFee.Equals64(12031) || !q.TotalCost.Equals64(252656) {
		t.Errorf("QuoteBuy(1, 10) = %+v, want price=240625 fee=12031 total=252656", q)
	}
}

func TestQuoteSell_TotalIsFeeOnly(t *testing.T) {
	q, err := QuoteSell(u(11), u(5))
	if err != nil {
		t.Fatalf("QuoteSell() unexpected error: %v", err)
	}
	if !q.Price.Equals64(206250) || !q.IssuerFee.Equals64(10312) {
		t.Errorf("QuoteSell(11, 5) = %+v, want price=206250 fee=10312", q)
	}
	if q.TotalCost != q.IssuerFee {
		t.Errorf("TotalCost = %s, want issuer fee %s", q.TotalCost, q.IssuerFee)
	}
}

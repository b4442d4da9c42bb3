package market

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"lukechampine.com/uint128"
	"pgregory.net/rapid"

	"github.com/bullmarketlab/keymarket/internal/account"
	"github.com/bullmarketlab/keymarket/internal/domain"
	"github.com/bullmarketlab/keymarket/internal/store"
)

var traders = []domain.Address{issuer, buyer, other, "mock1cccccc"}

func newPropertyMarket(t *rapid.T) *Market {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New(store.NewMemoryLedger(), account.NewOwnerRegistry(issuer), nil, logger)
	if _, err := m.Instantiate(context.Background(), InstantiateRequest{
		Username:           "alice",
		FeeDenom:           denom,
		IssuerFeeCollector: collector.String(),
	}); err != nil {
		t.Fatalf("Instantiate() unexpected error: %v", err)
	}
	return m
}

// exactPayment attaches total, or a single unit when total is zero so
// the payment check still passes.
func exactPayment(sender domain.Address, total uint128.Uint128) MessageInfo {
	if total.IsZero() {
		total = uint128.From64(1)
	}
	return MessageInfo{Sender: sender, Funds: domain.Funds{{Denom: denom, Amount: total}}}
}

// After any sequence of buys and sells, supply equals the sum of holder
// balances and the issuer keeps at least one key.

func TestProperty_SupplyEqualsSumOfBalances(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		m := newPropertyMarket(t)

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			trader := rapid.SampledFrom(traders).Draw(t, "trader")
			amount := uint128.From64(rapid.Uint64Range(1, 20).Draw(t, "amount"))

			if rapid.Bool().Draw(t, "buy") {
				quote, err := m.BuyKeyCost(ctx, amount)
				if err != nil {
					t.Fatalf("BuyKeyCost() unexpected error: %v", err)
				}
				if _, err := m.BuyKey(ctx, exactPayment(trader, quote.TotalCost), amount); err != nil {
					t.Fatalf("BuyKey() unexpected error: %v", err)
				}
				continue
			}

			quote, err := m.SellKeyCost(ctx, amount)
			if err != nil {
				// Selling more than the supply cannot be quoted.
				continue
			}
			_, err = m.SellKey(ctx, exactPayment(trader, quote.TotalCost), amount)
			var over *domain.CannotSellMoreThanOwnedError
			if err != nil && !errors.As(err, &over) && !errors.Is(err, domain.ErrIssuerCannotSellLastKey) {
				t.Fatalf("SellKey() unexpected error: %v", err)
			}
		}

		info, err := m.Issuer(ctx)
		if err != nil {
			t.Fatalf("Issuer() unexpected error: %v", err)
		}
		limit := uint32(MaxQueryLimit)
		holders, err := m.Holders(ctx, &limit, "")
		if err != nil {
			t.Fatalf("Holders() unexpected error: %v", err)
		}

		sum := uint128.Zero
		for _, h := range holders {
			amount, err := m.Holding(ctx, h.String())
			if err != nil {
				t.Fatalf("Holding() unexpected error: %v", err)
			}
			if amount.IsZero() {
				t.Fatalf("holder %s listed with zero balance", h)
			}
			sum = sum.Add(amount)
		}
		if sum != info.Supply {
			t.Fatalf("supply %s != sum of balances %s", info.Supply, sum)
		}

		issuerKeys, _ := m.Holding(ctx, issuer.String())
		if issuerKeys.IsZero() {
			t.Fatal("issuer lost their last key")
		}
	})
}

// Buying a range and immediately selling it back returns the buy price
// as proceeds.

func TestProperty_BuySellRoundTripProceeds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		m := newPropertyMarket(t)
		amount := uint128.From64(rapid.Uint64Range(1, 1000).Draw(t, "amount"))

		buyQuote, err := m.BuyKeyCost(ctx, amount)
		if err != nil {
			t.Fatalf("BuyKeyCost() unexpected error: %v", err)
		}
		if _, err := m.BuyKey(ctx, exactPayment(buyer, buyQuote.TotalCost), amount); err != nil {
			t.Fatalf("BuyKey() unexpected error: %v", err)
		}

		sellQuote, err := m.SellKeyCost(ctx, amount)
		if err != nil {
			t.Fatalf("SellKeyCost() unexpected error: %v", err)
		}
		resp, err := m.SellKey(ctx, exactPayment(buyer, sellQuote.TotalCost), amount)
		if err != nil {
			t.Fatalf("SellKey() unexpected error: %v", err)
		}
		if proceeds := resp.Transfers[1].Coin.Amount; proceeds != buyQuote.Price {
			t.Fatalf("proceeds %s != buy price %s", proceeds, buyQuote.Price)
		}

		info, _ := m.Issuer(ctx)
		if !info.Supply.Equals64(1) {
			t.Fatalf("supply = %s after round trip, want 1", info.Supply)
		}
	})
}

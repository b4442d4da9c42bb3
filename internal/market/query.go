package market

import (
	"context"

	"lukechampine.com/uint128"

	"github.com/bullmarketlab/keymarket/internal/domain"
	"github.com/bullmarketlab/keymarket/internal/pricing"
)

// IssuerInfo is the market config together with the current supply.
type IssuerInfo struct {
	Username           string
	FeeDenom           string
	IssuerFeeCollector domain.Address
	Supply             uint128.Uint128
}

func (m *Market) Issuer(ctx context.Context) (IssuerInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, err := m.ledger.LoadConfig(ctx)
	if err != nil {
		return IssuerInfo{}, err
	}
	supply, err := m.ledger.LoadSupply(ctx)
	if err != nil {
		return IssuerInfo{}, err
	}
	return IssuerInfo{
		Username:           cfg.Username,
		FeeDenom:           cfg.FeeDenom,
		IssuerFeeCollector: cfg.IssuerFeeCollector,
		Supply:             supply,
	}, nil
}

// BuyKeyCost quotes a buy of amount keys at the current supply.
func (m *Market) BuyKeyCost(ctx context.Context, amount uint128.Uint128) (pricing.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	supply, err := m.ledger.LoadSupply(ctx)
	if err != nil {
		return pricing.Quote{}, err
	}
	return pricing.QuoteBuy(supply, amount)
}

// SellKeyCost quotes a sell of amount keys at the current supply. The
// total cost of a sell is the issuer fee alone.
func (m *Market) SellKeyCost(ctx context.Context, amount uint128.Uint128) (pricing.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	supply, err := m.ledger.LoadSupply(ctx)
	if err != nil {
		return pricing.Quote{}, err
	}
	return pricing.QuoteSell(supply, amount)
}

// Holders lists holder addresses in ascending order. limit defaults to
// DefaultQueryLimit and is capped at MaxQueryLimit; startAfter, when
// non-empty, must be a valid address and is excluded from the page.
func (m *Market) Holders(ctx context.Context, limit *uint32, startAfter string) ([]domain.Address, error) {
	var after domain.Address
	if startAfter != "" {
		addr, err := domain.ParseAddress(startAfter)
		if err != nil {
			return nil, err
		}
		after = addr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	holdings, err := m.ledger.Holders(ctx, after, PageLimit(limit))
	if err != nil {
		return nil, err
	}
	addrs := make([]domain.Address, len(holdings))
	for i, h := range holdings {
		addrs[i] = h.Holder
	}
	return addrs, nil
}

// Holding returns the holder's balance, zero if they hold no keys.
func (m *Market) Holding(ctx context.Context, holder string) (uint128.Uint128, error) {
	addr, err := domain.ParseAddress(holder)
	if err != nil {
		return uint128.Zero, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	amount, _, err := m.ledger.LoadHolder(ctx, addr)
	return amount, err
}

// PageLimit resolves an optional listing limit.
func PageLimit(limit *uint32) int {
	if limit == nil {
		return DefaultQueryLimit
	}
	return int(min(*limit, MaxQueryLimit))
}

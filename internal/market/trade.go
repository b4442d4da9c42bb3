package market

import (
	"context"

	"github.com/google/uuid"
	"lukechampine.com/uint128"

	"github.com/bullmarketlab/keymarket/internal/domain"
	"github.com/bullmarketlab/keymarket/internal/pricing"
	"github.com/bullmarketlab/keymarket/internal/store"
)

// BuyKey sells amount new keys to the sender. The attached payment must
// cover price plus issuer fee; any excess stays with the market. The fee
// is transferred to the issuer fee collector and the price is kept as
// backing for future sells.
func (m *Market) BuyKey(ctx context.Context, info MessageInfo, amount uint128.Uint128) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buyer := info.Sender
	cfg, err := m.ledger.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	paid, err := domain.MustPay(info.Funds, cfg.FeeDenom)
	if err != nil {
		return nil, err
	}
	supply, err := m.ledger.LoadSupply(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := pricing.QuoteBuy(supply, amount)
	if err != nil {
		return nil, err
	}
	if quote.TotalCost.Cmp(paid) > 0 {
		return nil, &domain.InsufficientFundsError{Required: quote.TotalCost, Paid: paid}
	}

	if !amount.IsZero() {
		err = m.ledger.Update(ctx, func(tx store.Ledger) error {
			newSupply, err := checkedAdd(supply, amount)
			if err != nil {
				return err
			}
			owned, _, err := tx.LoadHolder(ctx, buyer)
			if err != nil {
				return err
			}
			balance, err := checkedAdd(owned, amount)
			if err != nil {
				return err
			}
			if err := tx.SaveSupply(ctx, newSupply); err != nil {
				return err
			}
			return tx.SaveHolder(ctx, buyer, balance)
		})
		if err != nil {
			return nil, err
		}
	}

	resp := &Response{
		TxID:   uuid.New().String(),
		Action: "buy_key",
		Transfers: []domain.Transfer{
			{To: cfg.IssuerFeeCollector, Coin: domain.Coin{Denom: cfg.FeeDenom, Amount: quote.IssuerFee}},
		},
		Attributes: []domain.Attribute{
			{Key: "action", Value: "buy_key"},
			{Key: "buyer", Value: buyer.String()},
			{Key: "amount", Value: amount.String()},
		},
	}

	m.logger.Info("key bought",
		"tx_id", resp.TxID,
		"buyer", buyer,
		"amount", amount.String(),
		"price", quote.Price.String(),
		"issuer_fee", quote.IssuerFee.String(),
		"paid", paid.String(),
	)
	m.publish(ctx, domain.EventKeyBought, resp)
	return resp, nil
}

// SellKey buys amount keys back from the sender at the sell price. The
// seller attaches the issuer fee as payment and receives the full price
// as proceeds. The issuer can never sell their last key.
func (m *Market) SellKey(ctx context.Context, info MessageInfo, amount uint128.Uint128) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seller := info.Sender
	issuer, err := m.issuers.ResolveIssuer(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := m.ledger.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	paid, err := domain.MustPay(info.Funds, cfg.FeeDenom)
	if err != nil {
		return nil, err
	}
	supply, err := m.ledger.LoadSupply(ctx)
	if err != nil {
		return nil, err
	}
	owned, holds, err := m.ledger.LoadHolder(ctx, seller)
	if err != nil {
		return nil, err
	}

	// A sell larger than the supply cannot be priced. No holder can own
	// more than the supply, so it is always an over-sell.
	if amount.Cmp(supply) > 0 {
		return nil, &domain.CannotSellMoreThanOwnedError{Owned: owned, ToSell: amount}
	}

	quote, err := pricing.QuoteSell(supply, amount)
	if err != nil {
		return nil, err
	}
	if quote.TotalCost.Cmp(paid) > 0 {
		return nil, &domain.InsufficientFundsError{Required: quote.TotalCost, Paid: paid}
	}
	if !holds || amount.Cmp(owned) > 0 {
		return nil, &domain.CannotSellMoreThanOwnedError{Owned: owned, ToSell: amount}
	}
	if seller == issuer && amount.Equals(owned) {
		return nil, domain.ErrIssuerCannotSellLastKey
	}

	if !amount.IsZero() {
		err = m.ledger.Update(ctx, func(tx store.Ledger) error {
			if err := tx.SaveSupply(ctx, supply.Sub(amount)); err != nil {
				return err
			}
			remaining := owned.Sub(amount)
			if remaining.IsZero() {
				return tx.RemoveHolder(ctx, seller)
			}
			return tx.SaveHolder(ctx, seller, remaining)
		})
		if err != nil {
			return nil, err
		}
	}

	resp := &Response{
		TxID:   uuid.New().String(),
		Action: "sell_key",
		Transfers: []domain.Transfer{
			{To: cfg.IssuerFeeCollector, Coin: domain.Coin{Denom: cfg.FeeDenom, Amount: quote.IssuerFee}},
			{To: seller, Coin: domain.Coin{Denom: cfg.FeeDenom, Amount: quote.Price}},
		},
		Attributes: []domain.Attribute{
			{Key: "action", Value: "sell_key"},
			{Key: "seller", Value: seller.String()},
			{Key: "amount", Value: amount.String()},
		},
	}

	m.logger.Info("key sold",
		"tx_id", resp.TxID,
		"seller", seller,
		"amount", amount.String(),
		"price", quote.Price.String(),
		"issuer_fee", quote.IssuerFee.String(),
		"paid", paid.String(),
	)
	m.publish(ctx, domain.EventKeySold, resp)
	return resp, nil
}

func checkedAdd(a, b uint128.Uint128) (uint128.Uint128, error) {
	if a.Cmp(uint128.Max.Sub(b)) > 0 {
		return uint128.Zero, domain.ErrOverflow
	}
	return a.Add(b), nil
}

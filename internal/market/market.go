// Package market runs a single key market: the issuer's keys are bought
// and sold against a sum-of-squares bonding curve, and every trade pays a
// fixed issuer fee to the configured collector.
//
// All state transitions are serialized. A transition validates fully
// before its first write, and its writes are committed through a single
// store.Ledger.Update, so a failed transition never leaves partial state.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"lukechampine.com/uint128"

	"github.com/bullmarketlab/keymarket/internal/account"
	"github.com/bullmarketlab/keymarket/internal/domain"
	"github.com/bullmarketlab/keymarket/internal/store"
)

const (
	// DefaultQueryLimit is the page size used when a listing has no limit.
	DefaultQueryLimit = 10
	// MaxQueryLimit caps the page size of every listing.
	MaxQueryLimit = 30
)

// EventSink receives an event after each committed transition.
type EventSink interface {
	Publish(ctx context.Context, ev domain.Event)
}

// MessageInfo identifies the sender of a transition and the coins they
// attached to it.
type MessageInfo struct {
	Sender domain.Address
	Funds  domain.Funds
}

// Response is the outcome of a committed transition.
type Response struct {
	TxID       string
	Action     string
	Transfers  []domain.Transfer
	Attributes []domain.Attribute
}

// InstantiateRequest is the genesis configuration of a market.
type InstantiateRequest struct {
	Username           string
	FeeDenom           string
	IssuerFeeCollector string
}

// Market executes trades and answers queries against a Ledger.
type Market struct {
	mu      sync.RWMutex
	ledger  store.Ledger
	issuers account.IssuerResolver
	sink    EventSink
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Market. sink may be nil.
func New(
	ledger store.Ledger,
	issuers account.IssuerResolver,
	sink EventSink,
	logger *slog.Logger,
) *Market {
	return &Market{
		ledger:  ledger,
		issuers: issuers,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
	}
}

// Instantiate stores the market config and issues the first key to the
// account owner. It fails with domain.ErrAlreadyInstantiated on a market
// that already has a config.
func (m *Market) Instantiate(ctx context.Context, req InstantiateRequest) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, err := m.issuers.ResolveIssuer(ctx)
	if err != nil {
		return nil, err
	}
	collector, err := domain.ParseAddress(req.IssuerFeeCollector)
	if err != nil {
		return nil, err
	}
	if req.FeeDenom == "" {
		return nil, &domain.ValidationError{Message: "fee_denom is required"}
	}

	cfg := domain.MarketConfig{
		Username:           req.Username,
		FeeDenom:           req.FeeDenom,
		IssuerFeeCollector: collector,
	}
	one := uint128.From64(1)

	err = m.ledger.Update(ctx, func(tx store.Ledger) error {
		if err := tx.SaveConfig(ctx, cfg); err != nil {
			return err
		}
		if err := tx.SaveSupply(ctx, one); err != nil {
			return err
		}
		return tx.SaveHolder(ctx, owner, one)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("market instantiated",
		"owner", owner,
		"username", cfg.Username,
		"fee_denom", cfg.FeeDenom,
		"issuer_fee_collector", cfg.IssuerFeeCollector,
	)

	return &Response{
		TxID:   uuid.New().String(),
		Action: "instantiate",
		Attributes: []domain.Attribute{
			{Key: "action", Value: "instantiate"},
			{Key: "account_owner", Value: owner.String()},
			{Key: "username", Value: cfg.Username},
			{Key: "fee_denom", Value: cfg.FeeDenom},
			{Key: "issuer_fee_collector", Value: cfg.IssuerFeeCollector.String()},
		},
	}, nil
}

// Instantiated reports whether the market has a stored config.
func (m *Market) Instantiated(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := m.ledger.LoadConfig(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotInstantiated):
		return false, nil
	default:
		return false, fmt.Errorf("load config: %w", err)
	}
}

// publish hands a committed response to the sink as an event. Callers
// hold the write lock so events reach the sink in commit order.
func (m *Market) publish(ctx context.Context, eventType string, resp *Response) {
	if m.sink == nil {
		return
	}
	m.sink.Publish(ctx, domain.Event{
		TxID:       resp.TxID,
		Type:       eventType,
		Attributes: resp.Attributes,
		Transfers:  resp.Transfers,
		Timestamp:  m.now().UTC(),
	})
}

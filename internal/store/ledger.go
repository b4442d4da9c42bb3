package store

import (
	"context"

	"lukechampine.com/uint128"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

// Ledger holds a market's config, total supply, and holder balances. It
// is a dumb store: callers are responsible for keeping supply equal to
// the sum of balances.
type Ledger interface {
	LedgerReader

	// SaveConfig stores the market config. It returns
	// domain.ErrAlreadyInstantiated if a config is already stored.
	SaveConfig(ctx context.Context, cfg domain.MarketConfig) error
	SaveSupply(ctx context.Context, supply uint128.Uint128) error
	// SaveHolder stores a non-zero balance. Zero balances must be
	// removed with RemoveHolder instead.
	SaveHolder(ctx context.Context, holder domain.Address, amount uint128.Uint128) error
	RemoveHolder(ctx context.Context, holder domain.Address) error

	// Update runs fn against a transactional view of the ledger. Writes
	// made through the view are applied only if fn returns nil.
	Update(ctx context.Context, fn func(tx Ledger) error) error
}

// LedgerReader is the read side of a Ledger.
type LedgerReader interface {
	// LoadConfig returns domain.ErrNotInstantiated if no config is stored.
	LoadConfig(ctx context.Context) (domain.MarketConfig, error)
	// LoadSupply returns domain.ErrNotInstantiated if no supply is stored.
	LoadSupply(ctx context.Context) (uint128.Uint128, error)
	// LoadHolder returns the holder's balance, or (0, false) if absent.
	LoadHolder(ctx context.Context, holder domain.Address) (uint128.Uint128, bool, error)
	// Holders returns up to limit holdings in ascending address order,
	// starting strictly after startAfter when it is non-empty.
	Holders(ctx context.Context, startAfter domain.Address, limit int) ([]domain.Holding, error)
}

// errZeroBalance is returned by SaveHolder for zero amounts.
var errZeroBalance = &domain.ValidationError{Message: "holder balance must be non-zero"}

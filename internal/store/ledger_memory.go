package store

import (
	"context"
	"sync"

	"github.com/google/btree"
	"lukechampine.com/uint128"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

func holdingLess(a, b domain.Holding) bool {
	return a.Holder < b.Holder
}

// MemoryLedger is a thread-safe in-memory Ledger. Holders are kept in a
// B-tree ordered by address so listing is a range scan.
type MemoryLedger struct {
	mu      sync.RWMutex
	config  *domain.MarketConfig
	supply  *uint128.Uint128
	holders *btree.BTreeG[domain.Holding]
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	const degree = 32
	return &MemoryLedger{
		holders: btree.NewG[domain.Holding](degree, holdingLess),
	}
}

func (l *MemoryLedger) LoadConfig(_ context.Context) (domain.MarketConfig, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.config == nil {
		return domain.MarketConfig{}, domain.ErrNotInstantiated
	}
	return *l.config, nil
}

func (l *MemoryLedger) SaveConfig(_ context.Context, cfg domain.MarketConfig) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.config != nil {
		return domain.ErrAlreadyInstantiated
	}
	l.config = &cfg
	return nil
}

func (l *MemoryLedger) LoadSupply(_ context.Context) (uint128.Uint128, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.supply == nil {
		return uint128.Zero, domain.ErrNotInstantiated
	}
	return *l.supply, nil
}

func (l *MemoryLedger) SaveSupply(_ context.Context, supply uint128.Uint128) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.supply = &supply
	return nil
}

func (l *MemoryLedger) LoadHolder(_ context.Context, holder domain.Address) (uint128.Uint128, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	h, ok := l.holders.Get(domain.Holding{Holder: holder})
	if !ok {
		return uint128.Zero, false, nil
	}
	return h.Amount, true, nil
}

func (l *MemoryLedger) SaveHolder(_ context.Context, holder domain.Address, amount uint128.Uint128) error {
	if amount.IsZero() {
		return errZeroBalance
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.holders.ReplaceOrInsert(domain.Holding{Holder: holder, Amount: amount})
	return nil
}

func (l *MemoryLedger) RemoveHolder(_ context.Context, holder domain.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.holders.Delete(domain.Holding{Holder: holder})
	return nil
}

func (l *MemoryLedger) Holders(_ context.Context, startAfter domain.Address, limit int) ([]domain.Holding, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]domain.Holding, 0, limit)
	if limit <= 0 {
		return result, nil
	}
	l.holders.AscendGreaterOrEqual(domain.Holding{Holder: startAfter}, func(h domain.Holding) bool {
		if startAfter != "" && h.Holder == startAfter {
			return true
		}
		result = append(result, h)
		return len(result) < limit
	})
	return result, nil
}

// Update buffers fn's writes in an overlay and applies them under the
// write lock once fn succeeds.
func (l *MemoryLedger) Update(ctx context.Context, fn func(tx Ledger) error) error {
	tx := &memoryTx{
		parent:  l,
		holders: make(map[domain.Address]*uint128.Uint128),
	}
	if err := fn(tx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if tx.config != nil {
		if l.config != nil {
			return domain.ErrAlreadyInstantiated
		}
		l.config = tx.config
	}
	if tx.supply != nil {
		l.supply = tx.supply
	}
	for holder, amount := range tx.holders {
		if amount == nil {
			l.holders.Delete(domain.Holding{Holder: holder})
			continue
		}
		l.holders.ReplaceOrInsert(domain.Holding{Holder: holder, Amount: *amount})
	}
	return nil
}

// memoryTx is the overlay view handed to Update callbacks. A nil entry
// in holders marks a removal.
type memoryTx struct {
	parent  *MemoryLedger
	config  *domain.MarketConfig
	supply  *uint128.Uint128
	holders map[domain.Address]*uint128.Uint128
}

func (tx *memoryTx) LoadConfig(ctx context.Context) (domain.MarketConfig, error) {
	if tx.config != nil {
		return *tx.config, nil
	}
	return tx.parent.LoadConfig(ctx)
}

func (tx *memoryTx) SaveConfig(ctx context.Context, cfg domain.MarketConfig) error {
	if tx.config != nil {
		return domain.ErrAlreadyInstantiated
	}
	if _, err := tx.parent.LoadConfig(ctx); err == nil {
		return domain.ErrAlreadyInstantiated
	}
	tx.config = &cfg
	return nil
}

func (tx *memoryTx) LoadSupply(ctx context.Context) (uint128.Uint128, error) {
	if tx.supply != nil {
		return *tx.supply, nil
	}
	return tx.parent.LoadSupply(ctx)
}

func (tx *memoryTx) SaveSupply(_ context.Context, supply uint128.Uint128) error {
	tx.supply = &supply
	return nil
}

func (tx *memoryTx) LoadHolder(ctx context.Context, holder domain.Address) (uint128.Uint128, bool, error) {
	if amount, ok := tx.holders[holder]; ok {
		if amount == nil {
			return uint128.Zero, false, nil
		}
		return *amount, true, nil
	}
	return tx.parent.LoadHolder(ctx, holder)
}

func (tx *memoryTx) SaveHolder(_ context.Context, holder domain.Address, amount uint128.Uint128) error {
	if amount.IsZero() {
		return errZeroBalance
	}
	tx.holders[holder] = &amount
	return nil
}

func (tx *memoryTx) RemoveHolder(_ context.Context, holder domain.Address) error {
	tx.holders[holder] = nil
	return nil
}

// Holders reads committed state only. Transitions never list holders.
func (tx *memoryTx) Holders(ctx context.Context, startAfter domain.Address, limit int) ([]domain.Holding, error) {
	return tx.parent.Holders(ctx, startAfter, limit)
}

func (tx *memoryTx) Update(_ context.Context, fn func(tx Ledger) error) error {
	return fn(tx)
}

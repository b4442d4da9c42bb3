// Package account tracks which address owns the market's account. The
// owner is the issuer of the market's keys.
package account

import (
	"context"
	"sync"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

// IssuerResolver resolves the current issuer of a market. It returns
// domain.ErrAccountOwnerNotSet while no owner is registered.
type IssuerResolver interface {
	ResolveIssuer(ctx context.Context) (domain.Address, error)
}

// OwnerRegistry is an in-process IssuerResolver. The owner can change
// over the market's lifetime; every resolve sees the latest value.
type OwnerRegistry struct {
	mu    sync.RWMutex
	owner domain.Address
}

// NewOwnerRegistry creates a registry, optionally seeded with an owner.
func NewOwnerRegistry(owner domain.Address) *OwnerRegistry {
	return &OwnerRegistry{owner: owner}
}

// Set replaces the registered owner.
func (r *OwnerRegistry) Set(owner domain.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owner = owner
}

// Clear unregisters the owner.
func (r *OwnerRegistry) Clear() {
	r.Set("")
}

func (r *OwnerRegistry) ResolveIssuer(_ context.Context) (domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.owner == "" {
		return "", domain.ErrAccountOwnerNotSet
	}
	return r.owner, nil
}

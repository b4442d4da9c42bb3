package account

import (
	"context"
	"errors"
	"testing"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

func TestOwnerRegistry_ResolveIssuer(t *testing.T) {
	ctx := context.Background()
	r := NewOwnerRegistry("")

	if _, err := r.ResolveIssuer(ctx); !errors.Is(err, domain.ErrAccountOwnerNotSet) {
		t.Fatalf("ResolveIssuer() on empty registry = %v, want ErrAccountOwnerNotSet", err)
	}

	r.Set("mock1owner0")
	got, err := r.ResolveIssuer(ctx)
	if err != nil {
		t.Fatalf("ResolveIssuer() unexpected error: %v", err)
	}
	if got != "mock1owner0" {
		t.Errorf("ResolveIssuer() = %s, want mock1owner0", got)
	}

	r.Set("mock1owner2")
	if got, _ := r.ResolveIssuer(ctx); got != "mock1owner2" {
		t.Errorf("ResolveIssuer() after Set = %s, want mock1owner2", got)
	}

	r.Clear()
	if _, err := r.ResolveIssuer(ctx); !errors.Is(err, domain.ErrAccountOwnerNotSet) {
		t.Errorf("ResolveIssuer() after Clear = %v, want ErrAccountOwnerNotSet", err)
	}
}

func TestNewOwnerRegistry_Seeded(t *testing.T) {
	r := NewOwnerRegistry("mock1seeded")
	got, err := r.ResolveIssuer(context.Background())
	if err != nil || got != "mock1seeded" {
		t.Fatalf("ResolveIssuer() = (%s, %v), want mock1seeded", got, err)
	}
}

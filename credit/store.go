package credit

import (
	"context"

	"github.com/kkunes/controlrentas/id"
)

// Store is the persistence interface for credit balances.
type Store interface {
	Create(ctx context.Context, c *CreditBalance) error
	Get(ctx context.Context, creditID id.CreditID) (*CreditBalance, error)
	// List returns every credit balance ordered by created date descending.
	List(ctx context.Context, opts ListOpts) ([]*CreditBalance, error)
	// ListByTenant returns a tenant's credit balances in insertion order.
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*CreditBalance, error)
	Update(ctx context.Context, c *CreditBalance) error
	Delete(ctx context.Context, creditID id.CreditID) error
	// DeleteByTenant removes every credit balance for a tenant as one
	// all-or-nothing batch. Returns the number of records removed.
	DeleteByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
}

// ListOpts filters and pages credit-balance listings.
type ListOpts struct {
	Status Status // empty = all
	Limit  int
	Offset int
}

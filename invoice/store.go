package invoice

import (
	"context"

	"github.com/kkunes/controlrentas/id"
)

// Store is the persistence interface for invoices.
type Store interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, invoiceID id.InvoiceID) (*Invoice, error)
	// ListByTenant returns a tenant's invoices in insertion order.
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*Invoice, error)
	// ListOutstanding returns the tenant's invoices with status in
	// {pending, partial, overdue}, in insertion order. The credit
	// application scan depends on that order: oldest invoice first.
	ListOutstanding(ctx context.Context, tenantID id.TenantID) ([]*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
}

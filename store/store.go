// Package store defines the unified storage interface for the rent ledger.
package store

import (
	"context"

	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/property"
	"github.com/kkunes/controlrentas/tenant"
)

// Store is the unified storage interface for all ledger entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Credit balance methods
	CreateCredit(ctx context.Context, c *credit.CreditBalance) error
	GetCredit(ctx context.Context, creditID id.CreditID) (*credit.CreditBalance, error)
	ListCredits(ctx context.Context, opts credit.ListOpts) ([]*credit.CreditBalance, error)
	ListCreditsByTenant(ctx context.Context, tenantID id.TenantID) ([]*credit.CreditBalance, error)
	UpdateCredit(ctx context.Context, c *credit.CreditBalance) error
	DeleteCredit(ctx context.Context, creditID id.CreditID) error
	// DeleteCreditsByTenant removes every credit balance for a tenant as a
	// single all-or-nothing batch and returns the number removed.
	DeleteCreditsByTenant(ctx context.Context, tenantID id.TenantID) (int, error)

	// Invoice methods
	CreateInvoice(ctx context.Context, inv *invoice.Invoice) error
	GetInvoice(ctx context.Context, invoiceID id.InvoiceID) (*invoice.Invoice, error)
	ListInvoicesByTenant(ctx context.Context, tenantID id.TenantID) ([]*invoice.Invoice, error)
	ListOutstandingInvoices(ctx context.Context, tenantID id.TenantID) ([]*invoice.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error

	// SettleCredit persists a credit application as one transaction: the
	// updated invoice and the updated credit balance are written together
	// or not at all. This closes the divergence window a pair of
	// sequential single-document writes would leave open.
	SettleCredit(ctx context.Context, inv *invoice.Invoice, c *credit.CreditBalance) error

	// Lookup methods (read-only, for labeling)
	GetTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]*tenant.Tenant, error)
	GetProperty(ctx context.Context, propertyID id.PropertyID) (*property.Property, error)
	ListProperties(ctx context.Context) ([]*property.Property, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

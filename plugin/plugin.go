// Package plugin provides an extensible plugin system for the ledger.
// Plugins can hook into credit and invoice lifecycle events to extend
// functionality.
package plugin

import (
	"context"

	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized. The ledger is passed
// as interface{} to avoid an import cycle with the root package.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, ledger interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Credit lifecycle hooks
// ──────────────────────────────────────────────────

// OnCreditRegistered is called when a new credit balance is created.
type OnCreditRegistered interface {
	Plugin
	OnCreditRegistered(ctx context.Context, c *credit.CreditBalance) error
}

// OnCreditMerged is called when a registration lands on an existing
// active balance and is merged into it instead of creating a new record.
type OnCreditMerged interface {
	Plugin
	OnCreditMerged(ctx context.Context, c *credit.CreditBalance, added types.Money) error
}

// OnCreditApplied is called after a credit balance is applied to an
// invoice and both documents have been committed.
type OnCreditApplied interface {
	Plugin
	OnCreditApplied(ctx context.Context, c *credit.CreditBalance, inv *invoice.Invoice, applied types.Money) error
}

// OnCreditReset is called when an amount edit resets the remaining
// balance to the new original amount.
type OnCreditReset interface {
	Plugin
	OnCreditReset(ctx context.Context, c *credit.CreditBalance, previousRemaining types.Money) error
}

// OnCreditDeleted is called when a single credit balance is deleted.
type OnCreditDeleted interface {
	Plugin
	OnCreditDeleted(ctx context.Context, creditID id.CreditID) error
}

// OnCreditsPurged is called when a tenant's credit balances are removed
// by the cascade delete.
type OnCreditsPurged interface {
	Plugin
	OnCreditsPurged(ctx context.Context, tenantID id.TenantID, removed int) error
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceSettled is called when an invoice reaches paid status.
type OnInvoiceSettled interface {
	Plugin
	OnInvoiceSettled(ctx context.Context, inv *invoice.Invoice) error
}

// OnOverpaymentDetected is called when a recorded payment exceeds the
// invoice's pending balance and the surplus is routed to a credit.
type OnOverpaymentDetected interface {
	Plugin
	OnOverpaymentDetected(ctx context.Context, inv *invoice.Invoice, surplus types.Money) error
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnReconcileDrift is called when the reconcile worker finds a credit
// whose applications no longer account for the consumed amount.
type OnReconcileDrift interface {
	Plugin
	OnReconcileDrift(ctx context.Context, c *credit.CreditBalance, expected, actual types.Money) error
}

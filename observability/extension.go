// Package observability provides a metrics extension for the ledger that
// records lifecycle event counts through an injected MetricFactory.
package observability

import (
	"context"

	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/plugin"
	"github.com/kkunes/controlrentas/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnCreditRegistered    = (*MetricsExtension)(nil)
	_ plugin.OnCreditMerged        = (*MetricsExtension)(nil)
	_ plugin.OnCreditApplied       = (*MetricsExtension)(nil)
	_ plugin.OnCreditReset         = (*MetricsExtension)(nil)
	_ plugin.OnCreditDeleted       = (*MetricsExtension)(nil)
	_ plugin.OnCreditsPurged       = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceSettled      = (*MetricsExtension)(nil)
	_ plugin.OnOverpaymentDetected = (*MetricsExtension)(nil)
	_ plugin.OnReconcileDrift      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Ledger plugin to automatically track credit activity.
type MetricsExtension struct {
	factory MetricFactory

	// Credit metrics
	CreditRegistered Counter
	CreditMerged     Counter
	CreditApplied    Counter
	CreditReset      Counter
	CreditDeleted    Counter
	CreditsPurged    Counter
	// Amount histograms observe minor units (centavos).
	AppliedAmount    Histogram
	RegisteredAmount Histogram

	// Invoice metrics
	InvoiceSettled Counter
	Overpayments   Counter
	SurplusAmount  Histogram

	// Reconciliation metrics
	ReconcileDrift Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Credit metrics
		CreditRegistered: factory.Counter("rentas.credit.registered"),
		CreditMerged:     factory.Counter("rentas.credit.merged"),
		CreditApplied:    factory.Counter("rentas.credit.applied"),
		CreditReset:      factory.Counter("rentas.credit.reset"),
		CreditDeleted:    factory.Counter("rentas.credit.deleted"),
		CreditsPurged:    factory.Counter("rentas.credit.purged"),
		AppliedAmount:    factory.Histogram("rentas.credit.applied_amount"),
		RegisteredAmount: factory.Histogram("rentas.credit.registered_amount"),

		// Invoice metrics
		InvoiceSettled: factory.Counter("rentas.invoice.settled"),
		Overpayments:   factory.Counter("rentas.invoice.overpayments"),
		SurplusAmount:  factory.Histogram("rentas.invoice.surplus_amount"),

		// Reconciliation metrics
		ReconcileDrift: factory.Counter("rentas.reconcile.drift"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Credit lifecycle hooks
// ──────────────────────────────────────────────────

// OnCreditRegistered implements plugin.OnCreditRegistered.
func (m *MetricsExtension) OnCreditRegistered(_ context.Context, c *credit.CreditBalance) error {
	m.CreditRegistered.Inc()
	m.RegisteredAmount.Observe(float64(c.OriginalAmount.Amount))
	return nil
}

// OnCreditMerged implements plugin.OnCreditMerged.
func (m *MetricsExtension) OnCreditMerged(_ context.Context, _ *credit.CreditBalance, added types.Money) error {
	m.CreditMerged.Inc()
	m.RegisteredAmount.Observe(float64(added.Amount))
	return nil
}

// OnCreditApplied implements plugin.OnCreditApplied.
func (m *MetricsExtension) OnCreditApplied(_ context.Context, _ *credit.CreditBalance, _ *invoice.Invoice, applied types.Money) error {
	m.CreditApplied.Inc()
	m.AppliedAmount.Observe(float64(applied.Amount))
	return nil
}

// OnCreditReset implements plugin.OnCreditReset.
func (m *MetricsExtension) OnCreditReset(_ context.Context, _ *credit.CreditBalance, _ types.Money) error {
	m.CreditReset.Inc()
	return nil
}

// OnCreditDeleted implements plugin.OnCreditDeleted.
func (m *MetricsExtension) OnCreditDeleted(_ context.Context, _ id.CreditID) error {
	m.CreditDeleted.Inc()
	return nil
}

// OnCreditsPurged implements plugin.OnCreditsPurged.
func (m *MetricsExtension) OnCreditsPurged(_ context.Context, _ id.TenantID, removed int) error {
	m.CreditsPurged.Add(float64(removed))
	return nil
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceSettled implements plugin.OnInvoiceSettled.
func (m *MetricsExtension) OnInvoiceSettled(_ context.Context, _ *invoice.Invoice) error {
	m.InvoiceSettled.Inc()
	return nil
}

// OnOverpaymentDetected implements plugin.OnOverpaymentDetected.
func (m *MetricsExtension) OnOverpaymentDetected(_ context.Context, _ *invoice.Invoice, surplus types.Money) error {
	m.Overpayments.Inc()
	m.SurplusAmount.Observe(float64(surplus.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnReconcileDrift implements plugin.OnReconcileDrift.
func (m *MetricsExtension) OnReconcileDrift(_ context.Context, _ *credit.CreditBalance, _, _ types.Money) error {
	m.ReconcileDrift.Inc()
	return nil
}

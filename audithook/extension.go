// Package audithook bridges ledger lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend
// on any particular audit store. Callers inject a RecorderFunc adapter
// that bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/plugin"
	"github.com/kkunes/controlrentas/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnCreditRegistered    = (*Extension)(nil)
	_ plugin.OnCreditMerged        = (*Extension)(nil)
	_ plugin.OnCreditApplied       = (*Extension)(nil)
	_ plugin.OnCreditReset         = (*Extension)(nil)
	_ plugin.OnCreditDeleted       = (*Extension)(nil)
	_ plugin.OnCreditsPurged       = (*Extension)(nil)
	_ plugin.OnInvoiceSettled      = (*Extension)(nil)
	_ plugin.OnOverpaymentDetected = (*Extension)(nil)
	_ plugin.OnReconcileDrift      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Credit lifecycle hooks
// ──────────────────────────────────────────────────

// OnCreditRegistered implements plugin.OnCreditRegistered.
func (e *Extension) OnCreditRegistered(ctx context.Context, c *credit.CreditBalance) error {
	return e.record(ctx, ActionCreditRegistered, SeverityInfo, OutcomeSuccess,
		ResourceCredit, c.ID.String(), CategoryLedger, nil,
		"tenant_id", c.TenantID.String(),
		"amount", c.OriginalAmount.String(),
	)
}

// OnCreditMerged implements plugin.OnCreditMerged.
func (e *Extension) OnCreditMerged(ctx context.Context, c *credit.CreditBalance, added types.Money) error {
	return e.record(ctx, ActionCreditMerged, SeverityInfo, OutcomeSuccess,
		ResourceCredit, c.ID.String(), CategoryLedger, nil,
		"tenant_id", c.TenantID.String(),
		"added", added.String(),
		"remaining", c.RemainingBalance.String(),
	)
}

// OnCreditApplied implements plugin.OnCreditApplied.
func (e *Extension) OnCreditApplied(ctx context.Context, c *credit.CreditBalance, inv *invoice.Invoice, applied types.Money) error {
	return e.record(ctx, ActionCreditApplied, SeverityInfo, OutcomeSuccess,
		ResourceCredit, c.ID.String(), CategoryPayment, nil,
		"tenant_id", c.TenantID.String(),
		"invoice_id", inv.ID.String(),
		"applied", applied.String(),
		"remaining", c.RemainingBalance.String(),
		"invoice_status", string(inv.Status),
	)
}

// OnCreditReset implements plugin.OnCreditReset. An amount edit that
// wipes consumption is worth a warning in the trail.
func (e *Extension) OnCreditReset(ctx context.Context, c *credit.CreditBalance, previousRemaining types.Money) error {
	return e.record(ctx, ActionCreditReset, SeverityWarning, OutcomeSuccess,
		ResourceCredit, c.ID.String(), CategoryLedger, nil,
		"tenant_id", c.TenantID.String(),
		"previous_remaining", previousRemaining.String(),
		"new_amount", c.OriginalAmount.String(),
	)
}

// OnCreditDeleted implements plugin.OnCreditDeleted.
func (e *Extension) OnCreditDeleted(ctx context.Context, creditID id.CreditID) error {
	return e.record(ctx, ActionCreditDeleted, SeverityWarning, OutcomeSuccess,
		ResourceCredit, creditID.String(), CategoryLedger, nil)
}

// OnCreditsPurged implements plugin.OnCreditsPurged.
func (e *Extension) OnCreditsPurged(ctx context.Context, tenantID id.TenantID, removed int) error {
	return e.record(ctx, ActionCreditsPurged, SeverityWarning, OutcomeSuccess,
		ResourceTenant, tenantID.String(), CategoryLedger, nil,
		"removed", removed,
	)
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceSettled implements plugin.OnInvoiceSettled.
func (e *Extension) OnInvoiceSettled(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoiceSettled, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryPayment, nil,
		"tenant_id", inv.TenantID.String(),
		"total", inv.Total.String(),
	)
}

// OnOverpaymentDetected implements plugin.OnOverpaymentDetected.
func (e *Extension) OnOverpaymentDetected(ctx context.Context, inv *invoice.Invoice, surplus types.Money) error {
	return e.record(ctx, ActionOverpaymentDetected, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryPayment, nil,
		"tenant_id", inv.TenantID.String(),
		"surplus", surplus.String(),
	)
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnReconcileDrift implements plugin.OnReconcileDrift.
func (e *Extension) OnReconcileDrift(ctx context.Context, c *credit.CreditBalance, expected, actual types.Money) error {
	return e.record(ctx, ActionReconcileDrift, SeverityCritical, OutcomeFailure,
		ResourceCredit, c.ID.String(), CategoryAudit, nil,
		"tenant_id", c.TenantID.String(),
		"expected_remaining", expected.String(),
		"actual_remaining", actual.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audithook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

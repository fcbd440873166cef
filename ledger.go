package rentas

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/plugin"
	"github.com/kkunes/controlrentas/property"
	"github.com/kkunes/controlrentas/store"
	"github.com/kkunes/controlrentas/types"
)

// Ledger is the credit-balance engine. It owns every read and write of
// credit and invoice records; UI layers talk to it through the command
// boundary and never touch the store directly.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time

	// Background worker
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	reconcileInterval time.Duration
}

// New creates a new Ledger on the given store.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:             s,
		plugins:           plugin.NewRegistry(),
		logger:            slog.Default(),
		clock:             time.Now,
		stopChan:          make(chan struct{}),
		reconcileInterval: time.Hour,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock overrides the time source. Tests use this to pin dates.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithReconcileInterval sets how often the background worker audits the
// credit records against their application trails. Zero disables the
// worker.
func WithReconcileInterval(interval time.Duration) Option {
	return func(l *Ledger) {
		l.reconcileInterval = interval
	}
}

// Start migrates the store, initializes plugins, and begins the
// background reconcile worker.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	if l.reconcileInterval > 0 {
		l.wg.Add(1)
		go l.reconcileWorker(ctx)
	}

	l.logger.Info("ledger started",
		"reconcile_interval", l.reconcileInterval,
	)

	return nil
}

// Stop shuts down the Ledger and closes the store.
func (l *Ledger) Stop() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()

	l.plugins.EmitShutdown(context.Background())

	return l.store.Close()
}

// Plugins exposes the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// ──────────────────────────────────────────────────
// Credit listing
// ──────────────────────────────────────────────────

// ListCreditSummaries returns the per-tenant aggregated view of every
// credit record, with tenant names and property labels resolved. Repeated
// calls over unchanged data return identical output.
func (l *Ledger) ListCreditSummaries(ctx context.Context) ([]*credit.Summary, error) {
	credits, err := l.store.ListCredits(ctx, credit.ListOpts{})
	if err != nil {
		return nil, err
	}

	summaries := credit.Summarize(credits)
	if len(summaries) == 0 {
		return summaries, nil
	}

	tenants, err := l.store.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	properties, err := l.store.ListProperties(ctx)
	if err != nil {
		return nil, err
	}

	resolver := property.NewResolver(properties)
	byID := make(map[string]*tenantLabel, len(tenants))
	for _, t := range tenants {
		byID[t.ID.String()] = &tenantLabel{name: t.Name, label: resolver.Label(t)}
	}

	for _, s := range summaries {
		if tl, ok := byID[s.TenantID.String()]; ok {
			s.TenantName = tl.name
			s.PropertyLabel = tl.label
		} else {
			s.PropertyLabel = property.UnassignedLabel
		}
	}

	return summaries, nil
}

type tenantLabel struct {
	name  string
	label string
}

// GetCredit retrieves a single credit record.
func (l *Ledger) GetCredit(ctx context.Context, creditID id.CreditID) (*credit.CreditBalance, error) {
	return l.store.GetCredit(ctx, creditID)
}

// ──────────────────────────────────────────────────
// Credit application
// ──────────────────────────────────────────────────

// ApplyResult reports what one credit application did.
type ApplyResult struct {
	Credit  *credit.CreditBalance
	Invoice *invoice.Invoice
	Applied types.Money
}

// ApplyCredit applies a credit balance to the tenant's first outstanding
// invoice with a pending balance, in invoice insertion order. The applied
// amount is the smaller of the credit's remaining balance and the
// invoice's pending balance; at most one invoice is touched per call.
// Both documents commit in a single store transaction.
func (l *Ledger) ApplyCredit(ctx context.Context, creditID id.CreditID) (*ApplyResult, error) {
	c, err := l.store.GetCredit(ctx, creditID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive() {
		return nil, fmt.Errorf("%w: credit %s", ErrCreditConsumed, c.ID)
	}

	target, err := l.firstEligibleInvoice(ctx, c.TenantID)
	if err != nil {
		return nil, err
	}

	applied := c.RemainingBalance.Min(target.PendingBalance)
	now := l.clock()

	if _, err := c.Apply(target.ID, applied, now); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if _, err := target.RecordPayment(applied, now, invoice.OriginCreditBalance); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}

	if err := l.store.SettleCredit(ctx, target, c); err != nil {
		return nil, err
	}

	l.plugins.EmitCreditApplied(ctx, c, target, applied)
	if target.Status == invoice.StatusPaid {
		l.plugins.EmitInvoiceSettled(ctx, target)
	}

	l.logger.Info("credit applied",
		"credit_id", c.ID,
		"invoice_id", target.ID,
		"applied", applied,
		"remaining", c.RemainingBalance,
		"invoice_status", target.Status,
	)

	return &ApplyResult{Credit: c, Invoice: target, Applied: applied}, nil
}

// firstEligibleInvoice scans the tenant's outstanding invoices in
// insertion order and returns the first with a positive pending balance.
func (l *Ledger) firstEligibleInvoice(ctx context.Context, tenantID id.TenantID) (*invoice.Invoice, error) {
	outstanding, err := l.store.ListOutstandingInvoices(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, inv := range outstanding {
		if inv.PendingBalance.IsPositive() {
			return inv, nil
		}
	}
	return nil, fmt.Errorf("%w: tenant %s", ErrNoEligibleInvoice, tenantID)
}

// ──────────────────────────────────────────────────
// Credit registration and editing
// ──────────────────────────────────────────────────

// RegisterResult reports the outcome of a credit registration.
type RegisterResult struct {
	Credit *credit.CreditBalance
	// Merged is true when the amount was folded into an existing active
	// record instead of creating a new one.
	Merged bool
}

// RegisterCredit records new prepaid funds for a tenant. When the tenant
// already has an active credit record the amount merges into it; a fresh
// record is created only when no active one exists.
func (l *Ledger) RegisterCredit(ctx context.Context, tenantID id.TenantID, amount types.Money, note string) (*RegisterResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if _, err := l.store.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	now := l.clock()

	existing, err := l.activeCredit(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Merge(amount, note, now)
		if err := l.store.UpdateCredit(ctx, existing); err != nil {
			return nil, err
		}
		l.plugins.EmitCreditMerged(ctx, existing, amount)
		l.logger.Info("credit merged",
			"credit_id", existing.ID,
			"tenant_id", tenantID,
			"added", amount,
			"remaining", existing.RemainingBalance,
		)
		return &RegisterResult{Credit: existing, Merged: true}, nil
	}

	c := credit.New(tenantID, amount, note, now)
	if err := l.store.CreateCredit(ctx, c); err != nil {
		return nil, err
	}
	l.plugins.EmitCreditRegistered(ctx, c)
	l.logger.Info("credit registered",
		"credit_id", c.ID,
		"tenant_id", tenantID,
		"amount", amount,
	)
	return &RegisterResult{Credit: c, Merged: false}, nil
}

// activeCredit returns the tenant's first active credit record in
// insertion order, or nil.
func (l *Ledger) activeCredit(ctx context.Context, tenantID id.TenantID) (*credit.CreditBalance, error) {
	credits, err := l.store.ListCreditsByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, c := range credits {
		if c.IsActive() {
			return c, nil
		}
	}
	return nil, nil
}

// EditResult reports the outcome of a direct amount edit.
type EditResult struct {
	Credit *credit.CreditBalance
	// BalanceReset is true when the edit discarded prior consumption by
	// resetting the remaining balance to the new amount. The boundary must
	// surface this as a warning.
	BalanceReset      bool
	PreviousRemaining types.Money
}

// SetCreditAmount edits a credit record's original amount. The remaining
// balance resets to the new amount, matching the legacy edit semantics:
// prior consumption disappears from the numeric balance while the
// applications audit trail stays intact.
func (l *Ledger) SetCreditAmount(ctx context.Context, creditID id.CreditID, amount types.Money, note string) (*EditResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	c, err := l.store.GetCredit(ctx, creditID)
	if err != nil {
		return nil, err
	}

	previous := c.RemainingBalance
	reset := len(c.Applications) > 0 || !previous.Equal(c.OriginalAmount)

	c.SetAmount(amount)
	if note != "" {
		c.Description = note
	}

	if err := l.store.UpdateCredit(ctx, c); err != nil {
		return nil, err
	}

	if reset {
		l.plugins.EmitCreditReset(ctx, c, previous)
		l.logger.Warn("credit amount edit reset remaining balance",
			"credit_id", c.ID,
			"previous_remaining", previous,
			"new_amount", amount,
		)
	}

	return &EditResult{Credit: c, BalanceReset: reset, PreviousRemaining: previous}, nil
}

// ──────────────────────────────────────────────────
// Deletion
// ──────────────────────────────────────────────────

// DeleteCredit removes a single credit record permanently.
func (l *Ledger) DeleteCredit(ctx context.Context, creditID id.CreditID) error {
	if err := l.store.DeleteCredit(ctx, creditID); err != nil {
		return err
	}
	l.plugins.EmitCreditDeleted(ctx, creditID)
	l.logger.Info("credit deleted", "credit_id", creditID)
	return nil
}

// DeleteTenantCredits removes every credit record for a tenant as one
// atomic batch and returns how many were removed.
func (l *Ledger) DeleteTenantCredits(ctx context.Context, tenantID id.TenantID) (int, error) {
	removed, err := l.store.DeleteCreditsByTenant(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	l.plugins.EmitCreditsPurged(ctx, tenantID, removed)
	l.logger.Info("tenant credits purged",
		"tenant_id", tenantID,
		"removed", removed,
	)
	return removed, nil
}

// ──────────────────────────────────────────────────
// Invoice payments
// ──────────────────────────────────────────────────

// PaymentResult reports a recorded manual payment, including any surplus
// that became a credit balance.
type PaymentResult struct {
	Invoice *invoice.Invoice
	Applied types.Money
	Surplus types.Money
	// Credit is the balance that absorbed the surplus; nil when the
	// payment fit within the pending amount.
	Credit *credit.CreditBalance
}

// RecordInvoicePayment records a manual payment against an invoice. The
// invoice absorbs at most its pending balance; any surplus is registered
// as a credit balance for the tenant with an overpayment note.
func (l *Ledger) RecordInvoicePayment(ctx context.Context, invoiceID id.InvoiceID, amount types.Money) (*PaymentResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	inv, err := l.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.IsOutstanding() {
		return nil, fmt.Errorf("%w: invoice %s", ErrInvoiceSettled, inv.ID)
	}

	now := l.clock()
	applied := amount.Min(inv.PendingBalance)
	surplus := amount.Subtract(applied)

	if _, err := inv.RecordPayment(applied, now, invoice.OriginManual); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if err := l.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	if inv.Status == invoice.StatusPaid {
		l.plugins.EmitInvoiceSettled(ctx, inv)
	}

	result := &PaymentResult{Invoice: inv, Applied: applied, Surplus: surplus}

	if surplus.IsPositive() {
		l.plugins.EmitOverpaymentDetected(ctx, inv, surplus)
		note := fmt.Sprintf("overpayment on invoice %s", inv.ID)
		reg, err := l.RegisterCredit(ctx, inv.TenantID, surplus, note)
		if err != nil {
			// The payment is committed; the surplus failing to land as a
			// credit must be reported, not rolled back.
			return result, fmt.Errorf("record overpayment credit: %w", err)
		}
		result.Credit = reg.Credit
	}

	l.logger.Info("invoice payment recorded",
		"invoice_id", inv.ID,
		"applied", applied,
		"surplus", surplus,
		"status", inv.Status,
	)

	return result, nil
}

// ──────────────────────────────────────────────────
// Reconciliation worker
// ──────────────────────────────────────────────────

// reconcileWorker periodically audits credit records whose numeric
// balance no longer agrees with the applications trail. Drift is reported
// to plugins and logged; nothing is auto-corrected.
func (l *Ledger) reconcileWorker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.reconcileOnce(ctx)
		}
	}
}

func (l *Ledger) reconcileOnce(ctx context.Context) {
	credits, err := l.store.ListCredits(ctx, credit.ListOpts{})
	if err != nil {
		l.logger.Error("reconcile scan failed", "error", err)
		return
	}

	drifted := 0
	for _, c := range credits {
		if c.Reconciles() {
			continue
		}
		drifted++
		expected := c.OriginalAmount.Subtract(c.AppliedTotal())
		l.plugins.EmitReconcileDrift(ctx, c, expected, c.RemainingBalance)
		l.logger.Warn("credit does not reconcile against its applications",
			"credit_id", c.ID,
			"expected_remaining", expected,
			"actual_remaining", c.RemainingBalance,
		)
	}

	l.logger.Debug("reconcile pass finished",
		"credits", len(credits),
		"drifted", drifted,
	)
}

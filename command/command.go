// Package command is the boundary between operator surfaces and the
// ledger. It maps action identifiers to handlers through an explicit
// dispatch table, runs the confirmation protocol for destructive
// actions, and turns handler errors into notifications so the surface
// stays interactive no matter what fails.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	rentas "github.com/kkunes/controlrentas"
	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/types"
	"github.com/kkunes/controlrentas/ui"
)

// Action identifies one operator command.
type Action string

const (
	ActionListCredits   Action = "credits.list"
	ActionApplyCredit   Action = "credits.apply"
	ActionRegister      Action = "credits.register"
	ActionEditAmount    Action = "credits.edit"
	ActionDeleteCredit  Action = "credits.delete"
	ActionPurgeTenant   Action = "credits.purge"
	ActionRecordPayment Action = "invoices.pay"
)

// Request carries the parameters of one dispatched action. Fields not
// named by the action are ignored.
type Request struct {
	Action    Action
	CreditID  id.CreditID
	TenantID  id.TenantID
	InvoiceID id.InvoiceID
	Amount    types.Money
	Note      string
}

// Result is what a dispatched action produced. Err records the handler
// failure for callers that need it; the dispatcher has already notified
// and logged it.
type Result struct {
	Summaries []*credit.Summary
	Credit    *credit.CreditBalance
	Invoice   *invoice.Invoice
	Removed   int
	Err       error
}

type handlerFunc func(ctx context.Context, req Request) (*Result, error)

// Dispatcher routes requests to ledger operations.
type Dispatcher struct {
	ledger    *rentas.Ledger
	notifier  ui.Notifier
	confirmer ui.Confirmer
	logger    *slog.Logger

	handlers map[Action]handlerFunc
}

// NewDispatcher wires the command table. A nil notifier falls back to
// the log notifier; a nil confirmer declines everything, so destructive
// actions fail closed until a real surface is attached.
func NewDispatcher(ledger *rentas.Ledger, notifier ui.Notifier, confirmer ui.Confirmer, logger *slog.Logger) *Dispatcher {
	if notifier == nil {
		notifier = ui.NewLogNotifier(logger)
	}
	if confirmer == nil {
		confirmer = ui.AutoDecline{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		ledger:    ledger,
		notifier:  notifier,
		confirmer: confirmer,
		logger:    logger,
	}

	d.handlers = map[Action]handlerFunc{
		ActionListCredits:   d.listCredits,
		ActionApplyCredit:   d.applyCredit,
		ActionRegister:      d.registerCredit,
		ActionEditAmount:    d.editAmount,
		ActionDeleteCredit:  d.deleteCredit,
		ActionPurgeTenant:   d.purgeTenant,
		ActionRecordPayment: d.recordPayment,
	}

	return d
}

// Dispatch runs the request's action. Failures never propagate as
// panics or crash the surface: they are logged, notified with the
// severity the error class calls for, and recorded on the result.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *Result {
	handler, ok := d.handlers[req.Action]
	if !ok {
		err := fmt.Errorf("%w: %q", rentas.ErrUnknownAction, req.Action)
		d.logger.Error("unknown action dispatched", "action", req.Action)
		d.notify(ctx, ui.SeverityError, err.Error())
		return &Result{Err: err}
	}

	result, err := handler(ctx, req)
	if result == nil {
		result = &Result{}
	}
	if err != nil {
		result.Err = err
		d.report(ctx, req.Action, err)
	}
	return result
}

// report logs a handler failure and notifies the operator with the
// severity its class maps to: missing records and store failures are
// errors, consumed credits a warning, a missing application target just
// information.
func (d *Dispatcher) report(ctx context.Context, action Action, err error) {
	switch {
	case errors.Is(err, rentas.ErrConfirmationDeclined):
		d.logger.Info("action aborted by operator", "action", action)
		d.notify(ctx, ui.SeverityInfo, "Nothing was deleted.")
	case errors.Is(err, rentas.ErrNoEligibleInvoice):
		d.logger.Info("no application target", "action", action, "error", err)
		d.notify(ctx, ui.SeverityInfo, "No outstanding invoice to apply this credit to.")
	case errors.Is(err, rentas.ErrCreditConsumed):
		d.logger.Warn("credit already consumed", "action", action, "error", err)
		d.notify(ctx, ui.SeverityWarning, "This credit balance is already fully consumed.")
	case errors.Is(err, rentas.ErrInvalidAmount):
		d.logger.Warn("invalid amount", "action", action, "error", err)
		d.notify(ctx, ui.SeverityWarning, "The amount must be a positive number.")
	case rentas.IsNotFound(err):
		d.logger.Error("record not found", "action", action, "error", err)
		d.notify(ctx, ui.SeverityError, "The record no longer exists. Refresh the listing.")
	default:
		d.logger.Error("action failed", "action", action, "error", err)
		d.notify(ctx, ui.SeverityError, "The operation failed. No changes were saved.")
	}
}

func (d *Dispatcher) notify(ctx context.Context, severity ui.Severity, message string) {
	d.notifier.Notify(ctx, ui.Notification{Severity: severity, Message: message})
}

// confirmTwice runs the two-step confirmation protocol for destructive
// actions. Declining either prompt aborts with zero writes.
func (d *Dispatcher) confirmTwice(ctx context.Context, first, second string) error {
	if !d.confirmer.Confirm(ctx, first) {
		return rentas.ErrConfirmationDeclined
	}
	if !d.confirmer.Confirm(ctx, second) {
		return rentas.ErrConfirmationDeclined
	}
	return nil
}

// ──────────────────────────────────────────────────
// Handlers
// ──────────────────────────────────────────────────

func (d *Dispatcher) listCredits(ctx context.Context, _ Request) (*Result, error) {
	summaries, err := d.ledger.ListCreditSummaries(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Summaries: summaries}, nil
}

func (d *Dispatcher) applyCredit(ctx context.Context, req Request) (*Result, error) {
	applied, err := d.ledger.ApplyCredit(ctx, req.CreditID)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Applied %s to invoice %s.", applied.Applied, applied.Invoice.ID)
	if applied.Invoice.Status == invoice.StatusPaid {
		msg = fmt.Sprintf("Applied %s; invoice %s is now paid.", applied.Applied, applied.Invoice.ID)
	}
	d.notify(ctx, ui.SeverityInfo, msg)

	return &Result{Credit: applied.Credit, Invoice: applied.Invoice}, nil
}

func (d *Dispatcher) registerCredit(ctx context.Context, req Request) (*Result, error) {
	reg, err := d.ledger.RegisterCredit(ctx, req.TenantID, req.Amount, req.Note)
	if err != nil {
		return nil, err
	}

	if reg.Merged {
		d.notify(ctx, ui.SeverityInfo,
			fmt.Sprintf("Added %s to the existing credit balance (now %s).", req.Amount, reg.Credit.RemainingBalance))
	} else {
		d.notify(ctx, ui.SeverityInfo,
			fmt.Sprintf("Credit balance of %s registered.", req.Amount))
	}

	return &Result{Credit: reg.Credit}, nil
}

func (d *Dispatcher) editAmount(ctx context.Context, req Request) (*Result, error) {
	edit, err := d.ledger.SetCreditAmount(ctx, req.CreditID, req.Amount, req.Note)
	if err != nil {
		return nil, err
	}

	if edit.BalanceReset {
		d.notify(ctx, ui.SeverityWarning,
			fmt.Sprintf("Amount updated. The remaining balance was reset from %s to %s; prior applications stay in the history.",
				edit.PreviousRemaining, edit.Credit.RemainingBalance))
	} else {
		d.notify(ctx, ui.SeverityInfo, "Credit balance updated.")
	}

	return &Result{Credit: edit.Credit}, nil
}

func (d *Dispatcher) deleteCredit(ctx context.Context, req Request) (*Result, error) {
	err := d.confirmTwice(ctx,
		"Delete this credit balance permanently?",
		"This cannot be undone. Delete anyway?",
	)
	if err != nil {
		return nil, err
	}

	if err := d.ledger.DeleteCredit(ctx, req.CreditID); err != nil {
		return nil, err
	}

	d.notify(ctx, ui.SeverityInfo, "Credit balance deleted.")
	return &Result{}, nil
}

func (d *Dispatcher) purgeTenant(ctx context.Context, req Request) (*Result, error) {
	err := d.confirmTwice(ctx,
		"Delete ALL credit balances for this tenant?",
		"Every record and its history will be removed. Continue?",
	)
	if err != nil {
		return nil, err
	}

	removed, err := d.ledger.DeleteTenantCredits(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	d.notify(ctx, ui.SeverityInfo, fmt.Sprintf("Removed %d credit record(s).", removed))
	return &Result{Removed: removed}, nil
}

func (d *Dispatcher) recordPayment(ctx context.Context, req Request) (*Result, error) {
	payment, err := d.ledger.RecordInvoicePayment(ctx, req.InvoiceID, req.Amount)
	if err != nil {
		return nil, err
	}

	if payment.Surplus.IsPositive() {
		d.notify(ctx, ui.SeverityInfo,
			fmt.Sprintf("Payment recorded. %s over the amount owed was saved as a credit balance.", payment.Surplus))
	} else {
		d.notify(ctx, ui.SeverityInfo, "Payment recorded.")
	}

	return &Result{Invoice: payment.Invoice, Credit: payment.Credit}, nil
}

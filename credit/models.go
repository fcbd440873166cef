// Package credit defines the credit-balance (abono) ledger entities.
//
// A credit balance holds prepaid or overpaid funds for a tenant. It is
// decremented by applications against outstanding invoices and carries an
// append-only audit trail of every application ever made.
package credit

import (
	"fmt"
	"time"

	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/types"
)

// Status of a credit balance, derived from the remaining amount.
type Status string

const (
	StatusActive   Status = "active"
	StatusConsumed Status = "consumed"
)

// DescriptionSeparator joins description entries accumulated across merges.
// Legacy records already use this exact delimiter.
const DescriptionSeparator = " | "

// CreditBalance is a tenant's credit (abono / saldo a favor).
//
// Invariants:
//   - RemainingBalance >= 0
//   - RemainingBalance <= OriginalAmount
//   - Sum(Applications) + RemainingBalance == OriginalAmount, except after a
//     direct amount edit, which resets RemainingBalance to the new
//     OriginalAmount and deliberately breaks reconciliation against the
//     audit trail (see SetAmount).
type CreditBalance struct {
	types.Entity
	ID               id.CreditID   `json:"id"`
	TenantID         id.TenantID   `json:"tenant_id"`
	OriginalAmount   types.Money   `json:"original_amount"`
	RemainingBalance types.Money   `json:"remaining_balance"`
	Description      string        `json:"description"`
	CreatedDate      time.Time     `json:"created_date"`
	LastAppliedDate  time.Time     `json:"last_applied_date,omitzero"`
	Applications     []Application `json:"applications"`
}

// Application is one append-only audit entry: a deduction from this credit
// balance credited to an invoice by the same amount.
type Application struct {
	ID        id.ApplicationID `json:"id"`
	InvoiceID id.InvoiceID     `json:"invoice_id"`
	Amount    types.Money      `json:"amount"`
	Date      time.Time        `json:"date"`
}

// New creates a fresh credit balance for a tenant. The full amount is
// available immediately and the applications trail starts empty.
func New(tenantID id.TenantID, amount types.Money, note string, date time.Time) *CreditBalance {
	return &CreditBalance{
		Entity:           types.NewEntity(),
		ID:               id.NewCreditID(),
		TenantID:         tenantID,
		OriginalAmount:   amount,
		RemainingBalance: amount,
		Description:      note,
		CreatedDate:      date,
		Applications:     []Application{},
	}
}

// Status returns Active while any balance remains, Consumed otherwise.
func (c *CreditBalance) Status() Status {
	if c.RemainingBalance.IsPositive() {
		return StatusActive
	}
	return StatusConsumed
}

// IsActive reports whether any balance remains to apply.
func (c *CreditBalance) IsActive() bool {
	return c.RemainingBalance.IsPositive()
}

// Merge consolidates a new credit amount into this record instead of
// creating a duplicate. Both the original and remaining amounts grow by the
// full new amount, and the description gains a dated entry.
func (c *CreditBalance) Merge(amount types.Money, note string, date time.Time) {
	c.OriginalAmount = c.OriginalAmount.Add(amount)
	c.RemainingBalance = c.RemainingBalance.Add(amount)
	c.Description = appendDescription(c.Description, mergeNote(amount, note, date))
	c.LastAppliedDate = date
	c.Touch()
}

// Apply deducts amount from the remaining balance and appends an audit
// entry naming the invoice it was credited to. The amount must be positive
// and must not exceed the remaining balance.
func (c *CreditBalance) Apply(invoiceID id.InvoiceID, amount types.Money, date time.Time) (Application, error) {
	if !amount.IsPositive() {
		return Application{}, fmt.Errorf("credit: apply %s: amount must be positive", amount)
	}
	if amount.GreaterThan(c.RemainingBalance) {
		return Application{}, fmt.Errorf("credit: apply %s: exceeds remaining balance %s", amount, c.RemainingBalance)
	}

	entry := Application{
		ID:        id.NewApplicationID(),
		InvoiceID: invoiceID,
		Amount:    amount,
		Date:      date,
	}

	c.RemainingBalance = c.RemainingBalance.Subtract(amount)
	c.Applications = append(c.Applications, entry)
	c.LastAppliedDate = date
	c.Touch()

	return entry, nil
}

// SetAmount edits the original amount directly AND resets the remaining
// balance to the new value, discarding prior consumption from the numeric
// state. The applications audit trail is preserved, so the record stops
// reconciling against it. This mirrors the legacy edit semantics exactly;
// callers must warn the operator (see the Ledger's BalanceReset flag).
func (c *CreditBalance) SetAmount(amount types.Money) {
	c.OriginalAmount = amount
	c.RemainingBalance = amount
	c.Touch()
}

// AppliedTotal returns the sum of all application amounts.
func (c *CreditBalance) AppliedTotal() types.Money {
	total := types.Zero(c.OriginalAmount.Currency)
	for _, a := range c.Applications {
		total = total.Add(a.Amount)
	}
	return total
}

// Reconciles reports whether the numeric balance still agrees with the
// audit trail: AppliedTotal + RemainingBalance == OriginalAmount. A direct
// amount edit makes this false until the trail catches up.
func (c *CreditBalance) Reconciles() bool {
	return c.AppliedTotal().Add(c.RemainingBalance).Equal(c.OriginalAmount)
}

// appendDescription joins entries with the legacy delimiter.
func appendDescription(existing, entry string) string {
	if existing == "" {
		return entry
	}
	return existing + DescriptionSeparator + entry
}

// mergeNote formats the dated description entry recorded on every merge,
// e.g. "+$500.00 on 2026-08-29 (deposit)".
func mergeNote(amount types.Money, note string, date time.Time) string {
	if note == "" {
		return fmt.Sprintf("+%s on %s", amount, date.Format(time.DateOnly))
	}
	return fmt.Sprintf("+%s on %s (%s)", amount, date.Format(time.DateOnly), note)
}

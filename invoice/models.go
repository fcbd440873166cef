// Package invoice defines the billing-period invoice (pago) entities.
package invoice

import (
	"fmt"
	"time"

	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/types"
)

// Status of an invoice. Paid and partial are derived from the amounts;
// pending and overdue are set upstream and preserved while nothing has
// been paid.
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Payment entry origins.
const (
	OriginManual        = "manual"
	OriginCreditBalance = "credit balance"
)

// Invoice is one billing period's amount owed by a tenant.
//
// Invariant: AmountPaid + PendingBalance == Total at all times.
type Invoice struct {
	types.Entity
	ID             id.InvoiceID   `json:"id"`
	TenantID       id.TenantID    `json:"tenant_id"`
	PropertyID     id.PropertyID  `json:"property_id,omitzero"`
	Period         string         `json:"period,omitempty"` // e.g. "2026-08"
	Total          types.Money    `json:"total"`
	AmountPaid     types.Money    `json:"amount_paid"`
	PendingBalance types.Money    `json:"pending_balance"`
	Status         Status         `json:"status"`
	DueDate        time.Time      `json:"due_date,omitzero"`
	PaymentEntries []PaymentEntry `json:"payment_entries"`
}

// PaymentEntry is one append-only record of money received against this
// invoice, whether paid directly or applied from a credit balance.
type PaymentEntry struct {
	ID     id.PaymentID `json:"id"`
	Amount types.Money  `json:"amount"`
	Date   time.Time    `json:"date"`
	Origin string       `json:"origin"`
}

// New creates a pending invoice for the full amount owed.
func New(tenantID id.TenantID, propertyID id.PropertyID, total types.Money, period string, dueDate time.Time) *Invoice {
	return &Invoice{
		Entity:         types.NewEntity(),
		ID:             id.NewInvoiceID(),
		TenantID:       tenantID,
		PropertyID:     propertyID,
		Period:         period,
		Total:          total,
		AmountPaid:     types.Zero(total.Currency),
		PendingBalance: total,
		Status:         StatusPending,
		DueDate:        dueDate,
		PaymentEntries: []PaymentEntry{},
	}
}

// IsOutstanding reports whether the invoice can still receive payment.
func (i *Invoice) IsOutstanding() bool {
	return i.Status == StatusPending || i.Status == StatusPartial || i.Status == StatusOverdue
}

// RecordPayment credits amount against the invoice, appends a payment
// entry, and re-derives the status. The amount must be positive and must
// not exceed the pending balance.
func (i *Invoice) RecordPayment(amount types.Money, date time.Time, origin string) (PaymentEntry, error) {
	if !amount.IsPositive() {
		return PaymentEntry{}, fmt.Errorf("invoice: record payment %s: amount must be positive", amount)
	}
	if amount.GreaterThan(i.PendingBalance) {
		return PaymentEntry{}, fmt.Errorf("invoice: record payment %s: exceeds pending balance %s", amount, i.PendingBalance)
	}

	entry := PaymentEntry{
		ID:     id.NewPaymentID(),
		Amount: amount,
		Date:   date,
		Origin: origin,
	}

	i.AmountPaid = i.AmountPaid.Add(amount)
	i.PendingBalance = i.PendingBalance.Subtract(amount)
	i.PaymentEntries = append(i.PaymentEntries, entry)
	i.RecomputeStatus()
	i.Touch()

	return entry, nil
}

// RecomputeStatus derives the status from the amounts: paid once the full
// total is covered, partial while some but not all is covered. With nothing
// paid the prior pending/overdue status is preserved — overdue is an
// upstream judgment this derivation must not undo.
func (i *Invoice) RecomputeStatus() {
	switch {
	case !i.AmountPaid.LessThan(i.Total):
		i.Status = StatusPaid
	case i.AmountPaid.IsPositive():
		i.Status = StatusPartial
	}
}

// Balanced reports whether the amounts still satisfy the invariant
// AmountPaid + PendingBalance == Total.
func (i *Invoice) Balanced() bool {
	return i.AmountPaid.Add(i.PendingBalance).Equal(i.Total)
}

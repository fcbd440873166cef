package invoice

import (
	"testing"
	"time"

	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/types"
)

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestInvoice(total types.Money) *Invoice {
	return New(id.NewTenantID(), id.NewPropertyID(), total, "2026-08", date("2026-08-31"))
}

func TestNew(t *testing.T) {
	inv := newTestInvoice(types.MXN(120000))

	if inv.Status != StatusPending {
		t.Errorf("Status: got %v, want pending", inv.Status)
	}
	if !inv.PendingBalance.Equal(types.MXN(120000)) {
		t.Errorf("PendingBalance: got %v", inv.PendingBalance)
	}
	if !inv.AmountPaid.IsZero() {
		t.Errorf("AmountPaid: got %v, want zero", inv.AmountPaid)
	}
	if !inv.Balanced() {
		t.Error("fresh invoice must satisfy amountPaid + pending == total")
	}
	if !inv.IsOutstanding() {
		t.Error("fresh invoice must be outstanding")
	}
}

func TestRecordPayment(t *testing.T) {
	tests := []struct {
		name       string
		total      types.Money
		payments   []types.Money
		wantStatus Status
		wantPaid   types.Money
	}{
		{
			name:       "partial payment",
			total:      types.MXN(120000),
			payments:   []types.Money{types.MXN(80000)},
			wantStatus: StatusPartial,
			wantPaid:   types.MXN(80000),
		},
		{
			name:       "full payment",
			total:      types.MXN(120000),
			payments:   []types.Money{types.MXN(120000)},
			wantStatus: StatusPaid,
			wantPaid:   types.MXN(120000),
		},
		{
			name:       "two payments to paid",
			total:      types.MXN(120000),
			payments:   []types.Money{types.MXN(80000), types.MXN(40000)},
			wantStatus: StatusPaid,
			wantPaid:   types.MXN(120000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newTestInvoice(tt.total)
			for _, p := range tt.payments {
				if _, err := inv.RecordPayment(p, date("2026-08-10"), OriginManual); err != nil {
					t.Fatalf("RecordPayment(%v) failed: %v", p, err)
				}
			}

			if inv.Status != tt.wantStatus {
				t.Errorf("Status: got %v, want %v", inv.Status, tt.wantStatus)
			}
			if !inv.AmountPaid.Equal(tt.wantPaid) {
				t.Errorf("AmountPaid: got %v, want %v", inv.AmountPaid, tt.wantPaid)
			}
			if !inv.Balanced() {
				t.Error("invariant amountPaid + pending == total violated")
			}
			if len(inv.PaymentEntries) != len(tt.payments) {
				t.Errorf("PaymentEntries: got %d, want %d", len(inv.PaymentEntries), len(tt.payments))
			}
		})
	}
}

func TestRecordPaymentRejectsBadAmounts(t *testing.T) {
	inv := newTestInvoice(types.MXN(100000))

	if _, err := inv.RecordPayment(types.MXN(0), date("2026-08-10"), OriginManual); err == nil {
		t.Error("expected error for zero amount")
	}
	if _, err := inv.RecordPayment(types.MXN(-500), date("2026-08-10"), OriginManual); err == nil {
		t.Error("expected error for negative amount")
	}
	if _, err := inv.RecordPayment(types.MXN(100001), date("2026-08-10"), OriginManual); err == nil {
		t.Error("expected error for amount above pending")
	}
	if !inv.Balanced() || !inv.AmountPaid.IsZero() {
		t.Error("failed payments must not change the invoice")
	}
}

func TestRecomputeStatusPreservesOverdue(t *testing.T) {
	inv := newTestInvoice(types.MXN(100000))
	inv.Status = StatusOverdue

	// With nothing paid the derivation must not undo the overdue judgment.
	inv.RecomputeStatus()
	if inv.Status != StatusOverdue {
		t.Errorf("Status: got %v, want overdue preserved", inv.Status)
	}

	// A partial payment takes over.
	if _, err := inv.RecordPayment(types.MXN(40000), date("2026-09-01"), OriginManual); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if inv.Status != StatusPartial {
		t.Errorf("Status: got %v, want partial", inv.Status)
	}
}

func TestIsOutstanding(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, true},
		{StatusPartial, true},
		{StatusOverdue, true},
		{StatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			inv := newTestInvoice(types.MXN(100000))
			inv.Status = tt.status
			if got := inv.IsOutstanding(); got != tt.want {
				t.Errorf("IsOutstanding: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPaymentEntryOrigin(t *testing.T) {
	inv := newTestInvoice(types.MXN(100000))

	entry, err := inv.RecordPayment(types.MXN(50000), date("2026-08-10"), OriginCreditBalance)
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if entry.Origin != "credit balance" {
		t.Errorf("Origin: got %q, want %q", entry.Origin, "credit balance")
	}
	if entry.ID.IsNil() {
		t.Error("expected a generated payment entry ID")
	}
}

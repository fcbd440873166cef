package rentas_test

import (
	"context"
	"errors"
	"testing"
	"time"

	rentas "github.com/kkunes/controlrentas"
	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/store/memory"
	"github.com/kkunes/controlrentas/tenant"
)

var fixedNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*rentas.Ledger, *memory.Store) {
	t.Helper()
	s := memory.New()
	l := rentas.New(s,
		rentas.WithClock(func() time.Time { return fixedNow }),
		rentas.WithReconcileInterval(0),
	)
	return l, s
}

func seedTenant(s *memory.Store, name string) *tenant.Tenant {
	tn := &tenant.Tenant{ID: id.NewTenantID(), Name: name}
	s.PutTenant(tn)
	return tn
}

func TestApplyCredit(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLedger(t)
	tn := seedTenant(s, "Maria Lopez")

	c := credit.New(tn.ID, rentas.MXN(50000), "deposito", fixedNow)
	if err := s.CreateCredit(ctx, c); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	inv := invoice.New(tn.ID, id.NewPropertyID(), rentas.MXN(120000), "2026-08", fixedNow)
	if _, err := inv.RecordPayment(rentas.MXN(80000), fixedNow, invoice.OriginManual); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	if err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	res, err := l.ApplyCredit(ctx, c.ID)
	if err != nil {
		t.Fatalf("ApplyCredit failed: %v", err)
	}

	// Invoice pending 400.00 is smaller than the 500.00 credit, so only
	// 400.00 moves.
	if !res.Applied.Equal(rentas.MXN(40000)) {
		t.Errorf("applied: got %v, want $400.00", res.Applied)
	}
	if !res.Credit.RemainingBalance.Equal(rentas.MXN(10000)) {
		t.Errorf("credit remaining: got %v, want $100.00", res.Credit.RemainingBalance)
	}
	if res.Invoice.Status != invoice.StatusPaid {
		t.Errorf("invoice status: got %q, want paid", res.Invoice.Status)
	}
	if !res.Invoice.PendingBalance.IsZero() {
		t.Errorf("invoice pending: got %v, want zero", res.Invoice.PendingBalance)
	}

	// Both documents persisted.
	storedCredit, _ := s.GetCredit(ctx, c.ID)
	if !storedCredit.RemainingBalance.Equal(rentas.MXN(10000)) {
		t.Errorf("stored credit remaining: got %v", storedCredit.RemainingBalance)
	}
	if len(storedCredit.Applications) != 1 {
		t.Fatalf("stored applications: got %d, want 1", len(storedCredit.Applications))
	}
	if storedCredit.Applications[0].InvoiceID.String() != inv.ID.String() {
		t.Error("application entry points at the wrong invoice")
	}
	storedInvoice, _ := s.GetInvoice(ctx, inv.ID)
	if storedInvoice.Status != invoice.StatusPaid {
		t.Errorf("stored invoice status: got %q", storedInvoice.Status)
	}
	last := storedInvoice.PaymentEntries[len(storedInvoice.PaymentEntries)-1]
	if last.Origin != invoice.OriginCreditBalance {
		t.Errorf("payment origin: got %q, want %q", last.Origin, invoice.OriginCreditBalance)
	}
}

func TestApplyCreditConsumed(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLedger(t)
	tn := seedTenant(s, "Maria Lopez")

	c := credit.New(tn.ID, rentas.MXN(10000), "", fixedNow)
	if _, err := c.Apply(id.NewInvoiceID(), rentas.MXN(10000), fixedNow); err != nil {
		t.Fatalf("drain credit: %v", err)
	}
	if err := s.CreateCredit(ctx, c); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	_, err := l.ApplyCredit(ctx, c.ID)
	if !errors.Is(err, rentas.ErrCreditConsumed) {
		t.Errorf("got %v, want ErrCreditConsumed", err)
	}
}

func TestApplyCreditNoEligibleInvoice(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLedger(t)
	tn := seedTenant(s, "Maria Lopez")

	c := credit.New(tn.ID, rentas.MXN(50000), "", fixedNow)
	if err := s.CreateCredit(ctx, c); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	// Only a paid invoice exists, which is not eligible.
	inv := invoice.New(tn.ID, id.NewPropertyID(), rentas.MXN(100000), "2026-07", fixedNow)
	inv.Status = invoice.StatusPaid
	inv.AmountPaid = rentas.MXN(100000)
	inv.PendingBalance = rentas.MXN(0)
	if err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	_, err := l.ApplyCredit(ctx, c.ID)
	if !errors.Is(err, rentas.ErrNoEligibleInvoice) {
		t.Fatalf("got %v, want ErrNoEligibleInvoice", err)
	}

	// The credit must be untouched.
	stored, _ := s.GetCredit(ctx, c.ID)
	if !stored.RemainingBalance.Equal(rentas.MXN(50000)) {
		t.Errorf("credit changed on a failed application: %v", stored.RemainingBalance)
	}
}

func TestRegisterCredit(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLedger(t)
	tn := seedTenant(s, "Maria Lopez")

	res, err := l.RegisterCredit(ctx, tn.ID, rentas.MXN(30000), "anticipo")
	if err != nil {
		t.Fatalf("RegisterCredit failed: %v", err)
	}
	if res.Merged {
		t.Error("first registration must create, not merge")
	}
	if res.Credit.Description != "anticipo" {
		t.Errorf("description: got %q", res.Credit.Description)
	}

	// A second registration for the same tenant merges into the active
	// record instead of creating a duplicate.
	res2, err := l.RegisterCredit(ctx, tn.ID, rentas.MXN(20000), "pago extra")
	if err != nil {
		t.Fatalf("second RegisterCredit failed: %v", err)
	}
	if !res2.Merged {
		t.Fatal("second registration must merge")
	}
	if res2.Credit.ID.String() != res.Credit.ID.String() {
		t.Error("merge created a new record")
	}
	if !res2.Credit.RemainingBalance.Equal(rentas.MXN(50000)) {
		t.Errorf("merged remaining: got %v, want $500.00", res2.Credit.RemainingBalance)
	}

	all, _ := s.ListCreditsByTenant(ctx, tn.ID)
	if len(all) != 1 {
		t.Errorf("tenant has %d credit records, want 1", len(all))
	}
}

func TestRegisterCreditValidation(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLedger(t)
	tn := seedTenant(s, "Maria Lopez")

	if _, err := l.RegisterCredit(ctx, tn.ID, rentas.MXN(0), ""); !errors.Is(err, rentas.ErrInvalidAmount) {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := l.RegisterCredit(ctx, id.NewTenantID(), rentas.MXN(100), ""); !errors.Is(err, rentas.ErrTenantNotFound) {
		t.Errorf("unknown tenant: got %v, want ErrTenantNotFound", err)
	}
}

func TestRegisterCreditAfterConsumedCreatesNew(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLedger(t)
	tn := seedTenant(s, "Maria Lopez")

	consumed := credit.New(tn.ID, rentas.MXN(10000), "", fixedNow)
	if _, err := consumed.Apply(id.NewInvoiceID(), rentas.MXN(10000), fixedNow); err != nil {
		t.Fatalf("drain credit: %v", err)
	}
	if err := s.CreateCredit(ctx, consumed); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	res, err := l.RegisterCredit(ctx, tn.ID, rentas.MXN(5000), "")
	if err != nil {
		t.Fatalf("RegisterCredit failed: %v", err)
	}
	if res.Merged {
		t.Error("consumed records must not absorb new credit")
	}
	if res.Credit.ID.String() == consumed.ID.String() {
		t.Error("new credit reused the consumed record")
	}
}

func TestSetCreditAmount(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLedger(t)
	tn := seedTenant(s, "Maria Lopez")

	t.Run("untouched record edits cleanly", func(t *testing.T) {
		c := credit.New(tn.ID, rentas.MXN(30000), "", fixedNow)
		if err := s.CreateCredit(ctx, c); err != nil {
			t.Fatalf("seed credit: %v", err)
		}

		res, err := l.SetCreditAmount(ctx, c.ID, rentas.MXN(45000), "corrected")
		if err != nil {
			t.Fatalf("SetCreditAmount failed: %v", err)
		}
		if res.BalanceReset {
			t.Error("editing an untouched record must not flag a reset")
		}
		if !res.Credit.RemainingBalance.Equal(rentas.MXN(45000)) {
			t.Errorf("remaining: got %v", res.Credit.RemainingBalance)
		}
		if res.Credit.Description != "corrected" {
			t.Errorf("description: got %q", res.Credit.Description)
		}
	})

	t.Run("partially consumed record flags the reset", func(t *testing.T) {
		c := credit.New(tn.ID, rentas.MXN(30000), "", fixedNow)
		if _, err := c.Apply(id.NewInvoiceID(), rentas.MXN(10000), fixedNow); err != nil {
			t.Fatalf("seed application: %v", err)
		}
		if err := s.CreateCredit(ctx, c); err != nil {
			t.Fatalf("seed credit: %v", err)
		}

		res, err := l.SetCreditAmount(ctx, c.ID, rentas.MXN(30000), "")
		if err != nil {
			t.Fatalf("SetCreditAmount failed: %v", err)
		}
		if !res.BalanceReset {
			t.Fatal("consumption discarded without a reset flag")
		}
		if !res.PreviousRemaining.Equal(rentas.MXN(20000)) {
			t.Errorf("previous remaining: got %v, want $200.00", res.PreviousRemaining)
		}
		if !res.Credit.RemainingBalance.Equal(rentas.MXN(30000)) {
			t.Errorf("remaining after edit: got %v, want the full new amount", res.Credit.RemainingBalance)
		}
		// The audit trail survives even though the balance no longer
		// reflects it.
		if len(res.Credit.Applications) != 1 {
			t.Errorf("applications: got %d, want 1", len(res.Credit.Applications))
		}
	})
}

func TestDeleteTenantCredits(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLedger(t)
	tn := seedTenant(s, "Maria Lopez")

	for i := 0; i < 2; i++ {
		if err := s.CreateCredit(ctx, credit.New(tn.ID, rentas.MXN(100), "", fixedNow)); err != nil {
			t.Fatalf("seed credit: %v", err)
		}
	}

	removed, err := l.DeleteTenantCredits(ctx, tn.ID)
	if err != nil {
		t.Fatalf("DeleteTenantCredits failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed: got %d, want 2", removed)
	}
}

func TestRecordInvoicePayment(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLedger(t)
	tn := seedTenant(s, "Maria Lopez")

	t.Run("partial payment", func(t *testing.T) {
		inv := invoice.New(tn.ID, id.NewPropertyID(), rentas.MXN(100000), "2026-08", fixedNow)
		if err := s.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("seed invoice: %v", err)
		}

		res, err := l.RecordInvoicePayment(ctx, inv.ID, rentas.MXN(40000))
		if err != nil {
			t.Fatalf("RecordInvoicePayment failed: %v", err)
		}
		if !res.Applied.Equal(rentas.MXN(40000)) || !res.Surplus.IsZero() {
			t.Errorf("applied %v surplus %v", res.Applied, res.Surplus)
		}
		if res.Invoice.Status != invoice.StatusPartial {
			t.Errorf("status: got %q, want partial", res.Invoice.Status)
		}
		if res.Credit != nil {
			t.Error("no surplus, no credit expected")
		}
	})

	t.Run("overpayment becomes credit", func(t *testing.T) {
		inv := invoice.New(tn.ID, id.NewPropertyID(), rentas.MXN(100000), "2026-09", fixedNow)
		if err := s.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("seed invoice: %v", err)
		}

		res, err := l.RecordInvoicePayment(ctx, inv.ID, rentas.MXN(130000))
		if err != nil {
			t.Fatalf("RecordInvoicePayment failed: %v", err)
		}
		if !res.Applied.Equal(rentas.MXN(100000)) {
			t.Errorf("applied: got %v, want the full pending balance", res.Applied)
		}
		if !res.Surplus.Equal(rentas.MXN(30000)) {
			t.Errorf("surplus: got %v, want $300.00", res.Surplus)
		}
		if res.Invoice.Status != invoice.StatusPaid {
			t.Errorf("status: got %q, want paid", res.Invoice.Status)
		}
		if res.Credit == nil {
			t.Fatal("surplus must land as a credit balance")
		}
		if !res.Credit.RemainingBalance.Equal(rentas.MXN(30000)) {
			t.Errorf("credit remaining: got %v", res.Credit.RemainingBalance)
		}

		stored, err := s.GetCredit(ctx, res.Credit.ID)
		if err != nil {
			t.Fatalf("surplus credit not persisted: %v", err)
		}
		want := "overpayment on invoice " + inv.ID.String()
		if stored.Description != want {
			t.Errorf("credit note: got %q, want %q", stored.Description, want)
		}
	})

	t.Run("settled invoice rejects further payments", func(t *testing.T) {
		inv := invoice.New(tn.ID, id.NewPropertyID(), rentas.MXN(50000), "2026-10", fixedNow)
		if _, err := inv.RecordPayment(rentas.MXN(50000), fixedNow, invoice.OriginManual); err != nil {
			t.Fatalf("seed payment: %v", err)
		}
		if err := s.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("seed invoice: %v", err)
		}

		_, err := l.RecordInvoicePayment(ctx, inv.ID, rentas.MXN(100))
		if !errors.Is(err, rentas.ErrInvoiceSettled) {
			t.Errorf("got %v, want ErrInvoiceSettled", err)
		}
	})
}

func TestListCreditSummariesResolvesLabels(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLedger(t)

	// Tenant with a known name and no property resolves to Unassigned.
	tn := seedTenant(s, "Maria Lopez")
	if err := s.CreateCredit(ctx, credit.New(tn.ID, rentas.MXN(20000), "deposito", fixedNow)); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	// Orphaned credit whose tenant record is gone.
	orphan := id.NewTenantID()
	if err := s.CreateCredit(ctx, credit.New(orphan, rentas.MXN(10000), "huerfano", fixedNow)); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	summaries, err := l.ListCreditSummaries(ctx)
	if err != nil {
		t.Fatalf("ListCreditSummaries failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	byTenant := make(map[string]*credit.Summary)
	for _, sum := range summaries {
		byTenant[sum.TenantID.String()] = sum
	}

	known := byTenant[tn.ID.String()]
	if known.TenantName != "Maria Lopez" {
		t.Errorf("tenant name: got %q", known.TenantName)
	}
	if known.PropertyLabel != "Unassigned" {
		t.Errorf("property label: got %q, want Unassigned", known.PropertyLabel)
	}

	missing := byTenant[orphan.String()]
	if missing.TenantName != "" {
		t.Errorf("orphan tenant name: got %q, want empty", missing.TenantName)
	}
	if missing.PropertyLabel != "Unassigned" {
		t.Errorf("orphan property label: got %q, want Unassigned", missing.PropertyLabel)
	}
}

func TestStartAndStop(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Stop is idempotent.
	if err := l.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}

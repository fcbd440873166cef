package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	rentas "github.com/kkunes/controlrentas"
	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/types"
)

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCreditCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenantID := id.NewTenantID()

	c := credit.New(tenantID, types.MXN(50000), "deposito", date("2026-08-01"))
	if err := s.CreateCredit(ctx, c); err != nil {
		t.Fatalf("CreateCredit failed: %v", err)
	}
	if err := s.CreateCredit(ctx, c); !errors.Is(err, rentas.ErrAlreadyExists) {
		t.Errorf("duplicate create: got %v, want ErrAlreadyExists", err)
	}

	got, err := s.GetCredit(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCredit failed: %v", err)
	}
	if !got.OriginalAmount.Equal(types.MXN(50000)) {
		t.Errorf("OriginalAmount: got %v", got.OriginalAmount)
	}

	// Mutating a fetched copy must not leak into the store.
	got.Description = "mutated"
	again, _ := s.GetCredit(ctx, c.ID)
	if again.Description != "deposito" {
		t.Errorf("store leaked a caller mutation: %q", again.Description)
	}

	got.Description = "updated"
	if err := s.UpdateCredit(ctx, got); err != nil {
		t.Fatalf("UpdateCredit failed: %v", err)
	}
	again, _ = s.GetCredit(ctx, c.ID)
	if again.Description != "updated" {
		t.Errorf("update not persisted: %q", again.Description)
	}

	if err := s.DeleteCredit(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCredit failed: %v", err)
	}
	if _, err := s.GetCredit(ctx, c.ID); !errors.Is(err, rentas.ErrCreditNotFound) {
		t.Errorf("after delete: got %v, want ErrCreditNotFound", err)
	}
	if err := s.DeleteCredit(ctx, c.ID); !errors.Is(err, rentas.ErrCreditNotFound) {
		t.Errorf("double delete: got %v, want ErrCreditNotFound", err)
	}
}

func TestListCreditsByTenantInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenantID := id.NewTenantID()
	other := id.NewTenantID()

	first := credit.New(tenantID, types.MXN(100), "first", date("2026-01-01"))
	second := credit.New(tenantID, types.MXN(200), "second", date("2026-01-02"))
	noise := credit.New(other, types.MXN(300), "other", date("2026-01-03"))

	for _, c := range []*credit.CreditBalance{first, noise, second} {
		if err := s.CreateCredit(ctx, c); err != nil {
			t.Fatalf("CreateCredit failed: %v", err)
		}
	}

	got, err := s.ListCreditsByTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("ListCreditsByTenant failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 credits, got %d", len(got))
	}
	if got[0].Description != "first" || got[1].Description != "second" {
		t.Errorf("insertion order not preserved: %q, %q", got[0].Description, got[1].Description)
	}
}

func TestListCreditsStatusFilter(t *testing.T) {
	ctx := context.Background()
	s := New()

	active := credit.New(id.NewTenantID(), types.MXN(10000), "", date("2026-01-01"))
	consumed := credit.New(id.NewTenantID(), types.MXN(10000), "", date("2026-01-02"))
	if _, err := consumed.Apply(id.NewInvoiceID(), types.MXN(10000), date("2026-01-03")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for _, c := range []*credit.CreditBalance{active, consumed} {
		if err := s.CreateCredit(ctx, c); err != nil {
			t.Fatalf("CreateCredit failed: %v", err)
		}
	}

	got, err := s.ListCredits(ctx, credit.ListOpts{Status: credit.StatusActive})
	if err != nil {
		t.Fatalf("ListCredits failed: %v", err)
	}
	if len(got) != 1 || got[0].ID.String() != active.ID.String() {
		t.Errorf("active filter returned wrong records: %d", len(got))
	}

	got, err = s.ListCredits(ctx, credit.ListOpts{Status: credit.StatusConsumed})
	if err != nil {
		t.Fatalf("ListCredits failed: %v", err)
	}
	if len(got) != 1 || got[0].ID.String() != consumed.ID.String() {
		t.Errorf("consumed filter returned wrong records: %d", len(got))
	}
}

func TestListCreditsPaging(t *testing.T) {
	ctx := context.Background()
	s := New()

	var created []*credit.CreditBalance
	for i, day := range []string{"2026-01-01", "2026-01-02", "2026-01-03", "2026-01-04"} {
		c := credit.New(id.NewTenantID(), types.MXN(int64(100*(i+1))), "", date(day))
		if err := s.CreateCredit(ctx, c); err != nil {
			t.Fatalf("CreateCredit failed: %v", err)
		}
		created = append(created, c)
	}

	// Newest creation first.
	all, err := s.ListCredits(ctx, credit.ListOpts{})
	if err != nil {
		t.Fatalf("ListCredits failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 credits, got %d", len(all))
	}
	if all[0].ID.String() != created[3].ID.String() || all[3].ID.String() != created[0].ID.String() {
		t.Error("listing is not newest-first")
	}

	page, err := s.ListCredits(ctx, credit.ListOpts{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListCredits failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	if page[0].ID.String() != created[2].ID.String() || page[1].ID.String() != created[1].ID.String() {
		t.Error("offset/limit returned the wrong window")
	}

	past, err := s.ListCredits(ctx, credit.ListOpts{Offset: 10})
	if err != nil {
		t.Fatalf("ListCredits failed: %v", err)
	}
	if len(past) != 0 {
		t.Errorf("offset past the end: got %d records, want 0", len(past))
	}
}

func TestDeleteCreditsByTenant(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenantID := id.NewTenantID()
	other := id.NewTenantID()

	for i := 0; i < 3; i++ {
		if err := s.CreateCredit(ctx, credit.New(tenantID, types.MXN(100), "", date("2026-01-01"))); err != nil {
			t.Fatalf("CreateCredit failed: %v", err)
		}
	}
	keep := credit.New(other, types.MXN(100), "", date("2026-01-01"))
	if err := s.CreateCredit(ctx, keep); err != nil {
		t.Fatalf("CreateCredit failed: %v", err)
	}

	removed, err := s.DeleteCreditsByTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("DeleteCreditsByTenant failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed: got %d, want 3", removed)
	}

	left, _ := s.ListCredits(ctx, credit.ListOpts{})
	if len(left) != 1 || left[0].ID.String() != keep.ID.String() {
		t.Errorf("other tenant's credit must survive the cascade")
	}

	// A second pass removes nothing.
	removed, err = s.DeleteCreditsByTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("DeleteCreditsByTenant failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("second cascade removed %d, want 0", removed)
	}
}

func TestListOutstandingInvoices(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenantID := id.NewTenantID()
	propID := id.NewPropertyID()

	paid := invoice.New(tenantID, propID, types.MXN(100000), "2026-06", date("2026-06-30"))
	paid.Status = invoice.StatusPaid
	pending := invoice.New(tenantID, propID, types.MXN(100000), "2026-07", date("2026-07-31"))
	overdue := invoice.New(tenantID, propID, types.MXN(100000), "2026-08", date("2026-08-31"))
	overdue.Status = invoice.StatusOverdue

	for _, inv := range []*invoice.Invoice{paid, pending, overdue} {
		if err := s.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("CreateInvoice failed: %v", err)
		}
	}

	got, err := s.ListOutstandingInvoices(ctx, tenantID)
	if err != nil {
		t.Fatalf("ListOutstandingInvoices failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 outstanding invoices, got %d", len(got))
	}
	if got[0].ID.String() != pending.ID.String() || got[1].ID.String() != overdue.ID.String() {
		t.Error("outstanding invoices not in insertion order")
	}
}

func TestSettleCredit(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenantID := id.NewTenantID()

	c := credit.New(tenantID, types.MXN(50000), "", date("2026-08-01"))
	inv := invoice.New(tenantID, id.NewPropertyID(), types.MXN(120000), "2026-08", date("2026-08-31"))

	if err := s.CreateCredit(ctx, c); err != nil {
		t.Fatalf("CreateCredit failed: %v", err)
	}
	if err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}

	if _, err := c.Apply(inv.ID, types.MXN(50000), date("2026-08-05")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := inv.RecordPayment(types.MXN(50000), date("2026-08-05"), invoice.OriginCreditBalance); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	if err := s.SettleCredit(ctx, inv, c); err != nil {
		t.Fatalf("SettleCredit failed: %v", err)
	}

	gotCredit, _ := s.GetCredit(ctx, c.ID)
	gotInvoice, _ := s.GetInvoice(ctx, inv.ID)
	if !gotCredit.RemainingBalance.IsZero() {
		t.Errorf("credit remaining: got %v, want zero", gotCredit.RemainingBalance)
	}
	if !gotInvoice.AmountPaid.Equal(types.MXN(50000)) {
		t.Errorf("invoice paid: got %v", gotInvoice.AmountPaid)
	}
}

func TestSettleCreditMissingRecordWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	tenantID := id.NewTenantID()

	c := credit.New(tenantID, types.MXN(50000), "", date("2026-08-01"))
	if err := s.CreateCredit(ctx, c); err != nil {
		t.Fatalf("CreateCredit failed: %v", err)
	}

	// Invoice never stored: settlement must fail and leave the credit alone.
	inv := invoice.New(tenantID, id.NewPropertyID(), types.MXN(120000), "2026-08", date("2026-08-31"))
	if _, err := c.Apply(inv.ID, types.MXN(50000), date("2026-08-05")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	err := s.SettleCredit(ctx, inv, c)
	if !errors.Is(err, rentas.ErrInvoiceNotFound) {
		t.Fatalf("SettleCredit: got %v, want ErrInvoiceNotFound", err)
	}

	stored, _ := s.GetCredit(ctx, c.ID)
	if !stored.RemainingBalance.Equal(types.MXN(50000)) {
		t.Errorf("failed settlement must not touch the stored credit: got %v", stored.RemainingBalance)
	}
	if len(stored.Applications) != 0 {
		t.Errorf("failed settlement must not persist applications: got %d", len(stored.Applications))
	}
}

package credit

import (
	"reflect"
	"testing"

	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/types"
)

func TestSummarizeGroupsByTenant(t *testing.T) {
	tenantA := id.NewTenantID()
	tenantB := id.NewTenantID()

	a1 := New(tenantA, types.MXN(50000), "dep 1", date("2026-01-01"))
	a2 := New(tenantA, types.MXN(30000), "dep 2", date("2026-02-01"))
	b1 := New(tenantB, types.MXN(10000), "dep 3", date("2026-03-01"))

	summaries := Summarize([]*CreditBalance{a1, a2, b1})

	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	byTenant := make(map[string]*Summary)
	for _, s := range summaries {
		byTenant[s.TenantID.String()] = s
	}

	sa := byTenant[tenantA.String()]
	if sa == nil {
		t.Fatal("missing summary for tenant A")
	}
	if !sa.OriginalAmount.Equal(types.MXN(80000)) {
		t.Errorf("tenant A original: got %v, want $800.00", sa.OriginalAmount)
	}
	if !sa.RemainingBalance.Equal(types.MXN(80000)) {
		t.Errorf("tenant A remaining: got %v", sa.RemainingBalance)
	}
	if sa.RecordCount != 2 {
		t.Errorf("tenant A record count: got %d, want 2", sa.RecordCount)
	}
	if sa.Description != "dep 1 | dep 2" {
		t.Errorf("tenant A description: got %q", sa.Description)
	}

	sb := byTenant[tenantB.String()]
	if sb == nil {
		t.Fatal("missing summary for tenant B")
	}
	if sb.RecordCount != 1 {
		t.Errorf("tenant B record count: got %d", sb.RecordCount)
	}
}

func TestSummarizeRepresentative(t *testing.T) {
	tenantID := id.NewTenantID()

	// Consumed old record, active newer record: the active one represents.
	consumed := New(tenantID, types.MXN(10000), "", date("2026-01-01"))
	if _, err := consumed.Apply(id.NewInvoiceID(), types.MXN(10000), date("2026-01-15")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	active := New(tenantID, types.MXN(20000), "", date("2026-02-01"))

	summaries := Summarize([]*CreditBalance{consumed, active})
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}

	s := summaries[0]
	if s.ID.String() != active.ID.String() {
		t.Errorf("representative: got %v, want the active record %v", s.ID, active.ID)
	}
	if s.Status != StatusActive {
		t.Errorf("status: got %v, want active", s.Status)
	}
	if len(s.Applications) != 1 {
		t.Errorf("applications concatenated: got %d, want 1", len(s.Applications))
	}
}

func TestSummarizeConsumedGroupHasNoRepresentative(t *testing.T) {
	tenantID := id.NewTenantID()
	c := New(tenantID, types.MXN(10000), "", date("2026-01-01"))
	if _, err := c.Apply(id.NewInvoiceID(), types.MXN(10000), date("2026-01-15")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	summaries := Summarize([]*CreditBalance{c})
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}

	s := summaries[0]
	if !s.ID.IsNil() {
		t.Errorf("consumed-only group must have no representative, got %v", s.ID)
	}
	if s.Status != StatusConsumed {
		t.Errorf("status: got %v, want consumed", s.Status)
	}
}

func TestSummarizeOrdersByLatestActivity(t *testing.T) {
	tenantA := id.NewTenantID()
	tenantB := id.NewTenantID()

	older := New(tenantA, types.MXN(10000), "", date("2026-01-01"))
	newer := New(tenantB, types.MXN(10000), "", date("2026-02-01"))

	summaries := Summarize([]*CreditBalance{older, newer})
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].TenantID.String() != tenantB.String() {
		t.Errorf("expected most recent activity first, got tenant %v", summaries[0].TenantID)
	}

	// An application moves the tenant back to the top.
	if _, err := older.Apply(id.NewInvoiceID(), types.MXN(5000), date("2026-03-01")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	summaries = Summarize([]*CreditBalance{older, newer})
	if summaries[0].TenantID.String() != tenantA.String() {
		t.Errorf("expected applied tenant first, got %v", summaries[0].TenantID)
	}
}

func TestSummarizeDeterministic(t *testing.T) {
	tenantA := id.NewTenantID()
	tenantB := id.NewTenantID()
	credits := []*CreditBalance{
		New(tenantA, types.MXN(50000), "a", date("2026-01-01")),
		New(tenantB, types.MXN(30000), "b", date("2026-01-02")),
		New(tenantA, types.MXN(20000), "c", date("2026-01-03")),
	}

	first := Summarize(credits)
	second := Summarize(credits)

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated Summarize over unchanged data must agree exactly")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil); len(got) != 0 {
		t.Errorf("expected no summaries, got %d", len(got))
	}
}

package plugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/types"
)

// eventPlugin records which hooks fired.
type eventPlugin struct {
	name     string
	applied  int
	purged   int
	failWith error
}

func (p *eventPlugin) Name() string { return p.name }

func (p *eventPlugin) OnCreditApplied(_ context.Context, _ *credit.CreditBalance, _ *invoice.Invoice, _ types.Money) error {
	p.applied++
	return p.failWith
}

func (p *eventPlugin) OnCreditsPurged(_ context.Context, _ id.TenantID, removed int) error {
	p.purged += removed
	return nil
}

// bareMinimum implements only the base interface.
type bareMinimum struct{}

func (bareMinimum) Name() string { return "bare" }

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	p := &eventPlugin{name: "events"}
	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(bareMinimum{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if r.Count() != 2 {
		t.Errorf("Count: got %d, want 2", r.Count())
	}
	if got := r.Get("events"); got != p {
		t.Error("Get returned the wrong plugin")
	}
	if got := r.Get("missing"); got != nil {
		t.Error("Get on an unknown name must return nil")
	}
	if len(r.List()) != 2 {
		t.Errorf("List: got %d plugins", len(r.List()))
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&eventPlugin{name: "dup"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := r.Register(&eventPlugin{name: "dup"}); err == nil {
		t.Fatal("duplicate name must be rejected")
	}
}

func TestEmitDispatchesOnlyToImplementers(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	p := &eventPlugin{name: "events"}
	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(bareMinimum{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tenantID := id.NewTenantID()
	c := credit.New(tenantID, types.MXN(10000), "", time.Now())
	inv := invoice.New(tenantID, id.NewPropertyID(), types.MXN(10000), "2026-08", time.Now())

	r.EmitCreditApplied(ctx, c, inv, types.MXN(10000))
	r.EmitCreditApplied(ctx, c, inv, types.MXN(10000))
	r.EmitCreditsPurged(ctx, tenantID, 3)
	// No implementer; must be a no-op rather than a panic.
	r.EmitInvoiceSettled(ctx, inv)

	if p.applied != 2 {
		t.Errorf("OnCreditApplied fired %d times, want 2", p.applied)
	}
	if p.purged != 3 {
		t.Errorf("OnCreditsPurged saw %d removals, want 3", p.purged)
	}
}

func TestHookErrorDoesNotPropagate(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	failing := &eventPlugin{name: "failing", failWith: errors.New("boom")}
	healthy := &eventPlugin{name: "healthy"}
	if err := r.Register(failing); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(healthy); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tenantID := id.NewTenantID()
	c := credit.New(tenantID, types.MXN(10000), "", time.Now())
	inv := invoice.New(tenantID, id.NewPropertyID(), types.MXN(10000), "2026-08", time.Now())

	// One plugin failing must not stop the others from seeing the event.
	r.EmitCreditApplied(ctx, c, inv, types.MXN(10000))

	if failing.applied != 1 || healthy.applied != 1 {
		t.Errorf("both plugins must run: failing=%d healthy=%d", failing.applied, healthy.applied)
	}
}

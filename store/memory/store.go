// Package memory provides an in-memory Store for tests and demos.
package memory

import (
	"context"
	"sync"

	rentas "github.com/kkunes/controlrentas"
	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/property"
	"github.com/kkunes/controlrentas/store"
	"github.com/kkunes/controlrentas/tenant"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store keeps all entities in process memory. Credits and invoices also
// keep an insertion-order index because the credit-application scan and
// merge-on-duplicate both depend on natural order, which maps alone lose.
// Reads and writes copy records, so callers can mutate fetched values
// freely and nothing is visible until Update/SettleCredit succeeds.
type Store struct {
	mu sync.RWMutex

	credits     map[string]*credit.CreditBalance
	creditOrder []string

	invoices     map[string]*invoice.Invoice
	invoiceOrder []string

	tenants    map[string]*tenant.Tenant
	properties map[string]*property.Property
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		credits:    make(map[string]*credit.CreditBalance),
		invoices:   make(map[string]*invoice.Invoice),
		tenants:    make(map[string]*tenant.Tenant),
		properties: make(map[string]*property.Property),
	}
}

// ==================== Credit balances ====================

func (s *Store) CreateCredit(_ context.Context, c *credit.CreditBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := c.ID.String()
	if _, exists := s.credits[key]; exists {
		return rentas.ErrAlreadyExists
	}
	s.credits[key] = cloneCredit(c)
	s.creditOrder = append(s.creditOrder, key)
	return nil
}

func (s *Store) GetCredit(_ context.Context, creditID id.CreditID) (*credit.CreditBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.credits[creditID.String()]; ok {
		return cloneCredit(c), nil
	}
	return nil, rentas.ErrCreditNotFound
}

func (s *Store) ListCredits(_ context.Context, opts credit.ListOpts) ([]*credit.CreditBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*credit.CreditBalance, 0, len(s.creditOrder))
	// Walk newest-first: listings are ordered by created date descending,
	// and insertion order tracks creation here.
	for i := len(s.creditOrder) - 1; i >= 0; i-- {
		c := s.credits[s.creditOrder[i]]
		if opts.Status != "" && c.Status() != opts.Status {
			continue
		}
		result = append(result, cloneCredit(c))
	}

	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListCreditsByTenant(_ context.Context, tenantID id.TenantID) ([]*credit.CreditBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*credit.CreditBalance
	for _, key := range s.creditOrder {
		c := s.credits[key]
		if c.TenantID == tenantID {
			result = append(result, cloneCredit(c))
		}
	}
	return result, nil
}

func (s *Store) UpdateCredit(_ context.Context, c *credit.CreditBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := c.ID.String()
	if _, exists := s.credits[key]; !exists {
		return rentas.ErrCreditNotFound
	}
	s.credits[key] = cloneCredit(c)
	return nil
}

func (s *Store) DeleteCredit(_ context.Context, creditID id.CreditID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := creditID.String()
	if _, exists := s.credits[key]; !exists {
		return rentas.ErrCreditNotFound
	}
	delete(s.credits, key)
	s.creditOrder = removeKey(s.creditOrder, key)
	return nil
}

func (s *Store) DeleteCreditsByTenant(_ context.Context, tenantID id.TenantID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	kept := s.creditOrder[:0]
	for _, key := range s.creditOrder {
		if s.credits[key].TenantID == tenantID {
			delete(s.credits, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	s.creditOrder = kept
	return removed, nil
}

// ==================== Invoices ====================

func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inv.ID.String()
	if _, exists := s.invoices[key]; exists {
		return rentas.ErrAlreadyExists
	}
	s.invoices[key] = cloneInvoice(inv)
	s.invoiceOrder = append(s.invoiceOrder, key)
	return nil
}

func (s *Store) GetInvoice(_ context.Context, invoiceID id.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inv, ok := s.invoices[invoiceID.String()]; ok {
		return cloneInvoice(inv), nil
	}
	return nil, rentas.ErrInvoiceNotFound
}

func (s *Store) ListInvoicesByTenant(_ context.Context, tenantID id.TenantID) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*invoice.Invoice
	for _, key := range s.invoiceOrder {
		inv := s.invoices[key]
		if inv.TenantID == tenantID {
			result = append(result, cloneInvoice(inv))
		}
	}
	return result, nil
}

func (s *Store) ListOutstandingInvoices(_ context.Context, tenantID id.TenantID) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*invoice.Invoice
	for _, key := range s.invoiceOrder {
		inv := s.invoices[key]
		if inv.TenantID == tenantID && inv.IsOutstanding() {
			result = append(result, cloneInvoice(inv))
		}
	}
	return result, nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inv.ID.String()
	if _, exists := s.invoices[key]; !exists {
		return rentas.ErrInvoiceNotFound
	}
	s.invoices[key] = cloneInvoice(inv)
	return nil
}

// SettleCredit writes the invoice and the credit balance together under one
// lock. Both records must already exist; if either is missing, neither is
// written.
func (s *Store) SettleCredit(_ context.Context, inv *invoice.Invoice, c *credit.CreditBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invKey := inv.ID.String()
	credKey := c.ID.String()

	if _, exists := s.invoices[invKey]; !exists {
		return rentas.ErrInvoiceNotFound
	}
	if _, exists := s.credits[credKey]; !exists {
		return rentas.ErrCreditNotFound
	}

	s.invoices[invKey] = cloneInvoice(inv)
	s.credits[credKey] = cloneCredit(c)
	return nil
}

// ==================== Lookups ====================

func (s *Store) GetTenant(_ context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tenants[tenantID.String()]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, rentas.ErrTenantNotFound
}

func (s *Store) ListTenants(_ context.Context) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		cp := *t
		result = append(result, &cp)
	}
	return result, nil
}

func (s *Store) GetProperty(_ context.Context, propertyID id.PropertyID) (*property.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.properties[propertyID.String()]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, rentas.ErrPropertyNotFound
}

func (s *Store) ListProperties(_ context.Context) ([]*property.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*property.Property, 0, len(s.properties))
	for _, p := range s.properties {
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

// PutTenant seeds a tenant lookup record. Tenants are read-only through the
// Store interface; this is for wiring and tests.
func (s *Store) PutTenant(t *tenant.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tenants[t.ID.String()] = &cp
}

// PutProperty seeds a property lookup record.
func (s *Store) PutProperty(p *property.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.properties[p.ID.String()] = &cp
}

// ==================== Core ====================

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// ==================== Helpers ====================

func cloneCredit(c *credit.CreditBalance) *credit.CreditBalance {
	cp := *c
	cp.Applications = append([]credit.Application(nil), c.Applications...)
	return &cp
}

func cloneInvoice(inv *invoice.Invoice) *invoice.Invoice {
	cp := *inv
	cp.PaymentEntries = append([]invoice.PaymentEntry(nil), inv.PaymentEntries...)
	return &cp
}

func removeKey(keys []string, key string) []string {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}

func page[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

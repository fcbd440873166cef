package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/types"
)

// hookTimeout bounds a single plugin call. Plugins should never block
// the ledger pipeline.
const hookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Interfaces are cached at registration so emitting an event never
// type-switches over the full plugin list.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	onInit                []OnInit
	onShutdown            []OnShutdown
	onCreditRegistered    []OnCreditRegistered
	onCreditMerged        []OnCreditMerged
	onCreditApplied       []OnCreditApplied
	onCreditReset         []OnCreditReset
	onCreditDeleted       []OnCreditDeleted
	onCreditsPurged       []OnCreditsPurged
	onInvoiceSettled      []OnInvoiceSettled
	onOverpaymentDetected []OnOverpaymentDetected
	onReconcileDrift      []OnReconcileDrift
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var interfaces []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		interfaces = append(interfaces, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		interfaces = append(interfaces, "OnShutdown")
	}
	if v, ok := p.(OnCreditRegistered); ok {
		r.onCreditRegistered = append(r.onCreditRegistered, v)
		interfaces = append(interfaces, "OnCreditRegistered")
	}
	if v, ok := p.(OnCreditMerged); ok {
		r.onCreditMerged = append(r.onCreditMerged, v)
		interfaces = append(interfaces, "OnCreditMerged")
	}
	if v, ok := p.(OnCreditApplied); ok {
		r.onCreditApplied = append(r.onCreditApplied, v)
		interfaces = append(interfaces, "OnCreditApplied")
	}
	if v, ok := p.(OnCreditReset); ok {
		r.onCreditReset = append(r.onCreditReset, v)
		interfaces = append(interfaces, "OnCreditReset")
	}
	if v, ok := p.(OnCreditDeleted); ok {
		r.onCreditDeleted = append(r.onCreditDeleted, v)
		interfaces = append(interfaces, "OnCreditDeleted")
	}
	if v, ok := p.(OnCreditsPurged); ok {
		r.onCreditsPurged = append(r.onCreditsPurged, v)
		interfaces = append(interfaces, "OnCreditsPurged")
	}
	if v, ok := p.(OnInvoiceSettled); ok {
		r.onInvoiceSettled = append(r.onInvoiceSettled, v)
		interfaces = append(interfaces, "OnInvoiceSettled")
	}
	if v, ok := p.(OnOverpaymentDetected); ok {
		r.onOverpaymentDetected = append(r.onOverpaymentDetected, v)
		interfaces = append(interfaces, "OnOverpaymentDetected")
	}
	if v, ok := p.(OnReconcileDrift); ok {
		r.onReconcileDrift = append(r.onReconcileDrift, v)
		interfaces = append(interfaces, "OnReconcileDrift")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", interfaces,
	)

	return nil
}

// Get returns a plugin by name, or nil.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, ledger)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitCreditRegistered emits a credit registered event.
func (r *Registry) EmitCreditRegistered(ctx context.Context, c *credit.CreditBalance) {
	r.mu.RLock()
	plugins := r.onCreditRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnCreditRegistered", func() error {
			return p.OnCreditRegistered(ctx, c)
		})
	}
}

// EmitCreditMerged emits a credit merged event.
func (r *Registry) EmitCreditMerged(ctx context.Context, c *credit.CreditBalance, added types.Money) {
	r.mu.RLock()
	plugins := r.onCreditMerged
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnCreditMerged", func() error {
			return p.OnCreditMerged(ctx, c, added)
		})
	}
}

// EmitCreditApplied emits a credit applied event.
func (r *Registry) EmitCreditApplied(ctx context.Context, c *credit.CreditBalance, inv *invoice.Invoice, applied types.Money) {
	r.mu.RLock()
	plugins := r.onCreditApplied
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnCreditApplied", func() error {
			return p.OnCreditApplied(ctx, c, inv, applied)
		})
	}
}

// EmitCreditReset emits a credit reset event.
func (r *Registry) EmitCreditReset(ctx context.Context, c *credit.CreditBalance, previousRemaining types.Money) {
	r.mu.RLock()
	plugins := r.onCreditReset
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnCreditReset", func() error {
			return p.OnCreditReset(ctx, c, previousRemaining)
		})
	}
}

// EmitCreditDeleted emits a credit deleted event.
func (r *Registry) EmitCreditDeleted(ctx context.Context, creditID id.CreditID) {
	r.mu.RLock()
	plugins := r.onCreditDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnCreditDeleted", func() error {
			return p.OnCreditDeleted(ctx, creditID)
		})
	}
}

// EmitCreditsPurged emits a tenant cascade delete event.
func (r *Registry) EmitCreditsPurged(ctx context.Context, tenantID id.TenantID, removed int) {
	r.mu.RLock()
	plugins := r.onCreditsPurged
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnCreditsPurged", func() error {
			return p.OnCreditsPurged(ctx, tenantID, removed)
		})
	}
}

// EmitInvoiceSettled emits an invoice settled event.
func (r *Registry) EmitInvoiceSettled(ctx context.Context, inv *invoice.Invoice) {
	r.mu.RLock()
	plugins := r.onInvoiceSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnInvoiceSettled", func() error {
			return p.OnInvoiceSettled(ctx, inv)
		})
	}
}

// EmitOverpaymentDetected emits an overpayment event.
func (r *Registry) EmitOverpaymentDetected(ctx context.Context, inv *invoice.Invoice, surplus types.Money) {
	r.mu.RLock()
	plugins := r.onOverpaymentDetected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnOverpaymentDetected", func() error {
			return p.OnOverpaymentDetected(ctx, inv, surplus)
		})
	}
}

// EmitReconcileDrift emits a reconciliation drift event.
func (r *Registry) EmitReconcileDrift(ctx context.Context, c *credit.CreditBalance, expected, actual types.Money) {
	r.mu.RLock()
	plugins := r.onReconcileDrift
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnReconcileDrift", func() error {
			return p.OnReconcileDrift(ctx, c, expected, actual)
		})
	}
}

// call invokes a plugin hook with a timeout, logging failures instead of
// propagating them. A misbehaving plugin must not break ledger writes.
func (r *Registry) call(ctx context.Context, pluginName, hook string, fn func() error) {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(hookTimeout):
		err = fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		r.logger.Warn("plugin hook failed",
			"plugin", pluginName,
			"hook", hook,
			"error", err,
		)
	}
}

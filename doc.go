// Package rentas provides the credit-balance (abono) ledger for a
// rental-property administration backend.
//
// Rentas is designed as a library, not a service. Import it directly
// into your Go application and wire a store driver. It provides:
//
//   - Per-tenant credit balances with an append-only application trail
//   - Transactional settlement of a credit against an outstanding invoice
//   - Per-tenant aggregated summaries for listing surfaces
//   - Overpayment routing from invoice payments into the credit ledger
//   - Pluggable lifecycle hooks (audit trail, metrics)
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    rentas "github.com/kkunes/controlrentas"
//	    "github.com/kkunes/controlrentas/store/sqlite"
//	)
//
//	st, err := sqlite.Open("rentas.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l := rentas.New(st)
//
//	// Start runs migrations and background workers.
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// A credit balance holds prepaid or overpaid funds for a tenant.
// Registering funds for a tenant who already has an active balance merges
// into it instead of creating a duplicate record:
//
//	reg, err := l.RegisterCredit(ctx, tenantID, rentas.MXN(50000), "deposito")
//
// Applying a credit settles it against the tenant's first outstanding
// invoice, moving min(remaining, pending) in one store transaction:
//
//	applied, err := l.ApplyCredit(ctx, creditID)
//
// The listing surface reads one aggregated card per tenant:
//
//	summaries, err := l.ListCreditSummaries(ctx)
//
// All monetary calculations use integer arithmetic to avoid
// floating-point precision issues. The Money type represents amounts in
// the smallest currency unit (centavos for MXN).
//
// UI layers should go through the command package, which adds the
// confirmation protocol for destructive actions and maps failures to
// operator notifications.
package rentas

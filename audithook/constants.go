package audithook

// Action constants for audit events.
const (
	// Credit actions
	ActionCreditRegistered = "credit.registered"
	ActionCreditMerged     = "credit.merged"
	ActionCreditApplied    = "credit.applied"
	ActionCreditReset      = "credit.reset"
	ActionCreditDeleted    = "credit.deleted"
	ActionCreditsPurged    = "credit.purged"

	// Invoice actions
	ActionInvoiceSettled      = "invoice.settled"
	ActionOverpaymentDetected = "invoice.overpayment"

	// Reconciliation actions
	ActionReconcileDrift = "reconcile.drift"
)

// Resource constants for audit events.
const (
	ResourceCredit  = "credit"
	ResourceInvoice = "invoice"
	ResourceTenant  = "tenant"
)

// Category constants for audit events.
const (
	CategoryLedger  = "ledger"
	CategoryPayment = "payment"
	CategoryAudit   = "audit"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

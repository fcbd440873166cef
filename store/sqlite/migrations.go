package sqlite

// Schema migrations. Each statement is idempotent so Migrate can run on
// every startup.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS rentas_credits (
		id                TEXT PRIMARY KEY,
		tenant_id         TEXT NOT NULL,
		currency          TEXT NOT NULL,
		original_amount   INTEGER NOT NULL,
		remaining_balance INTEGER NOT NULL,
		description       TEXT NOT NULL DEFAULT '',
		created_date      TIMESTAMP NOT NULL,
		last_applied_date TIMESTAMP,
		applications      TEXT NOT NULL DEFAULT '[]',
		created_at        TIMESTAMP NOT NULL,
		updated_at        TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rentas_credits_tenant ON rentas_credits (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rentas_credits_created ON rentas_credits (created_date DESC)`,

	`CREATE TABLE IF NOT EXISTS rentas_invoices (
		id              TEXT PRIMARY KEY,
		tenant_id       TEXT NOT NULL,
		property_id     TEXT NOT NULL DEFAULT '',
		period          TEXT NOT NULL DEFAULT '',
		currency        TEXT NOT NULL,
		total           INTEGER NOT NULL,
		amount_paid     INTEGER NOT NULL,
		pending_balance INTEGER NOT NULL,
		status          TEXT NOT NULL,
		due_date        TIMESTAMP,
		payment_entries TEXT NOT NULL DEFAULT '[]',
		created_at      TIMESTAMP NOT NULL,
		updated_at      TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rentas_invoices_tenant ON rentas_invoices (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rentas_invoices_tenant_status ON rentas_invoices (tenant_id, status)`,

	`CREATE TABLE IF NOT EXISTS rentas_tenants (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		phone           TEXT NOT NULL DEFAULT '',
		property_id     TEXT NOT NULL DEFAULT '',
		property_name   TEXT NOT NULL DEFAULT '',
		legacy_property TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMP NOT NULL,
		updated_at      TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rentas_tenants_name ON rentas_tenants (name)`,

	`CREATE TABLE IF NOT EXISTS rentas_properties (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		address      TEXT NOT NULL DEFAULT '',
		currency     TEXT NOT NULL,
		monthly_rent INTEGER NOT NULL DEFAULT 0,
		created_at   TIMESTAMP NOT NULL,
		updated_at   TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rentas_properties_name ON rentas_properties (name)`,
}

package postgres

// migrations are applied in order by Migrate. Each statement is idempotent,
// so re-running a deployment's migration pass is safe.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS rentas_credits (
    id                TEXT PRIMARY KEY,
    tenant_id         TEXT NOT NULL DEFAULT '',
    currency          TEXT NOT NULL DEFAULT 'mxn',
    original_amount   BIGINT NOT NULL DEFAULT 0,
    remaining_balance BIGINT NOT NULL DEFAULT 0,
    description       TEXT NOT NULL DEFAULT '',
    created_date      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_applied_date TIMESTAMPTZ,
    applications      JSONB NOT NULL DEFAULT '[]',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rentas_credits_tenant ON rentas_credits (tenant_id);
CREATE INDEX IF NOT EXISTS idx_rentas_credits_tenant_remaining ON rentas_credits (tenant_id, remaining_balance DESC);
CREATE INDEX IF NOT EXISTS idx_rentas_credits_created_date ON rentas_credits (created_date DESC);
`,
	`
CREATE TABLE IF NOT EXISTS rentas_invoices (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL DEFAULT '',
    property_id     TEXT NOT NULL DEFAULT '',
    period          TEXT NOT NULL DEFAULT '',
    currency        TEXT NOT NULL DEFAULT 'mxn',
    total           BIGINT NOT NULL DEFAULT 0,
    amount_paid     BIGINT NOT NULL DEFAULT 0,
    pending_balance BIGINT NOT NULL DEFAULT 0,
    status          TEXT NOT NULL DEFAULT 'pending',
    due_date        TIMESTAMPTZ,
    payment_entries JSONB NOT NULL DEFAULT '[]',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rentas_invoices_tenant_status ON rentas_invoices (tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_rentas_invoices_property ON rentas_invoices (property_id);
`,
	`
CREATE TABLE IF NOT EXISTS rentas_tenants (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL DEFAULT '',
    phone           TEXT NOT NULL DEFAULT '',
    property_id     TEXT NOT NULL DEFAULT '',
    property_name   TEXT NOT NULL DEFAULT '',
    legacy_property TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	`
CREATE TABLE IF NOT EXISTS rentas_properties (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL DEFAULT '',
    address      TEXT NOT NULL DEFAULT '',
    currency     TEXT NOT NULL DEFAULT 'mxn',
    monthly_rent BIGINT NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rentas_properties_name ON rentas_properties (name);
`,
}

// Package postgres provides the PostgreSQL Store driver on pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	rentas "github.com/kkunes/controlrentas"
	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/property"
	rentasstore "github.com/kkunes/controlrentas/store"
	"github.com/kkunes/controlrentas/tenant"
	"github.com/kkunes/controlrentas/types"
)

// compile-time interface check
var _ rentasstore.Store = (*Store)(nil)

// Store implements store.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL store on an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect dials PostgreSQL and returns a store.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("rentas/postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("rentas/postgres: ping: %w", err)
	}
	return New(pool), nil
}

// Pool returns the underlying connection pool for direct access.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate applies the schema migrations in order.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("rentas/postgres: migration %d: %w: %w", i, rentas.ErrMigrationFailed, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ==================== Credit balances ====================

const creditColumns = `id, tenant_id, currency, original_amount, remaining_balance,
	description, created_date, last_applied_date, applications, created_at, updated_at`

func (s *Store) CreateCredit(ctx context.Context, c *credit.CreditBalance) error {
	apps, err := marshalApplications(c.Applications)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO rentas_credits (`+creditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID.String(), c.TenantID.String(), c.OriginalAmount.Currency,
		c.OriginalAmount.Amount, c.RemainingBalance.Amount, c.Description,
		c.CreatedDate, nullableTime(c.LastAppliedDate), apps, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("rentas/postgres: create credit: %w", err)
	}
	return nil
}

func (s *Store) GetCredit(ctx context.Context, creditID id.CreditID) (*credit.CreditBalance, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+creditColumns+` FROM rentas_credits WHERE id = $1`,
		creditID.String(),
	)
	c, err := scanCredit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rentas.ErrCreditNotFound
		}
		return nil, fmt.Errorf("rentas/postgres: get credit: %w", err)
	}
	return c, nil
}

func (s *Store) ListCredits(ctx context.Context, opts credit.ListOpts) ([]*credit.CreditBalance, error) {
	query := `SELECT ` + creditColumns + ` FROM rentas_credits`
	switch opts.Status {
	case credit.StatusActive:
		query += ` WHERE remaining_balance > 0`
	case credit.StatusConsumed:
		query += ` WHERE remaining_balance <= 0`
	}
	query += ` ORDER BY created_date DESC`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(` OFFSET %d`, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rentas/postgres: list credits: %w", err)
	}
	defer rows.Close()

	return scanCredits(rows)
}

func (s *Store) ListCreditsByTenant(ctx context.Context, tenantID id.TenantID) ([]*credit.CreditBalance, error) {
	// id sort reproduces insertion order: credit IDs are K-sortable.
	rows, err := s.pool.Query(ctx,
		`SELECT `+creditColumns+` FROM rentas_credits WHERE tenant_id = $1 ORDER BY id ASC`,
		tenantID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("rentas/postgres: list credits by tenant: %w", err)
	}
	defer rows.Close()

	return scanCredits(rows)
}

func (s *Store) UpdateCredit(ctx context.Context, c *credit.CreditBalance) error {
	tag, err := s.updateCreditExec(ctx, s.pool, c)
	if err != nil {
		return fmt.Errorf("rentas/postgres: update credit: %w", err)
	}
	if tag == 0 {
		return rentas.ErrCreditNotFound
	}
	return nil
}

func (s *Store) DeleteCredit(ctx context.Context, creditID id.CreditID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rentas_credits WHERE id = $1`, creditID.String())
	if err != nil {
		return fmt.Errorf("rentas/postgres: delete credit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rentas.ErrCreditNotFound
	}
	return nil
}

func (s *Store) DeleteCreditsByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	// A single DELETE is already atomic in PostgreSQL.
	tag, err := s.pool.Exec(ctx, `DELETE FROM rentas_credits WHERE tenant_id = $1`, tenantID.String())
	if err != nil {
		return 0, fmt.Errorf("rentas/postgres: cascade delete credits: %w: %w", rentas.ErrTransactionFailed, err)
	}
	return int(tag.RowsAffected()), nil
}

// ==================== Invoices ====================

const invoiceColumns = `id, tenant_id, property_id, period, currency, total,
	amount_paid, pending_balance, status, due_date, payment_entries, created_at, updated_at`

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	entries, err := marshalPaymentEntries(inv.PaymentEntries)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO rentas_invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		inv.ID.String(), inv.TenantID.String(), inv.PropertyID.String(), inv.Period,
		inv.Total.Currency, inv.Total.Amount, inv.AmountPaid.Amount, inv.PendingBalance.Amount,
		string(inv.Status), nullableTime(inv.DueDate), entries, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("rentas/postgres: create invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invoiceID id.InvoiceID) (*invoice.Invoice, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM rentas_invoices WHERE id = $1`,
		invoiceID.String(),
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rentas.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("rentas/postgres: get invoice: %w", err)
	}
	return inv, nil
}

func (s *Store) ListInvoicesByTenant(ctx context.Context, tenantID id.TenantID) ([]*invoice.Invoice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM rentas_invoices WHERE tenant_id = $1 ORDER BY id ASC`,
		tenantID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("rentas/postgres: list invoices: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows)
}

func (s *Store) ListOutstandingInvoices(ctx context.Context, tenantID id.TenantID) ([]*invoice.Invoice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM rentas_invoices
		 WHERE tenant_id = $1 AND status = ANY($2)
		 ORDER BY id ASC`,
		tenantID.String(),
		[]string{string(invoice.StatusPending), string(invoice.StatusPartial), string(invoice.StatusOverdue)},
	)
	if err != nil {
		return nil, fmt.Errorf("rentas/postgres: list outstanding invoices: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows)
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	tag, err := s.updateInvoiceExec(ctx, s.pool, inv)
	if err != nil {
		return fmt.Errorf("rentas/postgres: update invoice: %w", err)
	}
	if tag == 0 {
		return rentas.ErrInvoiceNotFound
	}
	return nil
}

// SettleCredit updates the invoice and the credit balance in one SQL
// transaction. Either both commit or neither does.
func (s *Store) SettleCredit(ctx context.Context, inv *invoice.Invoice, c *credit.CreditBalance) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("rentas/postgres: begin settle: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	tag, err := s.updateInvoiceExec(ctx, tx, inv)
	if err != nil {
		return fmt.Errorf("rentas/postgres: settle credit: %w: %w", rentas.ErrTransactionFailed, err)
	}
	if tag == 0 {
		return rentas.ErrInvoiceNotFound
	}

	tag, err = s.updateCreditExec(ctx, tx, c)
	if err != nil {
		return fmt.Errorf("rentas/postgres: settle credit: %w: %w", rentas.ErrTransactionFailed, err)
	}
	if tag == 0 {
		return rentas.ErrCreditNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("rentas/postgres: settle credit commit: %w: %w", rentas.ErrTransactionFailed, err)
	}
	return nil
}

// ==================== Lookups ====================

func (s *Store) GetTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, phone, property_id, property_name, legacy_property, created_at, updated_at
		FROM rentas_tenants WHERE id = $1`,
		tenantID.String(),
	)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rentas.ErrTenantNotFound
		}
		return nil, fmt.Errorf("rentas/postgres: get tenant: %w", err)
	}
	return t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, phone, property_id, property_name, legacy_property, created_at, updated_at
		FROM rentas_tenants ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("rentas/postgres: list tenants: %w", err)
	}
	defer rows.Close()

	var result []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("rentas/postgres: list tenants: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) GetProperty(ctx context.Context, propertyID id.PropertyID) (*property.Property, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, address, currency, monthly_rent, created_at, updated_at
		FROM rentas_properties WHERE id = $1`,
		propertyID.String(),
	)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rentas.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("rentas/postgres: get property: %w", err)
	}
	return p, nil
}

func (s *Store) ListProperties(ctx context.Context) ([]*property.Property, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, address, currency, monthly_rent, created_at, updated_at
		FROM rentas_properties ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("rentas/postgres: list properties: %w", err)
	}
	defer rows.Close()

	var result []*property.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("rentas/postgres: list properties: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ==================== Exec/scan helpers ====================

// pgxExecutor covers both *pgxpool.Pool and pgx.Tx.
type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) updateCreditExec(ctx context.Context, db pgxExecutor, c *credit.CreditBalance) (int64, error) {
	apps, err := marshalApplications(c.Applications)
	if err != nil {
		return 0, err
	}

	tag, err := db.Exec(ctx, `
		UPDATE rentas_credits SET
			original_amount = $2, remaining_balance = $3, description = $4,
			last_applied_date = $5, applications = $6, updated_at = NOW()
		WHERE id = $1`,
		c.ID.String(), c.OriginalAmount.Amount, c.RemainingBalance.Amount,
		c.Description, nullableTime(c.LastAppliedDate), apps,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) updateInvoiceExec(ctx context.Context, db pgxExecutor, inv *invoice.Invoice) (int64, error) {
	entries, err := marshalPaymentEntries(inv.PaymentEntries)
	if err != nil {
		return 0, err
	}

	tag, err := db.Exec(ctx, `
		UPDATE rentas_invoices SET
			amount_paid = $2, pending_balance = $3, status = $4,
			payment_entries = $5, updated_at = NOW()
		WHERE id = $1`,
		inv.ID.String(), inv.AmountPaid.Amount, inv.PendingBalance.Amount,
		string(inv.Status), entries,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanCredit(row pgx.Row) (*credit.CreditBalance, error) {
	var (
		creditID, tenantID, currency, description string
		original, remaining                       int64
		createdDate                               time.Time
		lastApplied                               *time.Time
		apps                                      []byte
		createdAt, updatedAt                      time.Time
	)
	err := row.Scan(&creditID, &tenantID, &currency, &original, &remaining,
		&description, &createdDate, &lastApplied, &apps, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	cid, err := id.ParseCreditID(creditID)
	if err != nil {
		return nil, err
	}
	tid, err := id.ParseTenantID(tenantID)
	if err != nil {
		return nil, err
	}
	applications, err := unmarshalApplications(apps, currency)
	if err != nil {
		return nil, err
	}

	c := &credit.CreditBalance{
		Entity:           types.Entity{CreatedAt: createdAt, UpdatedAt: updatedAt},
		ID:               cid,
		TenantID:         tid,
		OriginalAmount:   types.Money{Amount: original, Currency: currency},
		RemainingBalance: types.Money{Amount: remaining, Currency: currency},
		Description:      description,
		CreatedDate:      createdDate,
		Applications:     applications,
	}
	if lastApplied != nil {
		c.LastAppliedDate = *lastApplied
	}
	return c, nil
}

func scanCredits(rows pgx.Rows) ([]*credit.CreditBalance, error) {
	var result []*credit.CreditBalance
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("rentas/postgres: scan credit: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func scanInvoice(row pgx.Row) (*invoice.Invoice, error) {
	var (
		invoiceID, tenantID, propertyID, period, currency, status string
		total, paid, pending                                      int64
		dueDate                                                   *time.Time
		entries                                                   []byte
		createdAt, updatedAt                                      time.Time
	)
	err := row.Scan(&invoiceID, &tenantID, &propertyID, &period, &currency,
		&total, &paid, &pending, &status, &dueDate, &entries, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	iid, err := id.ParseInvoiceID(invoiceID)
	if err != nil {
		return nil, err
	}
	tid, err := id.ParseTenantID(tenantID)
	if err != nil {
		return nil, err
	}
	var pid id.PropertyID
	if propertyID != "" {
		pid, err = id.ParsePropertyID(propertyID)
		if err != nil {
			return nil, err
		}
	}
	paymentEntries, err := unmarshalPaymentEntries(entries, currency)
	if err != nil {
		return nil, err
	}

	inv := &invoice.Invoice{
		Entity:         types.Entity{CreatedAt: createdAt, UpdatedAt: updatedAt},
		ID:             iid,
		TenantID:       tid,
		PropertyID:     pid,
		Period:         period,
		Total:          types.Money{Amount: total, Currency: currency},
		AmountPaid:     types.Money{Amount: paid, Currency: currency},
		PendingBalance: types.Money{Amount: pending, Currency: currency},
		Status:         invoice.Status(status),
		PaymentEntries: paymentEntries,
	}
	if dueDate != nil {
		inv.DueDate = *dueDate
	}
	return inv, nil
}

func scanInvoices(rows pgx.Rows) ([]*invoice.Invoice, error) {
	var result []*invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("rentas/postgres: scan invoice: %w", err)
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var (
		tenantID, name, phone, propertyID, propertyName, legacyProperty string
		createdAt, updatedAt                                            time.Time
	)
	err := row.Scan(&tenantID, &name, &phone, &propertyID, &propertyName,
		&legacyProperty, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	tid, err := id.ParseTenantID(tenantID)
	if err != nil {
		return nil, err
	}

	t := &tenant.Tenant{
		Entity:         types.Entity{CreatedAt: createdAt, UpdatedAt: updatedAt},
		ID:             tid,
		Name:           name,
		Phone:          phone,
		PropertyName:   propertyName,
		LegacyProperty: legacyProperty,
	}
	// Legacy rows carry malformed property ids; treat those as the id-less
	// record shape instead of failing the read.
	if propertyID != "" {
		if pid, err := id.ParsePropertyID(propertyID); err == nil {
			t.PropertyID = pid
		}
	}
	return t, nil
}

func scanProperty(row pgx.Row) (*property.Property, error) {
	var (
		propertyID, name, address, currency string
		monthlyRent                         int64
		createdAt, updatedAt                time.Time
	)
	err := row.Scan(&propertyID, &name, &address, &currency, &monthlyRent, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	pid, err := id.ParsePropertyID(propertyID)
	if err != nil {
		return nil, err
	}

	return &property.Property{
		Entity:      types.Entity{CreatedAt: createdAt, UpdatedAt: updatedAt},
		ID:          pid,
		Name:        name,
		Address:     address,
		MonthlyRent: types.Money{Amount: monthlyRent, Currency: currency},
	}, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

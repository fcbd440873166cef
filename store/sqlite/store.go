// Package sqlite provides an embedded Store driver on modernc.org/sqlite.
// It needs no cgo, which keeps single-binary deployments simple.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

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

// Store implements store.Store on an embedded SQLite database.
type Store struct {
	db *sql.DB
}

// New wraps an already-open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (or creates) the database file at path. Use ":memory:" for
// an in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("rentas/sqlite: open %s: %w", path, err)
	}
	// SQLite allows one writer; more connections just contend on the lock.
	db.SetMaxOpenConns(1)
	return New(db), nil
}

// DB returns the underlying handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate applies the schema migrations in order.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rentas/sqlite: migration %d: %w: %w", i, rentas.ErrMigrationFailed, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Credit balances ====================

const creditColumns = `id, tenant_id, currency, original_amount, remaining_balance,
	description, created_date, last_applied_date, applications, created_at, updated_at`

func (s *Store) CreateCredit(ctx context.Context, c *credit.CreditBalance) error {
	apps, err := marshalApplications(c.Applications)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rentas_credits (`+creditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.TenantID.String(), c.OriginalAmount.Currency,
		c.OriginalAmount.Amount, c.RemainingBalance.Amount, c.Description,
		c.CreatedDate, nullableTime(c.LastAppliedDate), apps, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("rentas/sqlite: create credit: %w", err)
	}
	return nil
}

func (s *Store) GetCredit(ctx context.Context, creditID id.CreditID) (*credit.CreditBalance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+creditColumns+` FROM rentas_credits WHERE id = ?`,
		creditID.String(),
	)
	c, err := scanCredit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rentas.ErrCreditNotFound
		}
		return nil, fmt.Errorf("rentas/sqlite: get credit: %w", err)
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

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rentas/sqlite: list credits: %w", err)
	}
	defer rows.Close()

	return scanCredits(rows)
}

func (s *Store) ListCreditsByTenant(ctx context.Context, tenantID id.TenantID) ([]*credit.CreditBalance, error) {
	// id sort reproduces insertion order: credit IDs are K-sortable.
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+creditColumns+` FROM rentas_credits WHERE tenant_id = ? ORDER BY id ASC`,
		tenantID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("rentas/sqlite: list credits by tenant: %w", err)
	}
	defer rows.Close()

	return scanCredits(rows)
}

func (s *Store) UpdateCredit(ctx context.Context, c *credit.CreditBalance) error {
	n, err := updateCreditExec(ctx, s.db, c)
	if err != nil {
		return fmt.Errorf("rentas/sqlite: update credit: %w", err)
	}
	if n == 0 {
		return rentas.ErrCreditNotFound
	}
	return nil
}

func (s *Store) DeleteCredit(ctx context.Context, creditID id.CreditID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rentas_credits WHERE id = ?`, creditID.String())
	if err != nil {
		return fmt.Errorf("rentas/sqlite: delete credit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rentas.ErrCreditNotFound
	}
	return nil
}

func (s *Store) DeleteCreditsByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rentas_credits WHERE tenant_id = ?`, tenantID.String())
	if err != nil {
		return 0, fmt.Errorf("rentas/sqlite: cascade delete credits: %w: %w", rentas.ErrTransactionFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rentas/sqlite: cascade delete credits: %w", err)
	}
	return int(n), nil
}

// ==================== Invoices ====================

const invoiceColumns = `id, tenant_id, property_id, period, currency, total,
	amount_paid, pending_balance, status, due_date, payment_entries, created_at, updated_at`

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	entries, err := marshalPaymentEntries(inv.PaymentEntries)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rentas_invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID.String(), inv.TenantID.String(), inv.PropertyID.String(), inv.Period,
		inv.Total.Currency, inv.Total.Amount, inv.AmountPaid.Amount, inv.PendingBalance.Amount,
		string(inv.Status), nullableTime(inv.DueDate), entries, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("rentas/sqlite: create invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invoiceID id.InvoiceID) (*invoice.Invoice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM rentas_invoices WHERE id = ?`,
		invoiceID.String(),
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rentas.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("rentas/sqlite: get invoice: %w", err)
	}
	return inv, nil
}

func (s *Store) ListInvoicesByTenant(ctx context.Context, tenantID id.TenantID) ([]*invoice.Invoice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM rentas_invoices WHERE tenant_id = ? ORDER BY id ASC`,
		tenantID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("rentas/sqlite: list invoices: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows)
}

func (s *Store) ListOutstandingInvoices(ctx context.Context, tenantID id.TenantID) ([]*invoice.Invoice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM rentas_invoices
		 WHERE tenant_id = ? AND status IN (?, ?, ?)
		 ORDER BY id ASC`,
		tenantID.String(),
		string(invoice.StatusPending), string(invoice.StatusPartial), string(invoice.StatusOverdue),
	)
	if err != nil {
		return nil, fmt.Errorf("rentas/sqlite: list outstanding invoices: %w", err)
	}
	defer rows.Close()

	return scanInvoices(rows)
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	n, err := updateInvoiceExec(ctx, s.db, inv)
	if err != nil {
		return fmt.Errorf("rentas/sqlite: update invoice: %w", err)
	}
	if n == 0 {
		return rentas.ErrInvoiceNotFound
	}
	return nil
}

// SettleCredit updates the invoice and the credit balance in one SQL
// transaction. Either both commit or neither does.
func (s *Store) SettleCredit(ctx context.Context, inv *invoice.Invoice, c *credit.CreditBalance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rentas/sqlite: begin settle: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	n, err := updateInvoiceExec(ctx, tx, inv)
	if err != nil {
		return fmt.Errorf("rentas/sqlite: settle credit: %w: %w", rentas.ErrTransactionFailed, err)
	}
	if n == 0 {
		return rentas.ErrInvoiceNotFound
	}

	n, err = updateCreditExec(ctx, tx, c)
	if err != nil {
		return fmt.Errorf("rentas/sqlite: settle credit: %w: %w", rentas.ErrTransactionFailed, err)
	}
	if n == 0 {
		return rentas.ErrCreditNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rentas/sqlite: settle credit commit: %w: %w", rentas.ErrTransactionFailed, err)
	}
	return nil
}

// ==================== Lookups ====================

func (s *Store) GetTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, property_id, property_name, legacy_property, created_at, updated_at
		FROM rentas_tenants WHERE id = ?`,
		tenantID.String(),
	)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rentas.ErrTenantNotFound
		}
		return nil, fmt.Errorf("rentas/sqlite: get tenant: %w", err)
	}
	return t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, property_id, property_name, legacy_property, created_at, updated_at
		FROM rentas_tenants ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("rentas/sqlite: list tenants: %w", err)
	}
	defer rows.Close()

	var result []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("rentas/sqlite: list tenants: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) GetProperty(ctx context.Context, propertyID id.PropertyID) (*property.Property, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, address, currency, monthly_rent, created_at, updated_at
		FROM rentas_properties WHERE id = ?`,
		propertyID.String(),
	)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rentas.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("rentas/sqlite: get property: %w", err)
	}
	return p, nil
}

func (s *Store) ListProperties(ctx context.Context) ([]*property.Property, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, currency, monthly_rent, created_at, updated_at
		FROM rentas_properties ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("rentas/sqlite: list properties: %w", err)
	}
	defer rows.Close()

	var result []*property.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("rentas/sqlite: list properties: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ==================== Exec/scan helpers ====================

// sqlExecutor covers both *sql.DB and *sql.Tx.
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateCreditExec(ctx context.Context, db sqlExecutor, c *credit.CreditBalance) (int64, error) {
	apps, err := marshalApplications(c.Applications)
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE rentas_credits SET
			original_amount = ?, remaining_balance = ?, description = ?,
			last_applied_date = ?, applications = ?, updated_at = ?
		WHERE id = ?`,
		c.OriginalAmount.Amount, c.RemainingBalance.Amount, c.Description,
		nullableTime(c.LastAppliedDate), apps, time.Now().UTC(), c.ID.String(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func updateInvoiceExec(ctx context.Context, db sqlExecutor, inv *invoice.Invoice) (int64, error) {
	entries, err := marshalPaymentEntries(inv.PaymentEntries)
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE rentas_invoices SET
			amount_paid = ?, pending_balance = ?, status = ?,
			payment_entries = ?, updated_at = ?
		WHERE id = ?`,
		inv.AmountPaid.Amount, inv.PendingBalance.Amount, string(inv.Status),
		entries, time.Now().UTC(), inv.ID.String(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredit(row rowScanner) (*credit.CreditBalance, error) {
	var (
		creditID, tenantID, currency, description string
		original, remaining                       int64
		createdDate                               time.Time
		lastApplied                               sql.NullTime
		apps                                      string
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
	if lastApplied.Valid {
		c.LastAppliedDate = lastApplied.Time
	}
	return c, nil
}

func scanCredits(rows *sql.Rows) ([]*credit.CreditBalance, error) {
	var result []*credit.CreditBalance
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("rentas/sqlite: scan credit: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func scanInvoice(row rowScanner) (*invoice.Invoice, error) {
	var (
		invoiceID, tenantID, propertyID, period, currency, status string
		total, paid, pending                                      int64
		dueDate                                                   sql.NullTime
		entries                                                   string
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
	if dueDate.Valid {
		inv.DueDate = dueDate.Time
	}
	return inv, nil
}

func scanInvoices(rows *sql.Rows) ([]*invoice.Invoice, error) {
	var result []*invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("rentas/sqlite: scan invoice: %w", err)
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func scanTenant(row rowScanner) (*tenant.Tenant, error) {
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

func scanProperty(row rowScanner) (*property.Property, error) {
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

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

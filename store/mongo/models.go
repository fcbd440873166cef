package mongo

import (
	"time"

	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/property"
	"github.com/kkunes/controlrentas/tenant"
	"github.com/kkunes/controlrentas/types"
)

// ==================== Credit balance models ====================

type creditModel struct {
	ID               string             `bson:"_id"`
	TenantID         string             `bson:"tenant_id"`
	Currency         string             `bson:"currency"`
	OriginalAmount   int64              `bson:"original_amount"`
	RemainingBalance int64              `bson:"remaining_balance"`
	Description      string             `bson:"description"`
	CreatedDate      time.Time          `bson:"created_date"`
	LastAppliedDate  *time.Time         `bson:"last_applied_date,omitempty"`
	Applications     []applicationModel `bson:"applications"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

type applicationModel struct {
	ID        string    `bson:"id"`
	InvoiceID string    `bson:"invoice_id"`
	Amount    int64     `bson:"amount"`
	Date      time.Time `bson:"date"`
}

func toCreditModel(c *credit.CreditBalance) *creditModel {
	apps := make([]applicationModel, len(c.Applications))
	for i, a := range c.Applications {
		apps[i] = applicationModel{
			ID:        a.ID.String(),
			InvoiceID: a.InvoiceID.String(),
			Amount:    a.Amount.Amount,
			Date:      a.Date,
		}
	}

	m := &creditModel{
		ID:               c.ID.String(),
		TenantID:         c.TenantID.String(),
		Currency:         c.OriginalAmount.Currency,
		OriginalAmount:   c.OriginalAmount.Amount,
		RemainingBalance: c.RemainingBalance.Amount,
		Description:      c.Description,
		CreatedDate:      c.CreatedDate,
		Applications:     apps,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if !c.LastAppliedDate.IsZero() {
		t := c.LastAppliedDate
		m.LastAppliedDate = &t
	}
	return m
}

func fromCreditModel(m *creditModel) (*credit.CreditBalance, error) {
	creditID, err := id.ParseCreditID(m.ID)
	if err != nil {
		return nil, err
	}
	tenantID, err := id.ParseTenantID(m.TenantID)
	if err != nil {
		return nil, err
	}

	apps := make([]credit.Application, len(m.Applications))
	for i, a := range m.Applications {
		appID, err := id.ParseApplicationID(a.ID)
		if err != nil {
			return nil, err
		}
		invID, err := id.ParseInvoiceID(a.InvoiceID)
		if err != nil {
			return nil, err
		}
		apps[i] = credit.Application{
			ID:        appID,
			InvoiceID: invID,
			Amount:    types.Money{Amount: a.Amount, Currency: m.Currency},
			Date:      a.Date,
		}
	}

	c := &credit.CreditBalance{
		Entity:           types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:               creditID,
		TenantID:         tenantID,
		OriginalAmount:   types.Money{Amount: m.OriginalAmount, Currency: m.Currency},
		RemainingBalance: types.Money{Amount: m.RemainingBalance, Currency: m.Currency},
		Description:      m.Description,
		CreatedDate:      m.CreatedDate,
		Applications:     apps,
	}
	if m.LastAppliedDate != nil {
		c.LastAppliedDate = *m.LastAppliedDate
	}
	return c, nil
}

// ==================== Invoice models ====================

type invoiceModel struct {
	ID             string              `bson:"_id"`
	TenantID       string              `bson:"tenant_id"`
	PropertyID     string              `bson:"property_id,omitempty"`
	Period         string              `bson:"period,omitempty"`
	Currency       string              `bson:"currency"`
	Total          int64               `bson:"total"`
	AmountPaid     int64               `bson:"amount_paid"`
	PendingBalance int64               `bson:"pending_balance"`
	Status         string              `bson:"status"`
	DueDate        *time.Time          `bson:"due_date,omitempty"`
	PaymentEntries []paymentEntryModel `bson:"payment_entries"`
	CreatedAt      time.Time           `bson:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at"`
}

type paymentEntryModel struct {
	ID     string    `bson:"id"`
	Amount int64     `bson:"amount"`
	Date   time.Time `bson:"date"`
	Origin string    `bson:"origin"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	entries := make([]paymentEntryModel, len(inv.PaymentEntries))
	for i, e := range inv.PaymentEntries {
		entries[i] = paymentEntryModel{
			ID:     e.ID.String(),
			Amount: e.Amount.Amount,
			Date:   e.Date,
			Origin: e.Origin,
		}
	}

	m := &invoiceModel{
		ID:             inv.ID.String(),
		TenantID:       inv.TenantID.String(),
		PropertyID:     inv.PropertyID.String(),
		Period:         inv.Period,
		Currency:       inv.Total.Currency,
		Total:          inv.Total.Amount,
		AmountPaid:     inv.AmountPaid.Amount,
		PendingBalance: inv.PendingBalance.Amount,
		Status:         string(inv.Status),
		PaymentEntries: entries,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
	if !inv.DueDate.IsZero() {
		t := inv.DueDate
		m.DueDate = &t
	}
	return m
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invoiceID, err := id.ParseInvoiceID(m.ID)
	if err != nil {
		return nil, err
	}
	tenantID, err := id.ParseTenantID(m.TenantID)
	if err != nil {
		return nil, err
	}

	var propertyID id.PropertyID
	if m.PropertyID != "" {
		propertyID, err = id.ParsePropertyID(m.PropertyID)
		if err != nil {
			return nil, err
		}
	}

	entries := make([]invoice.PaymentEntry, len(m.PaymentEntries))
	for i, e := range m.PaymentEntries {
		payID, err := id.ParsePaymentID(e.ID)
		if err != nil {
			return nil, err
		}
		entries[i] = invoice.PaymentEntry{
			ID:     payID,
			Amount: types.Money{Amount: e.Amount, Currency: m.Currency},
			Date:   e.Date,
			Origin: e.Origin,
		}
	}

	inv := &invoice.Invoice{
		Entity:         types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:             invoiceID,
		TenantID:       tenantID,
		PropertyID:     propertyID,
		Period:         m.Period,
		Total:          types.Money{Amount: m.Total, Currency: m.Currency},
		AmountPaid:     types.Money{Amount: m.AmountPaid, Currency: m.Currency},
		PendingBalance: types.Money{Amount: m.PendingBalance, Currency: m.Currency},
		Status:         invoice.Status(m.Status),
		PaymentEntries: entries,
	}
	if m.DueDate != nil {
		inv.DueDate = *m.DueDate
	}
	return inv, nil
}

// ==================== Lookup models ====================

type tenantModel struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	Phone          string    `bson:"phone,omitempty"`
	PropertyID     string    `bson:"property_id,omitempty"`
	PropertyName   string    `bson:"property_name,omitempty"`
	LegacyProperty string    `bson:"legacy_property,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func fromTenantModel(m *tenantModel) (*tenant.Tenant, error) {
	tenantID, err := id.ParseTenantID(m.ID)
	if err != nil {
		return nil, err
	}

	t := &tenant.Tenant{
		Entity:         types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:             tenantID,
		Name:           m.Name,
		Phone:          m.Phone,
		PropertyName:   m.PropertyName,
		LegacyProperty: m.LegacyProperty,
	}
	// Legacy tenant documents carry malformed or foreign property ids;
	// treat those as the id-less record shape instead of failing the read.
	if m.PropertyID != "" {
		if propertyID, err := id.ParsePropertyID(m.PropertyID); err == nil {
			t.PropertyID = propertyID
		}
	}
	return t, nil
}

type propertyModel struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Address     string    `bson:"address,omitempty"`
	Currency    string    `bson:"currency"`
	MonthlyRent int64     `bson:"monthly_rent"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func fromPropertyModel(m *propertyModel) (*property.Property, error) {
	propertyID, err := id.ParsePropertyID(m.ID)
	if err != nil {
		return nil, err
	}

	return &property.Property{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          propertyID,
		Name:        m.Name,
		Address:     m.Address,
		MonthlyRent: types.Money{Amount: m.MonthlyRent, Currency: m.Currency},
	}, nil
}

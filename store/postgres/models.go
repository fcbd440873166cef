package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/types"
)

// applicationRow is the JSONB element stored in rentas_credits.applications.
type applicationRow struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoice_id"`
	Amount    int64     `json:"amount"`
	Date      time.Time `json:"date"`
}

// paymentEntryRow is the JSONB element stored in rentas_invoices.payment_entries.
type paymentEntryRow struct {
	ID     string    `json:"id"`
	Amount int64     `json:"amount"`
	Date   time.Time `json:"date"`
	Origin string    `json:"origin"`
}

func marshalApplications(apps []credit.Application) ([]byte, error) {
	rows := make([]applicationRow, len(apps))
	for i, a := range apps {
		rows[i] = applicationRow{
			ID:        a.ID.String(),
			InvoiceID: a.InvoiceID.String(),
			Amount:    a.Amount.Amount,
			Date:      a.Date,
		}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("rentas/postgres: marshal applications: %w", err)
	}
	return data, nil
}

func unmarshalApplications(data []byte, currency string) ([]credit.Application, error) {
	if len(data) == 0 {
		return []credit.Application{}, nil
	}

	var rows []applicationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("rentas/postgres: unmarshal applications: %w", err)
	}

	apps := make([]credit.Application, len(rows))
	for i, r := range rows {
		appID, err := id.ParseApplicationID(r.ID)
		if err != nil {
			return nil, err
		}
		invID, err := id.ParseInvoiceID(r.InvoiceID)
		if err != nil {
			return nil, err
		}
		apps[i] = credit.Application{
			ID:        appID,
			InvoiceID: invID,
			Amount:    types.Money{Amount: r.Amount, Currency: currency},
			Date:      r.Date,
		}
	}
	return apps, nil
}

func marshalPaymentEntries(entries []invoice.PaymentEntry) ([]byte, error) {
	rows := make([]paymentEntryRow, len(entries))
	for i, e := range entries {
		rows[i] = paymentEntryRow{
			ID:     e.ID.String(),
			Amount: e.Amount.Amount,
			Date:   e.Date,
			Origin: e.Origin,
		}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("rentas/postgres: marshal payment entries: %w", err)
	}
	return data, nil
}

func unmarshalPaymentEntries(data []byte, currency string) ([]invoice.PaymentEntry, error) {
	if len(data) == 0 {
		return []invoice.PaymentEntry{}, nil
	}

	var rows []paymentEntryRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("rentas/postgres: unmarshal payment entries: %w", err)
	}

	entries := make([]invoice.PaymentEntry, len(rows))
	for i, r := range rows {
		payID, err := id.ParsePaymentID(r.ID)
		if err != nil {
			return nil, err
		}
		entries[i] = invoice.PaymentEntry{
			ID:     payID,
			Amount: types.Money{Amount: r.Amount, Currency: currency},
			Date:   r.Date,
			Origin: r.Origin,
		}
	}
	return entries, nil
}

package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kkunes/controlrentas/credit"
	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/invoice"
	"github.com/kkunes/controlrentas/types"
)

// applicationRow is the JSON shape stored in the applications column.
type applicationRow struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoice_id"`
	Amount    int64     `json:"amount"`
	Date      time.Time `json:"date"`
}

// paymentEntryRow is the JSON shape stored in the payment_entries column.
type paymentEntryRow struct {
	ID     string    `json:"id"`
	Amount int64     `json:"amount"`
	Date   time.Time `json:"date"`
	Origin string    `json:"origin"`
}

func marshalApplications(apps []credit.Application) (string, error) {
	rows := make([]applicationRow, 0, len(apps))
	for _, a := range apps {
		rows = append(rows, applicationRow{
			ID:        a.ID.String(),
			InvoiceID: a.InvoiceID.String(),
			Amount:    a.Amount.Amount,
			Date:      a.Date,
		})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("rentas/sqlite: marshal applications: %w", err)
	}
	return string(data), nil
}

func unmarshalApplications(data string, currency string) ([]credit.Application, error) {
	if data == "" {
		return nil, nil
	}
	var rows []applicationRow
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("rentas/sqlite: unmarshal applications: %w", err)
	}
	apps := make([]credit.Application, 0, len(rows))
	for _, r := range rows {
		aid, err := id.ParseApplicationID(r.ID)
		if err != nil {
			return nil, fmt.Errorf("rentas/sqlite: application id: %w", err)
		}
		iid, err := id.ParseInvoiceID(r.InvoiceID)
		if err != nil {
			return nil, fmt.Errorf("rentas/sqlite: application invoice id: %w", err)
		}
		apps = append(apps, credit.Application{
			ID:        aid,
			InvoiceID: iid,
			Amount:    types.Money{Amount: r.Amount, Currency: currency},
			Date:      r.Date,
		})
	}
	return apps, nil
}

func marshalPaymentEntries(entries []invoice.PaymentEntry) (string, error) {
	rows := make([]paymentEntryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, paymentEntryRow{
			ID:     e.ID.String(),
			Amount: e.Amount.Amount,
			Date:   e.Date,
			Origin: e.Origin,
		})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("rentas/sqlite: marshal payment entries: %w", err)
	}
	return string(data), nil
}

func unmarshalPaymentEntries(data string, currency string) ([]invoice.PaymentEntry, error) {
	if data == "" {
		return nil, nil
	}
	var rows []paymentEntryRow
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("rentas/sqlite: unmarshal payment entries: %w", err)
	}
	entries := make([]invoice.PaymentEntry, 0, len(rows))
	for _, r := range rows {
		pid, err := id.ParsePaymentID(r.ID)
		if err != nil {
			return nil, fmt.Errorf("rentas/sqlite: payment entry id: %w", err)
		}
		entries = append(entries, invoice.PaymentEntry{
			ID:     pid,
			Amount: types.Money{Amount: r.Amount, Currency: currency},
			Date:   r.Date,
			Origin: r.Origin,
		})
	}
	return entries, nil
}

package credit

import (
	"sort"
	"time"

	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/types"
)

// Summary is the aggregated per-tenant view of all credit-balance records,
// including fully consumed historical ones. The listing shows one card per
// tenant no matter how many records accumulated over time.
type Summary struct {
	// ID is the representative record: the most recently touched record
	// that still has balance to apply. Nil when every record in the group
	// is consumed — the aggregate is then display-only, not actionable.
	ID       id.CreditID `json:"id,omitzero"`
	TenantID id.TenantID `json:"tenant_id"`

	// Labels filled in by the caller from the tenant/property lookups.
	TenantName    string `json:"tenant_name,omitempty"`
	PropertyLabel string `json:"property_label,omitempty"`

	OriginalAmount   types.Money   `json:"original_amount"`
	RemainingBalance types.Money   `json:"remaining_balance"`
	Description      string        `json:"description"`
	Applications     []Application `json:"applications"`
	LatestDate       time.Time     `json:"latest_date"`
	Status           Status        `json:"status"`
	RecordCount      int           `json:"record_count"`
}

// Summarize groups credit-balance records by tenant and folds each group
// into one Summary: amounts summed, descriptions joined with the legacy
// " | " delimiter, application trails concatenated in record order. The
// output is ordered by latest activity descending and is deterministic for
// a given input, so repeated calls over unchanged data agree exactly.
func Summarize(credits []*CreditBalance) []*Summary {
	groups := make(map[string]*Summary)
	order := make([]string, 0, len(credits))

	for _, c := range credits {
		key := c.TenantID.String()
		s, ok := groups[key]
		if !ok {
			s = &Summary{
				TenantID:         c.TenantID,
				OriginalAmount:   types.Zero(c.OriginalAmount.Currency),
				RemainingBalance: types.Zero(c.RemainingBalance.Currency),
				Applications:     []Application{},
			}
			groups[key] = s
			order = append(order, key)
		}

		s.OriginalAmount = s.OriginalAmount.Add(c.OriginalAmount)
		s.RemainingBalance = s.RemainingBalance.Add(c.RemainingBalance)
		if c.Description != "" {
			s.Description = appendDescription(s.Description, c.Description)
		}
		s.Applications = append(s.Applications, c.Applications...)
		s.RecordCount++

		if t := touchedAt(c); t.After(s.LatestDate) {
			s.LatestDate = t
		}
	}

	// Representative per group: the most recently touched record that is
	// still active. Consumed-only groups get no representative.
	for _, key := range order {
		s := groups[key]
		var rep *CreditBalance
		for _, c := range credits {
			if c.TenantID.String() != key || !c.IsActive() {
				continue
			}
			if rep == nil || touchedAt(c).After(touchedAt(rep)) {
				rep = c
			}
		}
		if rep != nil {
			s.ID = rep.ID
		}
		if s.RemainingBalance.IsPositive() {
			s.Status = StatusActive
		} else {
			s.Status = StatusConsumed
		}
	}

	result := make([]*Summary, 0, len(order))
	for _, key := range order {
		result = append(result, groups[key])
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].LatestDate.Equal(result[j].LatestDate) {
			return result[i].LatestDate.After(result[j].LatestDate)
		}
		return result[i].TenantID.String() < result[j].TenantID.String()
	})

	return result
}

// touchedAt returns the record's most recent activity date: the last
// applied date when set, the created date otherwise.
func touchedAt(c *CreditBalance) time.Time {
	if !c.LastAppliedDate.IsZero() {
		return c.LastAppliedDate
	}
	return c.CreatedDate
}

// Package property defines the rental-unit read-model and the label
// resolver over the historical tenant record shapes.
package property

import (
	"context"

	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/types"
)

// Property is a rental unit (inmueble) with a monthly rent amount.
type Property struct {
	types.Entity
	ID          id.PropertyID `json:"id"`
	Name        string        `json:"name"`
	Address     string        `json:"address,omitempty"`
	MonthlyRent types.Money   `json:"monthly_rent"`
}

// Store is the read-only lookup interface for properties.
type Store interface {
	Get(ctx context.Context, propertyID id.PropertyID) (*Property, error)
	List(ctx context.Context) ([]*Property, error)
}

// Package tenant defines the renter read-model consumed for labeling.
package tenant

import (
	"context"

	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/types"
)

// Tenant is a renter associated with zero or one property.
//
// The three property fields reflect the record shapes that accumulated in
// the upstream collection over time. Newer records carry PropertyID, an
// intermediate generation carries a denormalized PropertyName, and the
// oldest carry only a free-text LegacyProperty value. Resolution order over
// these shapes is defined in the property package and must not change.
type Tenant struct {
	types.Entity
	ID    id.TenantID `json:"id"`
	Name  string      `json:"name"`
	Phone string      `json:"phone,omitempty"`

	PropertyID     id.PropertyID `json:"property_id,omitzero"`
	PropertyName   string        `json:"property_name,omitempty"`
	LegacyProperty string        `json:"legacy_property,omitempty"`
}

// Store is the read-only lookup interface for tenants.
type Store interface {
	Get(ctx context.Context, tenantID id.TenantID) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
}

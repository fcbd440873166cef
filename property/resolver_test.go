package property

import (
	"testing"

	"github.com/kkunes/controlrentas/id"
	"github.com/kkunes/controlrentas/tenant"
	"github.com/kkunes/controlrentas/types"
)

func TestResolverFallbackChain(t *testing.T) {
	casa := &Property{ID: id.NewPropertyID(), Name: "Casa Azul", MonthlyRent: types.MXN(850000)}
	depto := &Property{ID: id.NewPropertyID(), Name: "Depto 4B", MonthlyRent: types.MXN(620000)}
	r := NewResolver([]*Property{casa, depto})

	tests := []struct {
		name   string
		tenant *tenant.Tenant
		want   string
	}{
		{
			name:   "explicit property id wins",
			tenant: &tenant.Tenant{PropertyID: casa.ID, PropertyName: "stale name", LegacyProperty: "depto 4b"},
			want:   "Casa Azul",
		},
		{
			name:   "denormalized name used verbatim",
			tenant: &tenant.Tenant{PropertyName: "La Bodega"},
			want:   "La Bodega",
		},
		{
			name:   "legacy free text matches case-insensitively",
			tenant: &tenant.Tenant{LegacyProperty: "CASA azul"},
			want:   "Casa Azul",
		},
		{
			name:   "legacy text with no match falls through",
			tenant: &tenant.Tenant{LegacyProperty: "Casa Verde"},
			want:   UnassignedLabel,
		},
		{
			name:   "empty record",
			tenant: &tenant.Tenant{},
			want:   UnassignedLabel,
		},
		{
			name:   "nil tenant",
			tenant: nil,
			want:   UnassignedLabel,
		},
		{
			name: "unknown property id falls through to name",
			tenant: &tenant.Tenant{
				PropertyID:   id.NewPropertyID(),
				PropertyName: "Depto 4B",
			},
			want: "Depto 4B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Label(tt.tenant); got != tt.want {
				t.Errorf("Label: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolverEmptyCollection(t *testing.T) {
	r := NewResolver(nil)

	tn := &tenant.Tenant{LegacyProperty: "Casa Azul"}
	if got := r.Label(tn); got != UnassignedLabel {
		t.Errorf("Label: got %q, want %q", got, UnassignedLabel)
	}
}

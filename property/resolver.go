package property

import (
	"strings"

	"github.com/kkunes/controlrentas/tenant"
)

// UnassignedLabel is the sentinel shown when no property can be resolved
// for a tenant through any of the historical record shapes.
const UnassignedLabel = "Unassigned"

// Resolver maps a tenant record to a property display label across the
// record shapes that accumulated in the upstream data. The fallback order
// encodes real data-migration history and must be preserved exactly:
//
//  1. explicit PropertyID reference → canonical property name
//  2. denormalized PropertyName field → used verbatim
//  3. free-text LegacyProperty field → case-insensitive match against the
//     property collection → canonical name
//  4. UnassignedLabel
type Resolver struct {
	byID   map[string]*Property
	byName map[string]*Property // lowercased name
}

// NewResolver indexes the property collection for lookup.
func NewResolver(properties []*Property) *Resolver {
	r := &Resolver{
		byID:   make(map[string]*Property, len(properties)),
		byName: make(map[string]*Property, len(properties)),
	}
	for _, p := range properties {
		r.byID[p.ID.String()] = p
		r.byName[strings.ToLower(p.Name)] = p
	}
	return r
}

// Label resolves the property display label for a tenant.
func (r *Resolver) Label(t *tenant.Tenant) string {
	if t == nil {
		return UnassignedLabel
	}

	if !t.PropertyID.IsNil() {
		if p, ok := r.byID[t.PropertyID.String()]; ok {
			return p.Name
		}
	}

	if t.PropertyName != "" {
		return t.PropertyName
	}

	if t.LegacyProperty != "" {
		if p, ok := r.byName[strings.ToLower(t.LegacyProperty)]; ok {
			return p.Name
		}
	}

	return UnassignedLabel
}

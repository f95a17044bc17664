package api

import "strings"

// PricingRule selects how a product's unit price is derived from its
// selected options.
type PricingRule string

const (
	// PricingSum adds every selected delta to the base price.
	PricingSum PricingRule = "SUM"
	// PricingMaxOption charges the most expensive flavor plus all add-ons.
	PricingMaxOption PricingRule = "MAX_OPTION"
	// PricingHalfSum charges the mean of the selected flavors plus all add-ons.
	PricingHalfSum PricingRule = "HALF_SUM"
)

// RequiresFlavor reports whether the rule is only valid with at least one
// selection in the flavor group.
func (r PricingRule) RequiresFlavor() bool {
	switch r {
	case PricingMaxOption, PricingHalfSum:
		return true
	default:
		return false
	}
}

// Valid reports whether r is a known rule.
func (r PricingRule) Valid() bool {
	switch r {
	case PricingSum, PricingMaxOption, PricingHalfSum:
		return true
	default:
		return false
	}
}

// GroupRole tells the pricing engine how an option group participates in
// pricing.
type GroupRole string

const (
	RoleUnset  GroupRole = ""
	RoleAddon  GroupRole = "ADDON"
	RoleFlavor GroupRole = "FLAVOR"
)

// FlavorGroupName is the legacy group name that marks a flavor group when no
// explicit role is configured.
const FlavorGroupName = "flavor"

// OptionItem is a single selected option.
type OptionItem struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	PriceDeltaCents int64  `json:"price_delta_cents"`
}

// OptionGroup holds the options a customer selected within one group.
// Unselected catalog options are never part of a group passed to pricing.
type OptionGroup struct {
	Name  string       `json:"name"`
	Role  GroupRole    `json:"role,omitempty"`
	Items []OptionItem `json:"items"`
}

// IsFlavor reports whether the group is the flavor group. An explicit role
// always wins over the name convention.
func (g OptionGroup) IsFlavor() bool {
	switch g.Role {
	case RoleFlavor:
		return true
	case RoleAddon:
		return false
	default:
		return strings.EqualFold(strings.TrimSpace(g.Name), FlavorGroupName)
	}
}

// Product is the catalog snapshot used to price a line item.
type Product struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	PricingRule    PricingRule `json:"pricing_rule"`
	BasePriceCents int64       `json:"base_price_cents"`
}

package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/orderdesk/pkg/api"
)

func flavors(deltas ...int64) api.OptionGroup {
	return group("Sabores", api.RoleFlavor, deltas...)
}

func addons(deltas ...int64) api.OptionGroup {
	return group("Extras", api.RoleAddon, deltas...)
}

func group(name string, role api.GroupRole, deltas ...int64) api.OptionGroup {
	g := api.OptionGroup{Name: name, Role: role}
	for _, d := range deltas {
		g.Items = append(g.Items, api.OptionItem{PriceDeltaCents: d})
	}
	return g
}

func TestComputePrice(t *testing.T) {
	cases := []struct {
		name       string
		rule       api.PricingRule
		base       int64
		groups     []api.OptionGroup
		wantPrice  int64
		wantFlavor bool
	}{
		{"sum empty groups", api.PricingSum, 1500, nil, 1500, false},
		{"sum adds every group", api.PricingSum, 1000, []api.OptionGroup{flavors(300, 200), addons(50)}, 1550, true},
		{"sum ignores grouping", api.PricingSum, 1000, []api.OptionGroup{addons(300), addons(200, 50)}, 1550, false},
		{"sum negative delta not clamped", api.PricingSum, 1000, []api.OptionGroup{addons(-1500)}, -500, false},
		{"max option picks highest flavor", api.PricingMaxOption, 0, []api.OptionGroup{flavors(1200, 1500), addons(200)}, 1700, true},
		{"max option single flavor", api.PricingMaxOption, 0, []api.OptionGroup{flavors(1200)}, 1200, true},
		{"max option no flavor selection", api.PricingMaxOption, 0, []api.OptionGroup{flavors(), addons(200)}, 200, false},
		{"max option no flavor group", api.PricingMaxOption, 500, []api.OptionGroup{addons(200)}, 700, false},
		{"half sum single flavor", api.PricingHalfSum, 0, []api.OptionGroup{flavors(4000)}, 4000, true},
		{"half sum two flavors", api.PricingHalfSum, 0, []api.OptionGroup{flavors(4000, 2600)}, 3300, true},
		{"half sum with addon", api.PricingHalfSum, 0, []api.OptionGroup{flavors(4000, 2600), addons(200)}, 3500, true},
		{"half sum rounds half up", api.PricingHalfSum, 0, []api.OptionGroup{flavors(1001, 1000)}, 1001, true},
		{"half sum negative rounds toward positive", api.PricingHalfSum, 0, []api.OptionGroup{flavors(-3, 0)}, -1, true},
		{"half sum no flavor selection", api.PricingHalfSum, 0, []api.OptionGroup{flavors()}, 0, false},
		{"empty groups half sum", api.PricingHalfSum, 900, nil, 900, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputePrice(tc.rule, tc.base, tc.groups)
			require.Equal(t, tc.wantPrice, got.UnitPriceCents)
			require.Equal(t, tc.wantFlavor, got.HasFlavorSelection)
		})
	}
}

func TestComputePrice_LegacyFlavorNameWithoutRole(t *testing.T) {
	groups := []api.OptionGroup{
		group("Flavor", api.RoleUnset, 4000, 2600),
		group("Border", api.RoleUnset, 200),
	}
	got := ComputePrice(api.PricingHalfSum, 0, groups)
	require.True(t, got.HasFlavorSelection)
	require.Equal(t, int64(3500), got.UnitPriceCents)
}

func TestComputePrice_ExplicitAddonRoleOverridesName(t *testing.T) {
	groups := []api.OptionGroup{group("flavor", api.RoleAddon, 1200, 1500)}
	got := ComputePrice(api.PricingMaxOption, 0, groups)
	require.False(t, got.HasFlavorSelection)
	require.Equal(t, int64(2700), got.UnitPriceCents)
}

func TestComputePrice_SecondFlavorGroupPricedAsAddon(t *testing.T) {
	groups := []api.OptionGroup{flavors(1200, 1500), flavors(100, 100)}
	got := ComputePrice(api.PricingMaxOption, 0, groups)
	require.Equal(t, int64(1700), got.UnitPriceCents)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(api.PricingSum, Result{}))
	require.NoError(t, Validate(api.PricingHalfSum, Result{HasFlavorSelection: true}))

	err := Validate(api.PricingMaxOption, Result{})
	require.ErrorIs(t, err, api.ErrFlavorSelectionRequired)

	err = Validate(api.PricingRule("BOGUS"), Result{})
	require.ErrorIs(t, err, api.ErrInvalidOrder)
}

func TestPrice_WrapsProductName(t *testing.T) {
	_, err := Price(api.Product{Name: "Pizza G", PricingRule: api.PricingHalfSum}, nil)
	if !errors.Is(err, api.ErrFlavorSelectionRequired) {
		t.Fatalf("expected ErrFlavorSelectionRequired, got %v", err)
	}
	require.Contains(t, err.Error(), "Pizza G")
}

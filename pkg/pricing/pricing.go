// Package pricing resolves a product's unit price from its pricing rule and
// the options the customer selected. It is pure and performs no I/O.
package pricing

import (
	"fmt"

	"github.com/petrijr/orderdesk/pkg/api"
)

// Result is the outcome of a price computation.
type Result struct {
	UnitPriceCents int64
	// HasFlavorSelection is true iff a flavor group exists and at least one
	// of its options was selected.
	HasFlavorSelection bool
}

// ComputePrice returns the unit price for base plus the selected groups
// according to rule.
//
// The flavor group is the first group reporting IsFlavor; any later flavor
// group is priced as a plain add-on group. ComputePrice never fails: rules
// that need a flavor selection report HasFlavorSelection=false and the caller
// decides, see Validate.
func ComputePrice(rule api.PricingRule, basePriceCents int64, groups []api.OptionGroup) Result {
	flavorIdx := -1
	for i, g := range groups {
		if g.IsFlavor() {
			flavorIdx = i
			break
		}
	}

	res := Result{
		HasFlavorSelection: flavorIdx >= 0 && len(groups[flavorIdx].Items) > 0,
	}

	var others int64
	for i, g := range groups {
		if i == flavorIdx && rule != api.PricingSum {
			continue
		}
		others += sumDeltas(g.Items)
	}

	var flavor int64
	if flavorIdx >= 0 && res.HasFlavorSelection {
		items := groups[flavorIdx].Items
		switch rule {
		case api.PricingMaxOption:
			flavor = maxDelta(items)
		case api.PricingHalfSum:
			flavor = meanRoundHalfUp(sumDeltas(items), int64(len(items)))
		}
	}

	res.UnitPriceCents = basePriceCents + flavor + others
	return res
}

// Validate returns api.ErrFlavorSelectionRequired when rule needs a flavor
// selection that res does not have.
func Validate(rule api.PricingRule, res Result) error {
	if !rule.Valid() {
		return fmt.Errorf("%w: unknown pricing rule %q", api.ErrInvalidOrder, rule)
	}
	if rule.RequiresFlavor() && !res.HasFlavorSelection {
		return api.ErrFlavorSelectionRequired
	}
	return nil
}

// Price computes and validates in one call.
func Price(product api.Product, groups []api.OptionGroup) (Result, error) {
	res := ComputePrice(product.PricingRule, product.BasePriceCents, groups)
	if err := Validate(product.PricingRule, res); err != nil {
		return res, fmt.Errorf("product %q: %w", product.Name, err)
	}
	return res, nil
}

func sumDeltas(items []api.OptionItem) int64 {
	var s int64
	for _, it := range items {
		s += it.PriceDeltaCents
	}
	return s
}

func maxDelta(items []api.OptionItem) int64 {
	m := items[0].PriceDeltaCents
	for _, it := range items[1:] {
		if it.PriceDeltaCents > m {
			m = it.PriceDeltaCents
		}
	}
	return m
}

// meanRoundHalfUp returns sum/n rounded to the nearest integer, ties toward
// positive infinity.
func meanRoundHalfUp(sum, n int64) int64 {
	num := 2*sum + n
	den := 2 * n
	q := num / den
	if num%den != 0 && num < 0 {
		q--
	}
	return q
}

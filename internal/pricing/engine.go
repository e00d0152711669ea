package pricing

import "sort"

// Money represents a monetary value stored in minor units.
type Money = int64

// Tier defines a unit price that applies once an order reaches MinQuantity units.
type Tier struct {
	MinQuantity int   `json:"minQuantity"`
	UnitPrice   Money `json:"unitPrice"`
}

// Item describes a priced order line used for total aggregation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed order components.
type Summary struct {
	UniqueItems int
	TotalUnits  int
	TotalValue  Money
}

// Normalize returns a copy of tiers sorted ascending by minimum quantity.
// The sort is stable so tiers sharing a threshold keep their insertion order.
func Normalize(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinQuantity < out[j].MinQuantity
	})
	return out
}

// Resolve returns the unit price applicable to qty given tiers sorted
// ascending by minimum quantity. It returns 0 when no price is available:
// non-positive quantity or an empty tier list. With a single tier its price
// applies to any quantity. Otherwise the highest tier whose threshold the
// quantity reaches wins; among tiers sharing a threshold the last inserted
// wins. A quantity below every threshold resolves to the lowest tier rather
// than no match.
func Resolve(tiers []Tier, qty int) Money {
	if qty <= 0 || len(tiers) == 0 {
		return 0
	}
	if len(tiers) == 1 {
		return tiers[0].UnitPrice
	}
	for i := len(tiers) - 1; i >= 0; i-- {
		if qty >= tiers[i].MinQuantity {
			return tiers[i].UnitPrice
		}
	}
	return tiers[0].UnitPrice
}

// Compute aggregates line items into an order summary. Lines with a
// non-positive quantity contribute nothing.
func Compute(items []Item) Summary {
	var s Summary
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		s.UniqueItems++
		s.TotalUnits += it.Qty
		s.TotalValue += Money(it.Qty) * it.UnitPrice
	}
	return s
}

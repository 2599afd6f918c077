// Package facet implements the faceted filter engine behind the admin
// listing dashboard.
//
// An Engine owns the full listing collection and a FilterState. It derives
// the facet value sets (cities, regions, categories) and the visible subset
// synchronously from those two pieces of state:
//
//   - Cities and Categories depend only on the collection.
//   - Regions depends on the collection and the selected city.
//   - The visible subset is recomputed in full after every mutation by
//     applying the predicate chain city, region, category, price floor,
//     price ceiling, status (logical AND).
//
// Selecting a city always clears the selected region, so a region can never
// point at a city it does not belong to.
//
// The engine has no failure states: malformed listings are normalized,
// unparseable price bounds are treated as unset and stale selections simply
// match nothing.
//
// An Engine is not safe for concurrent use. Callers that share one across
// goroutines must serialize access (see internal/session).
package facet

import "github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/listing"

// Engine is the facet-filter engine for one view.
type Engine struct {
	collection []listing.Listing
	state      FilterState
	cities     []string
	regions    []string
	categories []string
	visible    []listing.Listing
}

// New returns an engine over an empty collection.
func New() *Engine {
	e := &Engine{}
	e.Initialize(nil)
	return e
}

// Initialize replaces the collection wholesale, resets the filter state to
// its defaults, re-derives every facet and makes the whole collection
// visible. Calling it again fully supersedes the previous load.
func (e *Engine) Initialize(collection []listing.Listing) {
	e.collection = listing.NormalizeAll(collection)
	e.state = DefaultState()
	e.cities = distinct(e.collection, func(l *listing.Listing) string { return l.City })
	e.categories = distinct(e.collection, func(l *listing.Listing) string { return l.Category })
	e.regions = deriveRegions(e.collection, "")
	e.recompute()
}

// SetFilterValue updates one dimension and recomputes the visible subset.
// Setting the city clears the region and re-derives the region facet.
// Unknown dimensions are ignored.
func (e *Engine) SetFilterValue(dim Dimension, value any) {
	switch dim {
	case DimCity:
		e.state.City = coerceString(value)
		e.state.Region = ""
		e.regions = deriveRegions(e.collection, e.state.City)
	case DimRegion:
		e.state.Region = coerceString(value)
	case DimCategory:
		e.state.Category = coerceString(value)
	case DimPriceMin:
		e.state.PriceMin = coerceBound(value)
	case DimPriceMax:
		e.state.PriceMax = coerceBound(value)
	default:
		return
	}
	e.recompute()
}

// SetStatusFilter sets the status selector and recomputes the visible
// subset. Values outside the enumerated set are ignored.
func (e *Engine) SetStatusFilter(status Status) {
	if !status.Valid() {
		return
	}
	e.state.Status = status
	e.recompute()
}

// Reset restores the default filter state over the current collection.
func (e *Engine) Reset() {
	e.state = DefaultState()
	e.regions = deriveRegions(e.collection, "")
	e.recompute()
}

// State returns a copy of the current filter state.
func (e *Engine) State() FilterState {
	return e.state.clone()
}

// Facets returns copies of the current facet value sets.
func (e *Engine) Facets() Facets {
	return Facets{
		Cities:     copyStrings(e.cities),
		Regions:    copyStrings(e.regions),
		Categories: copyStrings(e.categories),
	}
}

// Visible returns a copy of the listings that satisfy the current state, in
// collection order.
func (e *Engine) Visible() []listing.Listing {
	out := make([]listing.Listing, len(e.visible))
	copy(out, e.visible)
	return out
}

// Collection returns a copy of the full, normalized collection.
func (e *Engine) Collection() []listing.Listing {
	out := make([]listing.Listing, len(e.collection))
	copy(out, e.collection)
	return out
}

// Total is the size of the full collection.
func (e *Engine) Total() int {
	return len(e.collection)
}

// VisibleCount is the size of the visible subset.
func (e *Engine) VisibleCount() int {
	return len(e.visible)
}

func (e *Engine) recompute() {
	e.visible = apply(e.collection, e.state)
}

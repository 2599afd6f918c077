package facet

import "github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/listing"

type predicate func(l *listing.Listing) bool

// buildChain returns the active predicates in their fixed order: city,
// region, category, price floor, price ceiling, status.
func buildChain(s FilterState) []predicate {
	chain := make([]predicate, 0, 6)
	if s.City != "" {
		city := s.City
		chain = append(chain, func(l *listing.Listing) bool { return l.City == city })
	}
	if s.Region != "" {
		region := s.Region
		chain = append(chain, func(l *listing.Listing) bool { return l.Region == region })
	}
	if s.Category != "" {
		category := s.Category
		chain = append(chain, func(l *listing.Listing) bool { return l.Category == category })
	}
	if s.PriceMin != nil {
		lo := *s.PriceMin
		chain = append(chain, func(l *listing.Listing) bool { return l.Price >= lo })
	}
	if s.PriceMax != nil {
		hi := *s.PriceMax
		chain = append(chain, func(l *listing.Listing) bool { return l.Price <= hi })
	}
	if p := statusPredicate(s.Status); p != nil {
		chain = append(chain, p)
	}
	return chain
}

// statusPredicate returns nil when the selector does not constrain.
func statusPredicate(s Status) predicate {
	switch s {
	case StatusAll, "":
		return nil
	case StatusVerified:
		return func(l *listing.Listing) bool { return l.Verified }
	case StatusUnverified:
		return func(l *listing.Listing) bool { return !l.Verified }
	default:
		want := listing.Availability(s)
		return func(l *listing.Listing) bool { return l.Availability == want }
	}
}

// apply filters collection against s, preserving collection order.
func apply(collection []listing.Listing, s FilterState) []listing.Listing {
	chain := buildChain(s)
	out := make([]listing.Listing, 0, len(collection))
	for i := range collection {
		if matchesAll(&collection[i], chain) {
			out = append(out, collection[i])
		}
	}
	return out
}

func matchesAll(l *listing.Listing, chain []predicate) bool {
	for _, p := range chain {
		if !p(l) {
			return false
		}
	}
	return true
}

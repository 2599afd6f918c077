package facet

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/listing"
)

// Facets holds the distinct values offered for each selectable dimension.
// Slices are sorted ascending; their order carries no meaning.
type Facets struct {
	Cities     []string `json:"cities"`
	Regions    []string `json:"regions"`
	Categories []string `json:"categories"`
}

// deriveRegions returns the distinct regions of listings in city, or of the
// whole collection when city is empty.
func deriveRegions(collection []listing.Listing, city string) []string {
	if city == "" {
		return distinct(collection, func(l *listing.Listing) string { return l.Region })
	}
	return distinct(collection, func(l *listing.Listing) string {
		if l.City != city {
			return ""
		}
		return l.Region
	})
}

// distinct collects the non-empty values of key across collection.
func distinct(collection []listing.Listing, key func(*listing.Listing) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := range collection {
		v := key(&collection[i])
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

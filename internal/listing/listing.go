// Package listing defines the rental listing record consumed by the facet
// engine and the normalization pass applied once at the loading boundary.
package listing

import (
	"math"
	"strings"
)

// Availability is the rental state of a listing as reported by the API.
type Availability string

const (
	Available Availability = "available"
	Rented    Availability = "rented"
	Pending   Availability = "pending"
)

// Listing is one property record. City, Region, Category, Price, Verified
// and Availability are filter dimensions; the rest is carried for display.
type Listing struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	City         string       `json:"city"`
	Region       string       `json:"region"`
	Category     string       `json:"category"`
	Price        float64      `json:"price"`
	Currency     string       `json:"currency"`
	Verified     bool         `json:"verified"`
	Availability Availability `json:"availability"`
	Images       []string     `json:"images"`
	Amenities    []string     `json:"amenities"`
}

// Normalize returns a copy of l with trimmed attributes, a lower-cased
// availability state, a finite price and non-nil list fields.
func Normalize(l Listing) Listing {
	l.ID = strings.TrimSpace(l.ID)
	l.Title = strings.TrimSpace(l.Title)
	l.City = strings.TrimSpace(l.City)
	l.Region = strings.TrimSpace(l.Region)
	l.Category = strings.TrimSpace(l.Category)
	l.Currency = strings.TrimSpace(l.Currency)
	l.Availability = Availability(strings.ToLower(strings.TrimSpace(string(l.Availability))))
	if math.IsNaN(l.Price) || math.IsInf(l.Price, 0) {
		l.Price = 0
	}
	l.Images = orEmpty(l.Images)
	l.Amenities = orEmpty(l.Amenities)
	return l
}

// NormalizeAll normalizes every listing into a new slice. A nil input
// yields an empty, non-nil slice.
func NormalizeAll(listings []Listing) []Listing {
	out := make([]Listing, len(listings))
	for i, l := range listings {
		out[i] = Normalize(l)
	}
	return out
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

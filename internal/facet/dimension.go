package facet

import "strings"

// Dimension names a filter attribute that SetFilterValue accepts.
type Dimension string

const (
	DimCity     Dimension = "city"
	DimRegion   Dimension = "region"
	DimCategory Dimension = "category"
	DimPriceMin Dimension = "priceMin"
	DimPriceMax Dimension = "priceMax"
)

// dimensionAliases also accepts the field names used by the dashboard form.
var dimensionAliases = map[string]Dimension{
	"city":         DimCity,
	"region":       DimRegion,
	"category":     DimCategory,
	"type":         DimCategory,
	"propertytype": DimCategory,
	"pricemin":     DimPriceMin,
	"rentmin":      DimPriceMin,
	"pricemax":     DimPriceMax,
	"rentmax":      DimPriceMax,
}

// ParseDimension resolves a dimension name case-insensitively.
func ParseDimension(name string) (Dimension, bool) {
	d, ok := dimensionAliases[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Status is the single status selector. Verified and Unverified test the
// verification flag; Available, Rented and Pending test the availability
// state; All disables the predicate.
type Status string

const (
	StatusAll        Status = "all"
	StatusAvailable  Status = "available"
	StatusRented     Status = "rented"
	StatusPending    Status = "pending"
	StatusVerified   Status = "verified"
	StatusUnverified Status = "unverified"
)

var statuses = []Status{
	StatusAll,
	StatusAvailable,
	StatusRented,
	StatusPending,
	StatusVerified,
	StatusUnverified,
}

// Statuses lists the selector values in display order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// Valid reports whether s is one of the enumerated selector values.
func (s Status) Valid() bool {
	for _, v := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus resolves a selector value case-insensitively. The empty string
// maps to StatusAll.
func ParseStatus(value string) (Status, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return StatusAll, true
	}
	s := Status(v)
	return s, s.Valid()
}

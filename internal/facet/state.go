package facet

// FilterState is the complete set of selected filter values. Empty strings
// and nil bounds mean "no constraint".
type FilterState struct {
	City     string   `json:"city"`
	Region   string   `json:"region"`
	Category string   `json:"category"`
	PriceMin *float64 `json:"price_min"`
	PriceMax *float64 `json:"price_max"`
	Status   Status   `json:"status"`
}

// DefaultState returns the state an engine starts with: no constraints and
// StatusAll.
func DefaultState() FilterState {
	return FilterState{Status: StatusAll}
}

// IsDefault reports whether no predicate is active.
func (s FilterState) IsDefault() bool {
	return s.City == "" && s.Region == "" && s.Category == "" &&
		s.PriceMin == nil && s.PriceMax == nil && s.Status == StatusAll
}

// ActiveCount returns the number of active predicates.
func (s FilterState) ActiveCount() int {
	n := 0
	for _, active := range []bool{
		s.City != "",
		s.Region != "",
		s.Category != "",
		s.PriceMin != nil,
		s.PriceMax != nil,
		s.Status != StatusAll,
	} {
		if active {
			n++
		}
	}
	return n
}

func (s FilterState) clone() FilterState {
	out := s
	out.PriceMin = copyBound(s.PriceMin)
	out.PriceMax = copyBound(s.PriceMax)
	return out
}

func copyBound(b *float64) *float64 {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

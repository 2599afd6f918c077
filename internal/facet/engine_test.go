package facet

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/internal/listing"
)

func sampleListings() []listing.Listing {
	return []listing.Listing{
		{ID: "1", City: "Lahore", Region: "DHA", Category: "apartment", Price: 50000, Availability: listing.Available, Verified: true},
		{ID: "2", City: "Lahore", Region: "Gulberg", Category: "house", Price: 80000, Availability: listing.Rented, Verified: false},
		{ID: "3", City: "Karachi", Region: "Clifton", Category: "apartment", Price: 60000, Availability: listing.Available, Verified: true},
	}
}

func newSampleEngine(t *testing.T) *Engine {
	t.Helper()
	e := New()
	e.Initialize(sampleListings())
	return e
}

func ids(listings []listing.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out
}

func TestInitialize_AllVisible(t *testing.T) {
	e := newSampleEngine(t)

	assert.Equal(t, []string{"1", "2", "3"}, ids(e.Visible()))
	assert.Equal(t, 3, e.Total())
	assert.Equal(t, DefaultState(), e.State())
	assert.Equal(t, Facets{
		Cities:     []string{"Karachi", "Lahore"},
		Regions:    []string{"Clifton", "DHA", "Gulberg"},
		Categories: []string{"apartment", "house"},
	}, e.Facets())
}

func TestInitialize_NormalizesListFields(t *testing.T) {
	e := New()
	e.Initialize([]listing.Listing{{ID: "x"}})

	got := e.Visible()
	require.Len(t, got, 1)
	assert.NotNil(t, got[0].Images)
	assert.NotNil(t, got[0].Amenities)
}

func TestInitialize_ReplacesPreviousLoad(t *testing.T) {
	e := newSampleEngine(t)
	e.SetFilterValue(DimCity, "Lahore")
	e.SetStatusFilter(StatusRented)

	e.Initialize([]listing.Listing{{ID: "9", City: "Islamabad", Region: "F-7"}})

	assert.Equal(t, DefaultState(), e.State())
	assert.Equal(t, []string{"9"}, ids(e.Visible()))
	assert.Equal(t, []string{"Islamabad"}, e.Facets().Cities)
	assert.Equal(t, []string{"F-7"}, e.Facets().Regions)
}

func TestSetFilterValue_City(t *testing.T) {
	e := newSampleEngine(t)

	e.SetFilterValue(DimCity, "Lahore")

	assert.Equal(t, []string{"1", "2"}, ids(e.Visible()))
	assert.Equal(t, []string{"DHA", "Gulberg"}, e.Facets().Regions)
}

func TestSetFilterValue_CityChangeClearsRegion(t *testing.T) {
	e := newSampleEngine(t)
	e.SetFilterValue(DimCity, "Lahore")
	e.SetFilterValue(DimRegion, "Gulberg")
	require.Equal(t, []string{"2"}, ids(e.Visible()))

	e.SetFilterValue(DimCity, "Karachi")

	assert.Empty(t, e.State().Region)
	assert.Equal(t, []string{"3"}, ids(e.Visible()))
	assert.Equal(t, []string{"Clifton"}, e.Facets().Regions)
}

func TestSetFilterValue_SameCityStillClearsRegion(t *testing.T) {
	e := newSampleEngine(t)
	e.SetFilterValue(DimCity, "Lahore")
	e.SetFilterValue(DimRegion, "DHA")

	e.SetFilterValue(DimCity, "Lahore")

	assert.Empty(t, e.State().Region)
	assert.Len(t, e.Visible(), 2)
}

func TestSetFilterValue_ClearingCityRestoresAllRegions(t *testing.T) {
	e := newSampleEngine(t)
	e.SetFilterValue(DimCity, "Karachi")

	e.SetFilterValue(DimCity, "")

	assert.Equal(t, []string{"Clifton", "DHA", "Gulberg"}, e.Facets().Regions)
	assert.Len(t, e.Visible(), 3)
}

func TestSetFilterValue_PriceMin(t *testing.T) {
	e := newSampleEngine(t)

	e.SetFilterValue(DimPriceMin, 55000)

	assert.ElementsMatch(t, []string{"2", "3"}, ids(e.Visible()))
}

// Facets derive from the full collection, not the visible subset.
func TestSetFilterValue_PriceMinAboveAll(t *testing.T) {
	e := newSampleEngine(t)
	before := e.Facets()

	e.SetFilterValue(DimPriceMin, 90000)

	assert.Empty(t, e.Visible())
	assert.Equal(t, before, e.Facets())
}

func TestSetFilterValue_PriceBoundsInclusive(t *testing.T) {
	e := newSampleEngine(t)

	e.SetFilterValue(DimPriceMin, "50000")
	e.SetFilterValue(DimPriceMax, 60000.0)

	assert.Equal(t, []string{"1", "3"}, ids(e.Visible()))
}

func TestSetFilterValue_OutOfOrderBounds(t *testing.T) {
	e := newSampleEngine(t)

	e.SetFilterValue(DimPriceMin, 70000)
	e.SetFilterValue(DimPriceMax, 60000)

	assert.Empty(t, e.Visible())
}

func TestSetFilterValue_UnparseableBoundIsUnset(t *testing.T) {
	e := newSampleEngine(t)
	e.SetFilterValue(DimPriceMin, 55000)
	require.Len(t, e.Visible(), 2)

	e.SetFilterValue(DimPriceMin, "abc")

	assert.Nil(t, e.State().PriceMin)
	assert.Len(t, e.Visible(), 3)
}

func TestSetFilterValue_Category(t *testing.T) {
	e := newSampleEngine(t)

	e.SetFilterValue(DimCategory, " apartment ")

	assert.Equal(t, "apartment", e.State().Category)
	assert.Equal(t, []string{"1", "3"}, ids(e.Visible()))
}

func TestSetFilterValue_StaleValueMatchesNothing(t *testing.T) {
	e := newSampleEngine(t)

	e.SetFilterValue(DimCity, "Quetta")

	assert.Equal(t, "Quetta", e.State().City)
	assert.Empty(t, e.Visible())
	assert.Empty(t, e.Facets().Regions)
}

func TestSetFilterValue_RegionWithoutCity(t *testing.T) {
	e := newSampleEngine(t)

	e.SetFilterValue(DimRegion, "Clifton")

	assert.Equal(t, []string{"3"}, ids(e.Visible()))
	assert.Equal(t, []string{"Clifton", "DHA", "Gulberg"}, e.Facets().Regions)
}

func TestSetFilterValue_UnknownDimensionIgnored(t *testing.T) {
	e := newSampleEngine(t)

	e.SetFilterValue(Dimension("bedrooms"), 3)

	assert.Equal(t, DefaultState(), e.State())
	assert.Len(t, e.Visible(), 3)
}

// Verified ignores availability.
func TestSetStatusFilter_Verified(t *testing.T) {
	e := newSampleEngine(t)

	e.SetStatusFilter(StatusVerified)

	assert.Equal(t, []string{"1", "3"}, ids(e.Visible()))
}

func TestSetStatusFilter_Values(t *testing.T) {
	tests := []struct {
		status Status
		want   []string
	}{
		{StatusAll, []string{"1", "2", "3"}},
		{StatusAvailable, []string{"1", "3"}},
		{StatusRented, []string{"2"}},
		{StatusPending, []string{}},
		{StatusVerified, []string{"1", "3"}},
		{StatusUnverified, []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			e := newSampleEngine(t)
			e.SetStatusFilter(tt.status)
			assert.Equal(t, tt.want, ids(e.Visible()))
			assert.Equal(t, tt.status, e.State().Status)
		})
	}
}

func TestSetStatusFilter_InvalidIgnored(t *testing.T) {
	e := newSampleEngine(t)
	e.SetStatusFilter(StatusRented)

	e.SetStatusFilter(Status("archived"))

	assert.Equal(t, StatusRented, e.State().Status)
	assert.Equal(t, []string{"2"}, ids(e.Visible()))
}

func TestSetStatusFilter_CombinesWithFilters(t *testing.T) {
	e := newSampleEngine(t)
	e.SetFilterValue(DimCity, "Lahore")

	e.SetStatusFilter(StatusVerified)

	assert.Equal(t, []string{"1"}, ids(e.Visible()))
}

func TestReset(t *testing.T) {
	e := newSampleEngine(t)
	e.SetFilterValue(DimCity, "Karachi")
	e.SetFilterValue(DimPriceMax, 10)
	e.SetStatusFilter(StatusRented)

	e.Reset()

	assert.Equal(t, DefaultState(), e.State())
	assert.Len(t, e.Visible(), 3)
	assert.Equal(t, []string{"Clifton", "DHA", "Gulberg"}, e.Facets().Regions)
}

// P1.
func TestRecompute_Deterministic(t *testing.T) {
	e := newSampleEngine(t)
	e.SetFilterValue(DimCategory, "apartment")
	e.SetStatusFilter(StatusAvailable)

	first := e.Visible()
	e.recompute()
	second := e.Visible()

	assert.Equal(t, first, second)
	assert.Equal(t, first, apply(e.Collection(), e.State()))
}

// P2.
func TestMonotonicNarrowing(t *testing.T) {
	e := newSampleEngine(t)
	steps := []func(){
		func() { e.SetFilterValue(DimCategory, "apartment") },
		func() { e.SetFilterValue(DimPriceMax, 70000) },
		func() { e.SetFilterValue(DimPriceMin, 40000) },
		func() { e.SetStatusFilter(StatusVerified) },
		func() { e.SetFilterValue(DimRegion, "DHA") },
	}

	prev := len(e.Visible())
	for i, step := range steps {
		step()
		got := len(e.Visible())
		assert.LessOrEqual(t, got, prev, "step %d widened the visible subset", i)
		prev = got
	}
}

// P3.
func TestCityRegionConsistency(t *testing.T) {
	e := newSampleEngine(t)
	sequence := []string{"Lahore", "Karachi", "", "Lahore", "Quetta", "Karachi"}

	for _, city := range sequence {
		if regions := e.Facets().Regions; len(regions) > 0 {
			e.SetFilterValue(DimRegion, regions[0])
		}
		e.SetFilterValue(DimCity, city)

		assert.Empty(t, e.State().Region, "city %q left a region selected", city)
		assert.Equal(t, deriveRegions(e.Collection(), city), e.Facets().Regions)
	}
}

// P4.
func TestRegionFacet_MatchesCity(t *testing.T) {
	collection := append(sampleListings(),
		listing.Listing{ID: "4", City: "Lahore", Region: "DHA"},
		listing.Listing{ID: "5", City: "Lahore", Region: ""},
		listing.Listing{ID: "6", City: "", Region: "Orphan"},
	)
	e := New()
	e.Initialize(collection)

	for _, city := range e.Facets().Cities {
		e.SetFilterValue(DimCity, city)

		want := map[string]struct{}{}
		for _, l := range collection {
			if l.City == city && l.Region != "" {
				want[l.Region] = struct{}{}
			}
		}
		got := e.Facets().Regions
		assert.Len(t, got, len(want), "city %s", city)
		for _, r := range got {
			assert.Contains(t, want, r)
		}
	}
	assert.Equal(t, []string{"Karachi", "Lahore"}, e.Facets().Cities)
}

// P5.
func TestInitialize_Empty(t *testing.T) {
	for _, in := range [][]listing.Listing{nil, {}} {
		e := New()
		e.Initialize(in)

		assert.NotNil(t, e.Visible())
		assert.Empty(t, e.Visible())
		assert.Empty(t, e.Facets().Cities)
		assert.Empty(t, e.Facets().Regions)
		assert.Empty(t, e.Facets().Categories)

		e.SetFilterValue(DimCity, "Lahore")
		e.SetStatusFilter(StatusVerified)
		assert.Empty(t, e.Visible())
	}
}

func TestReaders_ReturnCopies(t *testing.T) {
	e := newSampleEngine(t)
	e.SetFilterValue(DimPriceMin, 1)

	v := e.Visible()
	v[0].City = "mutated"
	f := e.Facets()
	f.Cities[0] = "mutated"
	s := e.State()
	*s.PriceMin = 999999

	assert.Equal(t, "Lahore", e.Visible()[0].City)
	assert.Equal(t, "Karachi", e.Facets().Cities[0])
	assert.Equal(t, 1.0, *e.State().PriceMin)
}

func TestInitialize_DoesNotMutateInput(t *testing.T) {
	in := []listing.Listing{{ID: " a ", City: " Lahore "}}
	e := New()
	e.Initialize(in)

	assert.Equal(t, " Lahore ", in[0].City)
	assert.Nil(t, in[0].Images)
}

func BenchmarkSetFilterValue(b *testing.B) {
	collection := make([]listing.Listing, 0, 1000)
	for i := 0; i < 1000; i++ {
		collection = append(collection, listing.Listing{
			ID:           fmt.Sprintf("p-%d", i),
			City:         fmt.Sprintf("city-%d", i%10),
			Region:       fmt.Sprintf("region-%d", i%40),
			Category:     fmt.Sprintf("type-%d", i%4),
			Price:        float64(1000 + i*10),
			Availability: listing.Available,
			Verified:     i%2 == 0,
		})
	}
	e := New()
	e.Initialize(collection)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.SetFilterValue(DimCity, fmt.Sprintf("city-%d", i%10))
		e.SetFilterValue(DimPriceMin, 2000)
	}
}

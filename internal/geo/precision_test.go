package geo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubReverser struct {
	name string
	c    Candidate
	err  error
	wait time.Duration
}

func (s stubReverser) Name() string { return s.name }

func (s stubReverser) Reverse(ctx context.Context, lat, lon float64) (Candidate, error) {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return Candidate{}, ctx.Err()
		}
	}
	if s.err != nil {
		return Candidate{}, s.err
	}
	c := s.c
	c.Source = s.name
	c.Lat, c.Lon = lat+0.001, lon+0.001
	return c, nil
}

type stubPostal struct {
	name  string
	code  string
	err   error
	calls *int
}

func (s stubPostal) Name() string { return s.name }

func (s stubPostal) Postcode(context.Context, float64, float64) (string, error) {
	if s.calls != nil {
		*s.calls++
	}
	return s.code, s.err
}

func TestRankPrefersPostcodeTier(t *testing.T) {
	candidates := []Candidate{
		{Source: "a", Confidence: 90},
		{Source: "b", Confidence: 80},
		{Source: "c", Confidence: 70, Postcode: "500001"},
	}
	best, ok := Rank(candidates)
	require.True(t, ok)
	assert.Equal(t, "c", best.Source)
}

func TestRankScoresDetail(t *testing.T) {
	candidates := []Candidate{
		{Source: "plain", Confidence: 90},
		{Source: "detailed", Confidence: 75, Village: "Gachibowli", Street: "Old Mumbai Hwy"},
		{Source: "low", Confidence: 60, Village: "x", Hamlet: "y", Neighborhood: "z"},
	}
	best, ok := Rank(candidates)
	require.True(t, ok)
	assert.Equal(t, "detailed", best.Source)

	_, ok = Rank([]Candidate{{Confidence: 60}, {Confidence: 10}})
	assert.False(t, ok)
}

func TestRankTieKeepsEarlier(t *testing.T) {
	best, ok := Rank([]Candidate{
		{Source: "first", Confidence: 80, Street: "A"},
		{Source: "second", Confidence: 80, Street: "B"},
	})
	require.True(t, ok)
	assert.Equal(t, "first", best.Source)
}

func TestDetailScore(t *testing.T) {
	full := Candidate{
		Village: "v", Hamlet: "h", Neighborhood: "n", Street: "s",
		HouseNumber: "1", Postcode: "p", Locality: "l", Suburb: "su",
	}
	assert.Equal(t, 90.0, DetailScore(full))
	assert.Equal(t, 0.0, DetailScore(Candidate{Postcode: "  "}))
}

func TestBackfillCity(t *testing.T) {
	c := BackfillCity(Candidate{Hamlet: "Kondapur", District: "Rangareddy"})
	assert.Equal(t, "Kondapur", c.City)
	assert.Equal(t, "Rangareddy", c.State)

	c = BackfillCity(Candidate{FullAddress: "Hitech City, Hyderabad, Telangana"})
	assert.Equal(t, "Hitech City", c.City)

	c = BackfillCity(Candidate{City: "Hyderabad", Locality: "Madhapur", State: "Telangana", District: "x"})
	assert.Equal(t, "Hyderabad", c.City)
	assert.Equal(t, "Telangana", c.State)
}

func TestResolvePreciseFiveProvidersOnePostcode(t *testing.T) {
	reversers := []ReverseGeocoder{
		stubReverser{name: "Nominatim OpenStreetMap", c: Candidate{Confidence: 95, Village: "Madhapur", Street: "Road 36", HouseNumber: "12"}},
		stubReverser{name: "MapBox", c: Candidate{Confidence: 85, Neighborhood: "Jubilee Hills", City: "Hyderabad"}},
		stubReverser{name: "BigDataCloud", c: Candidate{Confidence: 90, Locality: "Hyderabad", State: "Telangana"}, wait: 10 * time.Millisecond},
		stubReverser{name: "LocationIQ", c: Candidate{Confidence: 65, Postcode: "500081", City: "Hyderabad"}},
		stubReverser{name: "OpenCage Data", err: fmt.Errorf("opencage: %w", errors.New("quota exceeded"))},
	}
	calls := 0
	r := NewPrecisionResolver(reversers, []PostalCoder{stubPostal{name: "BigDataCloud", code: "999999", calls: &calls}}, zap.NewNop())

	got, err := r.ResolvePrecise(context.Background(), 17.4483, 78.3915)
	require.NoError(t, err)
	assert.Equal(t, "500081", got.Postcode)
	assert.Equal(t, "LocationIQ", got.Source)
	assert.Equal(t, 65.0, got.Confidence)
	assert.Equal(t, 17.4483, got.Lat)
	assert.Equal(t, 78.3915, got.Lon)
	assert.Equal(t, 0, calls, "postal cascade must not run when the winner has a postcode")
}

func TestResolvePreciseRunsPostalCascade(t *testing.T) {
	reversers := []ReverseGeocoder{
		stubReverser{name: "Nominatim OpenStreetMap", c: Candidate{Confidence: 90, Village: "Kokapet", District: "Rangareddy"}},
	}
	var bdc, nom, oc int
	postal := []PostalCoder{
		stubPostal{name: "BigDataCloud", err: errors.New("down"), calls: &bdc},
		stubPostal{name: "Nominatim", code: "500075", calls: &nom},
		stubPostal{name: "OpenCage", code: "000000", calls: &oc},
	}
	r := NewPrecisionResolver(reversers, postal, zap.NewNop())

	got, err := r.ResolvePrecise(context.Background(), 17.39, 78.33)
	require.NoError(t, err)
	assert.Equal(t, "500075", got.Postcode)
	assert.Equal(t, 95.0, got.Confidence)
	assert.Equal(t, "Kokapet", got.City)
	assert.Equal(t, "Rangareddy", got.State)
	assert.Equal(t, []int{1, 1, 0}, []int{bdc, nom, oc})
}

func TestResolvePreciseConfidenceBump(t *testing.T) {
	r := NewPrecisionResolver(
		[]ReverseGeocoder{stubReverser{name: "MapBox", c: Candidate{Confidence: 80, City: "Pune"}}},
		[]PostalCoder{stubPostal{name: "x", code: "411001"}},
		zap.NewNop(),
	)
	got, err := r.ResolvePrecise(context.Background(), 18.52, 73.85)
	require.NoError(t, err)
	assert.Equal(t, 88.0, got.Confidence)

	empty := NewPrecisionResolver(
		[]ReverseGeocoder{stubReverser{name: "MapBox", c: Candidate{Confidence: 80, City: "Pune"}}},
		[]PostalCoder{stubPostal{name: "x"}},
		zap.NewNop(),
	)
	got, err = empty.ResolvePrecise(context.Background(), 18.52, 73.85)
	require.NoError(t, err)
	assert.Empty(t, got.Postcode)
	assert.Equal(t, 80.0, got.Confidence)
}

func TestResolvePreciseNoUsableCandidates(t *testing.T) {
	r := NewPrecisionResolver([]ReverseGeocoder{
		stubReverser{name: "a", err: errors.New("boom")},
		stubReverser{name: "b", c: Candidate{Confidence: 55, City: "Nowhere"}},
	}, nil, zap.NewNop())

	_, err := r.ResolvePrecise(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

package providers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/skywatch/internal/common"
	"github.com/i474232898/skywatch/internal/geo"
)

// Google reverse-geocodes through the Google Maps Geocoding API. The
// underlying library keeps its key in a package variable, so only one key can
// be active per process.
type Google struct {
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

func NewGoogle(apiKey string) *Google {
	geocoder.ApiKey = apiKey
	return &Google{reverse: geocoder.GeocodingReverse}
}

func (g *Google) Name() string { return "Google Maps" }

// Reverse implements geo.ReverseGeocoder. The library call does not take a
// context, so cancellation only stops the wait.
func (g *Google) Reverse(ctx context.Context, lat, lon float64) (geo.Candidate, error) {
	type result struct {
		addrs []geocoder.Address
		err   error
	}
	done := make(chan result, 1)
	go func() {
		addrs, err := g.reverse(geocoder.Location{Latitude: lat, Longitude: lon})
		done <- result{addrs: addrs, err: err}
	}()

	select {
	case <-ctx.Done():
		return geo.Candidate{}, fmt.Errorf("google reverse: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return geo.Candidate{}, fmt.Errorf("google reverse: %w", r.err)
		}
		if len(r.addrs) == 0 {
			return geo.Candidate{}, fmt.Errorf("google reverse: %w", errNoResults)
		}
		c := googleCandidate(r.addrs[0])
		c.Lat, c.Lon = lat, lon
		c.Source = g.Name()
		return c, nil
	}
}

func googleCandidate(a geocoder.Address) geo.Candidate {
	var number string
	if a.Number > 0 {
		number = strconv.Itoa(a.Number)
	}
	return geo.Candidate{
		Neighborhood: a.Neighborhood,
		Street:       a.Street,
		HouseNumber:  number,
		Postcode:     a.PostalCode,
		City:         common.FirstNonEmpty(a.City, a.County),
		District:     common.FirstNonEmpty(a.District, a.County),
		State:        a.State,
		Country:      a.Country,
		FullAddress:  a.FormattedAddress,
		Confidence:   80,
	}
}

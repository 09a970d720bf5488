package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/i474232898/skywatch/internal/common"
	"github.com/i474232898/skywatch/internal/geo"
	"github.com/i474232898/skywatch/internal/upstream"
)

const locationIQURL = "https://us1.locationiq.com/v1/reverse.php"

// LocationIQ serves OpenStreetMap-shaped reverse results behind an API key.
type LocationIQ struct {
	client  *upstream.Client
	apiKey  string
	baseURL string
}

func NewLocationIQ(client *upstream.Client, apiKey string) *LocationIQ {
	return &LocationIQ{client: client, apiKey: apiKey, baseURL: locationIQURL}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (l *LocationIQ) WithBaseURL(u string) *LocationIQ {
	l.baseURL = u
	return l
}

func (l *LocationIQ) Name() string { return "LocationIQ" }

// Reverse implements geo.ReverseGeocoder.
func (l *LocationIQ) Reverse(ctx context.Context, lat, lon float64) (geo.Candidate, error) {
	if l.apiKey == "" {
		return geo.Candidate{}, fmt.Errorf("locationiq: %w", errNoCredential)
	}

	values := url.Values{}
	values.Set("key", l.apiKey)
	values.Set("lat", formatCoord(lat))
	values.Set("lon", formatCoord(lon))
	values.Set("format", "json")
	values.Set("addressdetails", "1")

	var place nominatimPlace
	if err := l.client.GetJSON(ctx, l.baseURL+"?"+values.Encode(), nil, &place); err != nil {
		return geo.Candidate{}, err
	}
	if place.Error != "" {
		return geo.Candidate{}, fmt.Errorf("locationiq: %s: %w", place.Error, errNoResults)
	}

	if place.Address == nil {
		return geo.Candidate{}, fmt.Errorf("locationiq: missing address: %w", errNoResults)
	}
	a := *place.Address
	return geo.Candidate{
		Lat:          lat,
		Lon:          lon,
		Village:      common.FirstNonEmpty(a.Village, a.Hamlet, a.Neighbourhood),
		Hamlet:       a.Hamlet,
		Neighborhood: common.FirstNonEmpty(a.Neighbourhood, a.Suburb),
		Suburb:       a.Suburb,
		Locality:     a.Locality,
		Street:       a.Road,
		HouseNumber:  a.HouseNumber,
		Postcode:     a.Postcode,
		City:         common.FirstNonEmpty(a.City, a.Town, a.Village),
		District:     common.FirstNonEmpty(a.County, a.StateDistrict),
		State:        a.State,
		Country:      a.Country,
		CountryCode:  strings.ToUpper(a.CountryCode),
		FullAddress:  place.DisplayName,
		Confidence:   80,
		Source:       l.Name(),
	}, nil
}

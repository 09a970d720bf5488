package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"

	"github.com/i474232898/skywatch/internal/common"
	"github.com/i474232898/skywatch/internal/geo"
	"github.com/i474232898/skywatch/internal/upstream"
)

const mapBoxURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

var errNoCredential = errors.New("no credential configured")

// MapBox reverse-geocodes with the Mapbox Places API. Each returned feature
// describes one level of the address hierarchy.
type MapBox struct {
	client  *upstream.Client
	token   string
	baseURL string
}

func NewMapBox(client *upstream.Client, token string) *MapBox {
	return &MapBox{client: client, token: token, baseURL: mapBoxURL}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (m *MapBox) WithBaseURL(u string) *MapBox {
	m.baseURL = u
	return m
}

func (m *MapBox) Name() string { return "MapBox" }

type mapBoxFeature struct {
	PlaceType  []string `json:"place_type"`
	Text       string   `json:"text"`
	PlaceName  string   `json:"place_name"`
	Address    string   `json:"address"`
	Properties struct {
		Address string `json:"address"`
	} `json:"properties"`
}

type mapBoxResponse struct {
	Features []mapBoxFeature `json:"features"`
}

// component returns the text of the first feature of the given place type.
func (r mapBoxResponse) component(placeType string) string {
	for _, f := range r.Features {
		if slices.Contains(f.PlaceType, placeType) {
			return f.Text
		}
	}
	return ""
}

// Reverse implements geo.ReverseGeocoder.
func (m *MapBox) Reverse(ctx context.Context, lat, lon float64) (geo.Candidate, error) {
	if m.token == "" {
		return geo.Candidate{}, fmt.Errorf("mapbox: %w", errNoCredential)
	}

	values := url.Values{}
	values.Set("access_token", m.token)
	values.Set("types", "address,poi,neighborhood,locality,place,district,postcode,region,country")

	endpoint := fmt.Sprintf("%s/%s,%s.json?%s", m.baseURL, formatCoord(lon), formatCoord(lat), values.Encode())
	var resp mapBoxResponse
	if err := m.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return geo.Candidate{}, err
	}
	if len(resp.Features) == 0 {
		return geo.Candidate{}, fmt.Errorf("mapbox: %w", errNoResults)
	}

	first := resp.Features[0]
	return geo.Candidate{
		Lat:          lat,
		Lon:          lon,
		Village:      resp.component("locality"),
		Neighborhood: resp.component("neighborhood"),
		Street:       common.FirstNonEmpty(first.Properties.Address, common.FirstSegment(first.PlaceName)),
		HouseNumber:  first.Address,
		City:         resp.component("place"),
		District:     resp.component("district"),
		State:        resp.component("region"),
		Country:      resp.component("country"),
		Postcode:     resp.component("postcode"),
		FullAddress:  first.PlaceName,
		Confidence:   85,
		Source:       m.Name(),
	}, nil
}

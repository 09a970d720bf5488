package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/i474232898/skywatch/internal/geo"
	"github.com/i474232898/skywatch/internal/upstream"
)

const openWeatherGeoURL = "https://api.openweathermap.org/geo/1.0/direct"

// OpenWeatherGeocoder resolves city names with OpenWeather's direct geocoding
// endpoint.
type OpenWeatherGeocoder struct {
	client  *upstream.Client
	apiKey  string
	baseURL string
}

func NewOpenWeatherGeocoder(client *upstream.Client, apiKey string) *OpenWeatherGeocoder {
	return &OpenWeatherGeocoder{client: client, apiKey: apiKey, baseURL: openWeatherGeoURL}
}

// WithBaseURL points the geocoder at another endpoint, e.g. a test server.
func (o *OpenWeatherGeocoder) WithBaseURL(u string) *OpenWeatherGeocoder {
	o.baseURL = u
	return o
}

func (o *OpenWeatherGeocoder) Name() string { return "OpenWeather" }

type openWeatherPlace struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	State   string  `json:"state"`
	Country string  `json:"country"`
}

// Geocode implements geo.Geocoder.
func (o *OpenWeatherGeocoder) Geocode(ctx context.Context, query string) (geo.GeocodeResult, error) {
	if o.apiKey == "" {
		return geo.GeocodeResult{}, fmt.Errorf("openweather geocoding: %w", errNoCredential)
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", "1")
	values.Set("appid", o.apiKey)

	var places []openWeatherPlace
	if err := o.client.GetJSON(ctx, o.baseURL+"?"+values.Encode(), nil, &places); err != nil {
		return geo.GeocodeResult{}, err
	}
	if len(places) == 0 {
		return geo.GeocodeResult{}, fmt.Errorf("openweather geocoding %q: %w", query, errNoResults)
	}

	p := places[0]
	parts := []string{p.Name}
	if p.State != "" {
		parts = append(parts, p.State)
	}
	if p.Country != "" {
		parts = append(parts, p.Country)
	}
	return geo.GeocodeResult{
		Lat:    p.Lat,
		Lon:    p.Lon,
		Label:  strings.Join(parts, ", "),
		Source: o.Name(),
	}, nil
}

package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/skywatch/internal/geo"
	"github.com/i474232898/skywatch/internal/upstream"
)

const openCageURL = "https://api.opencagedata.com/geocode/v1/json"

// OpenCage reverse-geocodes with the OpenCage Data API.
type OpenCage struct {
	client  *upstream.Client
	apiKey  string
	baseURL string
}

func NewOpenCage(client *upstream.Client, apiKey string) *OpenCage {
	return &OpenCage{client: client, apiKey: apiKey, baseURL: openCageURL}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (o *OpenCage) WithBaseURL(u string) *OpenCage {
	o.baseURL = u
	return o
}

func (o *OpenCage) Name() string { return "OpenCage Data" }

// Component values are usually strings but house numbers and postcodes can
// arrive as JSON numbers.
type openCageComponents map[string]any

func (c openCageComponents) get(keys ...string) string {
	for _, k := range keys {
		switch v := c[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

type openCageResponse struct {
	Results []struct {
		Formatted  string             `json:"formatted"`
		Confidence *float64           `json:"confidence"`
		Components openCageComponents `json:"components"`
	} `json:"results"`
}

func (o *OpenCage) lookup(ctx context.Context, lat, lon float64) (openCageResponse, error) {
	if o.apiKey == "" {
		return openCageResponse{}, fmt.Errorf("opencage: %w", errNoCredential)
	}

	values := url.Values{}
	values.Set("q", formatCoord(lat)+"+"+formatCoord(lon))
	values.Set("key", o.apiKey)
	values.Set("language", "en")
	values.Set("limit", "1")
	values.Set("no_annotations", "1")

	var resp openCageResponse
	err := o.client.GetJSON(ctx, o.baseURL+"?"+values.Encode(), nil, &resp)
	return resp, err
}

// Reverse implements geo.ReverseGeocoder. The provider's own confidence is
// used when present.
func (o *OpenCage) Reverse(ctx context.Context, lat, lon float64) (geo.Candidate, error) {
	resp, err := o.lookup(ctx, lat, lon)
	if err != nil {
		return geo.Candidate{}, err
	}
	if len(resp.Results) == 0 {
		return geo.Candidate{}, fmt.Errorf("opencage: %w", errNoResults)
	}

	r := resp.Results[0]
	comp := r.Components
	if comp == nil {
		return geo.Candidate{}, fmt.Errorf("opencage: missing components: %w", errNoResults)
	}
	confidence := 80.0
	if r.Confidence != nil && *r.Confidence > 0 {
		confidence = *r.Confidence
	}

	return geo.Candidate{
		Lat:          lat,
		Lon:          lon,
		Village:      comp.get("village", "hamlet", "neighbourhood"),
		Hamlet:       comp.get("hamlet"),
		Neighborhood: comp.get("neighbourhood", "suburb"),
		Suburb:       comp.get("suburb"),
		Locality:     comp.get("locality"),
		Street:       comp.get("road", "street"),
		HouseNumber:  comp.get("house_number"),
		Postcode:     comp.get("postcode"),
		City:         comp.get("city", "town", "village"),
		District:     comp.get("county", "state_district"),
		State:        comp.get("state"),
		Country:      comp.get("country"),
		CountryCode:  strings.ToUpper(comp.get("country_code")),
		FullAddress:  r.Formatted,
		Confidence:   confidence,
		Source:       o.Name(),
	}, nil
}

// Postcode implements geo.PostalCoder.
func (o *OpenCage) Postcode(ctx context.Context, lat, lon float64) (string, error) {
	resp, err := o.lookup(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	if len(resp.Results) == 0 || resp.Results[0].Components == nil {
		return "", nil
	}
	return resp.Results[0].Components.get("postcode"), nil
}

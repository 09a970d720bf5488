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

const bigDataCloudURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"

// BigDataCloud is a free client-side reverse geocoder with native confidence
// scores and good postcode coverage.
type BigDataCloud struct {
	client  *upstream.Client
	baseURL string
}

func NewBigDataCloud(client *upstream.Client) *BigDataCloud {
	return &BigDataCloud{client: client, baseURL: bigDataCloudURL}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (b *BigDataCloud) WithBaseURL(u string) *BigDataCloud {
	b.baseURL = u
	return b
}

func (b *BigDataCloud) Name() string { return "BigDataCloud" }

type bigDataCloudResponse struct {
	Locality             string   `json:"locality"`
	City                 string   `json:"city"`
	PrincipalSubdivision string   `json:"principalSubdivision"`
	CountryName          string   `json:"countryName"`
	CountryCode          string   `json:"countryCode"`
	Postcode             string   `json:"postcode"`
	Confidence           *float64 `json:"confidence"`
	LocalityInfo         struct {
		Administrative []struct {
			Name string `json:"name"`
		} `json:"administrative"`
	} `json:"localityInfo"`
}

// admin returns the name of the i-th administrative level, or "".
func (r bigDataCloudResponse) admin(i int) string {
	if i < len(r.LocalityInfo.Administrative) {
		return r.LocalityInfo.Administrative[i].Name
	}
	return ""
}

func (b *BigDataCloud) lookup(ctx context.Context, lat, lon float64) (bigDataCloudResponse, error) {
	values := url.Values{}
	values.Set("latitude", formatCoord(lat))
	values.Set("longitude", formatCoord(lon))
	values.Set("localityLanguage", "en")

	var resp bigDataCloudResponse
	err := b.client.GetJSON(ctx, b.baseURL+"?"+values.Encode(), nil, &resp)
	return resp, err
}

// Reverse implements geo.ReverseGeocoder.
func (b *BigDataCloud) Reverse(ctx context.Context, lat, lon float64) (geo.Candidate, error) {
	r, err := b.lookup(ctx, lat, lon)
	if err != nil {
		return geo.Candidate{}, err
	}
	if r.Locality == "" && r.City == "" && r.PrincipalSubdivision == "" && r.CountryName == "" {
		return geo.Candidate{}, fmt.Errorf("bigdatacloud: %w", errNoResults)
	}

	confidence := 85.0
	if r.Confidence != nil && *r.Confidence > 0 {
		confidence = *r.Confidence
	}

	return geo.Candidate{
		Lat:          lat,
		Lon:          lon,
		Village:      common.FirstNonEmpty(r.Locality, r.admin(4)),
		Neighborhood: common.FirstNonEmpty(r.admin(5), r.admin(6)),
		Street:       r.admin(7),
		Locality:     r.Locality,
		City:         common.FirstNonEmpty(r.City, r.admin(2)),
		District:     r.admin(1),
		State:        r.PrincipalSubdivision,
		Country:      r.CountryName,
		CountryCode:  r.CountryCode,
		Postcode:     r.Postcode,
		FullAddress:  bigDataCloudAddress(r),
		Confidence:   confidence,
		Source:       b.Name(),
	}, nil
}

// Postcode implements geo.PostalCoder.
func (b *BigDataCloud) Postcode(ctx context.Context, lat, lon float64) (string, error) {
	r, err := b.lookup(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	return r.Postcode, nil
}

func bigDataCloudAddress(r bigDataCloudResponse) string {
	var parts []string
	if r.Locality != "" {
		parts = append(parts, r.Locality)
	}
	if r.City != "" && r.City != r.Locality {
		parts = append(parts, r.City)
	}
	for _, p := range []string{r.PrincipalSubdivision, r.CountryName, r.Postcode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

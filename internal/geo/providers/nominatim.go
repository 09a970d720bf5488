package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/skywatch/internal/common"
	"github.com/i474232898/skywatch/internal/geo"
	"github.com/i474232898/skywatch/internal/upstream"
)

const nominatimURL = "https://nominatim.openstreetmap.org"

var errNoResults = errors.New("no results")

// Nominatim's usage policy requires an identifying User-Agent.
var nominatimHeaders = map[string]string{
	"User-Agent":      "SkyWatch-Weather-App/1.0",
	"Accept-Language": "en",
}

// Nominatim serves forward search, reverse lookups and postcodes from
// OpenStreetMap. It needs no credential.
type Nominatim struct {
	client  *upstream.Client
	baseURL string
}

func NewNominatim(client *upstream.Client) *Nominatim {
	return &Nominatim{client: client, baseURL: nominatimURL}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (n *Nominatim) WithBaseURL(u string) *Nominatim {
	n.baseURL = strings.TrimRight(u, "/")
	return n
}

func (n *Nominatim) Name() string { return "Nominatim OpenStreetMap" }

type nominatimAddress struct {
	Village       string `json:"village"`
	Hamlet        string `json:"hamlet"`
	Neighbourhood string `json:"neighbourhood"`
	Suburb        string `json:"suburb"`
	Locality      string `json:"locality"`
	CityDistrict  string `json:"city_district"`
	Road          string `json:"road"`
	Street        string `json:"street"`
	HouseNumber   string `json:"house_number"`
	Postcode      string `json:"postcode"`
	PostalCode    string `json:"postal_code"`
	Zipcode       string `json:"zipcode"`
	ISOLevel6     string `json:"ISO3166-2-lvl6"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Municipality  string `json:"municipality"`
	StateDistrict string `json:"state_district"`
	County        string `json:"county"`
	State         string `json:"state"`
	Country       string `json:"country"`
	CountryCode   string `json:"country_code"`
}

func (a nominatimAddress) postcode() string {
	return common.FirstNonEmpty(a.Postcode, a.PostalCode, a.ISOLevel6, a.Zipcode)
}

type nominatimPlace struct {
	Error       string            `json:"error"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Importance  float64           `json:"importance"`
	Address     *nominatimAddress `json:"address"`
}

// Geocode implements geo.Geocoder using the free-text search endpoint.
func (n *Nominatim) Geocode(ctx context.Context, query string) (geo.GeocodeResult, error) {
	values := url.Values{}
	values.Set("format", "json")
	values.Set("q", query)
	values.Set("limit", "1")

	var places []nominatimPlace
	if err := n.client.GetJSON(ctx, n.baseURL+"/search?"+values.Encode(), nominatimHeaders, &places); err != nil {
		return geo.GeocodeResult{}, err
	}
	if len(places) == 0 {
		return geo.GeocodeResult{}, fmt.Errorf("nominatim search %q: %w", query, errNoResults)
	}

	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if err := errors.Join(errLat, errLon); err != nil {
		return geo.GeocodeResult{}, fmt.Errorf("nominatim coordinates: %w", err)
	}

	label := common.FirstSegment(places[0].DisplayName)
	if label == "" {
		label = query
	}
	return geo.GeocodeResult{Lat: lat, Lon: lon, Label: label, Source: n.Name()}, nil
}

func (n *Nominatim) reverse(ctx context.Context, lat, lon float64, headers map[string]string) (nominatimPlace, error) {
	values := url.Values{}
	values.Set("format", "json")
	values.Set("lat", formatCoord(lat))
	values.Set("lon", formatCoord(lon))
	values.Set("zoom", "18")
	values.Set("addressdetails", "1")

	var place nominatimPlace
	if err := n.client.GetJSON(ctx, n.baseURL+"/reverse?"+values.Encode(), headers, &place); err != nil {
		return nominatimPlace{}, err
	}
	if place.Error != "" {
		return nominatimPlace{}, fmt.Errorf("nominatim reverse: %s: %w", place.Error, errNoResults)
	}
	return place, nil
}

// Reverse implements geo.ReverseGeocoder.
func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (geo.Candidate, error) {
	place, err := n.reverse(ctx, lat, lon, nominatimHeaders)
	if err != nil {
		return geo.Candidate{}, err
	}

	if place.Address == nil {
		return geo.Candidate{}, fmt.Errorf("nominatim reverse: missing address: %w", errNoResults)
	}
	a := *place.Address
	return geo.Candidate{
		Lat:          lat,
		Lon:          lon,
		Village:      common.FirstNonEmpty(a.Village, a.Hamlet, a.Neighbourhood),
		Hamlet:       a.Hamlet,
		Neighborhood: common.FirstNonEmpty(a.Neighbourhood, a.Suburb),
		Suburb:       a.Suburb,
		Locality:     common.FirstNonEmpty(a.Locality, a.CityDistrict),
		Street:       common.FirstNonEmpty(a.Road, a.Street),
		HouseNumber:  a.HouseNumber,
		Postcode:     a.postcode(),
		City:         common.FirstNonEmpty(a.City, a.Town, a.Municipality, a.Village),
		District:     common.FirstNonEmpty(a.StateDistrict, a.County),
		State:        a.State,
		Country:      a.Country,
		CountryCode:  strings.ToUpper(a.CountryCode),
		FullAddress:  place.DisplayName,
		Confidence:   nominatimConfidence(place),
		Source:       n.Name(),
	}, nil
}

// Postcode implements geo.PostalCoder.
func (n *Nominatim) Postcode(ctx context.Context, lat, lon float64) (string, error) {
	place, err := n.reverse(ctx, lat, lon, map[string]string{"User-Agent": nominatimHeaders["User-Agent"]})
	if err != nil {
		return "", err
	}
	if place.Address == nil {
		return "", nil
	}
	return place.Address.postcode(), nil
}

// nominatimConfidence scores a reverse result from the fields it carries,
// starting at 70 and capped at geo.MaxConfidence.
func nominatimConfidence(p nominatimPlace) float64 {
	confidence := 70.0
	if a := p.Address; a != nil {
		if a.Village != "" || a.Hamlet != "" {
			confidence += 15
		}
		if a.Neighbourhood != "" {
			confidence += 10
		}
		if a.Road != "" {
			confidence += 5
		}
		if a.HouseNumber != "" {
			confidence += 10
		}
		if a.Postcode != "" {
			confidence += 5
		}
	}
	if p.Importance > 0.5 {
		confidence += 5
	}
	return math.Min(confidence, geo.MaxConfidence)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

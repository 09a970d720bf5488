package geo

import (
	"context"
	"errors"
)

var (
	// ErrLocationNotFound is returned when every provider for a lookup came back empty or failed.
	ErrLocationNotFound = errors.New("location not found")

	// ErrLocationUnavailable is returned when the position sensor produced no fix.
	ErrLocationUnavailable = errors.New("location unavailable")
)

// Candidate is one provider's reverse-geocoding answer for a coordinate pair.
type Candidate struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Accuracy     float64 `json:"accuracy"`
	Confidence   float64 `json:"confidence"`
	Village      string  `json:"village,omitempty"`
	Hamlet       string  `json:"hamlet,omitempty"`
	Neighborhood string  `json:"neighborhood,omitempty"`
	Suburb       string  `json:"suburb,omitempty"`
	Locality     string  `json:"locality,omitempty"`
	Street       string  `json:"street,omitempty"`
	HouseNumber  string  `json:"houseNumber,omitempty"`
	Postcode     string  `json:"postcode,omitempty"`
	City         string  `json:"city"`
	District     string  `json:"district,omitempty"`
	State        string  `json:"state"`
	Country      string  `json:"country"`
	CountryCode  string  `json:"countryCode"`
	FullAddress  string  `json:"fullAddress"`
	Source       string  `json:"source"`
}

// GeocodeResult is the outcome of a forward (text to coordinates) lookup.
type GeocodeResult struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Label  string  `json:"label"`
	Source string  `json:"source"`
}

// Fix is a single position sample. Accuracy is in meters.
type Fix struct {
	Lat      float64 `json:"lat" validate:"latitude"`
	Lon      float64 `json:"lon" validate:"longitude"`
	Accuracy float64 `json:"accuracy" validate:"gte=0"`
}

// Geocoder resolves free text to coordinates.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, query string) (GeocodeResult, error)
}

// ReverseGeocoder describes a coordinate pair as an address.
type ReverseGeocoder interface {
	Name() string
	Reverse(ctx context.Context, lat, lon float64) (Candidate, error)
}

// PostalCoder looks up only the postal code of a coordinate pair. An empty
// string with a nil error means the provider had none.
type PostalCoder interface {
	Name() string
	Postcode(ctx context.Context, lat, lon float64) (string, error)
}

// Sensor is a source of position samples.
type Sensor interface {
	// Watch streams samples until ctx is done or the sensor runs dry, then
	// closes both channels.
	Watch(ctx context.Context) (<-chan Fix, <-chan error)
	// Current is a single best-effort read.
	Current(ctx context.Context) (Fix, error)
}

package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/skywatch/internal/geo"
	"github.com/i474232898/skywatch/internal/weather"
)

// WeatherSource is the weather pipeline as the dashboard uses it.
type WeatherSource interface {
	Refresh(ctx context.Context, coords weather.Coordinates, units weather.Units) (weather.Update, error)
	History(coords weather.Coordinates, units weather.Units, from, to time.Time) ([]weather.Snapshot, error)
}

// PlaceResolver turns a place name into coordinates.
type PlaceResolver interface {
	Resolve(ctx context.Context, query string) (geo.GeocodeResult, error)
}

// Locator describes coordinates as a street-level address.
type Locator interface {
	ResolvePrecise(ctx context.Context, lat, lon float64) (geo.Candidate, error)
}

// Result is everything a display layer needs for one location.
type Result struct {
	Weather       weather.Snapshot    `json:"weather"`
	PlaceLabel    string              `json:"placeLabel"`
	AccuracyLabel string              `json:"accuracyLabel"`
	SourceLabel   string              `json:"sourceLabel"`
	Location      *geo.Candidate      `json:"location,omitempty"`
	Tips          []string            `json:"tips"`
	Analysis      weather.Analysis    `json:"analysis"`
	Changes       []weather.Change    `json:"changes,omitempty"`
	Coordinates   weather.Coordinates `json:"coordinates"`
}

type Dashboard struct {
	weather  WeatherSource
	places   PlaceResolver
	locator  Locator
	refine   geo.RefineOptions
	logger   *zap.Logger
	sessions *sessionRegistry
}

func New(ws WeatherSource, places PlaceResolver, locator Locator, refine geo.RefineOptions, logger *zap.Logger) *Dashboard {
	return &Dashboard{
		weather:  ws,
		places:   places,
		locator:  locator,
		refine:   refine,
		logger:   logger.Named("dashboard"),
		sessions: newSessionRegistry(),
	}
}

// WeatherByCoordinates loads weather for a point and describes the point.
// The address lookup runs alongside the weather fetch and only improves the
// labels; its failure is not an error.
func (d *Dashboard) WeatherByCoordinates(ctx context.Context, lat, lon float64, units weather.Units) (Result, error) {
	res, place, err := d.load(ctx, lat, lon, units)
	if err != nil {
		return Result{}, err
	}

	if place != nil {
		res.PlaceLabel = geo.FormatDisplayLabel(*place)
		res.AccuracyLabel = geo.AccuracyReport(*place)
	} else {
		res.PlaceLabel = CoordinateLabel(lat, lon)
		res.AccuracyLabel = "Precise location • " + res.SourceLabel
	}
	return res, nil
}

// WeatherByCityName geocodes name and loads weather for it. The geocoder's
// label is replaced by a detailed address when one can be found.
func (d *Dashboard) WeatherByCityName(ctx context.Context, name string, units weather.Units) (Result, error) {
	place, err := d.places.Resolve(ctx, name)
	if err != nil {
		return Result{}, err
	}

	res, detailed, err := d.load(ctx, place.Lat, place.Lon, units)
	if err != nil {
		return Result{}, err
	}

	res.PlaceLabel = place.Label
	if detailed != nil {
		if label := geo.FormatDisplayLabel(*detailed); usefulLabel(label) {
			res.PlaceLabel = label
		}
	}
	res.AccuracyLabel = "City-level precision • " + res.SourceLabel
	return res, nil
}

// PreciseLocation refines a position from sensor and describes it. The
// returned candidate carries the sensor's accuracy.
func (d *Dashboard) PreciseLocation(ctx context.Context, sensor geo.Sensor) (geo.Candidate, error) {
	fix, err := geo.AcquireFix(ctx, sensor, d.refine)
	if err != nil {
		return geo.Candidate{}, err
	}

	c, err := d.locator.ResolvePrecise(ctx, fix.Lat, fix.Lon)
	if err != nil {
		return geo.Candidate{}, err
	}
	c.Accuracy = fix.Accuracy
	return c, nil
}

// WeatherForSensor is the locate-me flow: refine a fix, describe it and load
// its weather.
func (d *Dashboard) WeatherForSensor(ctx context.Context, sensor geo.Sensor, units weather.Units) (Result, error) {
	fix, err := geo.AcquireFix(ctx, sensor, d.refine)
	if err != nil {
		return Result{}, err
	}

	res, place, err := d.load(ctx, fix.Lat, fix.Lon, units)
	if err != nil {
		return Result{}, err
	}

	if place == nil {
		res.PlaceLabel = CoordinateLabel(fix.Lat, fix.Lon)
		res.AccuracyLabel = "Precise location • " + res.SourceLabel
		return res, nil
	}
	place.Accuracy = fix.Accuracy
	res.PlaceLabel = geo.FormatDisplayLabel(*place)
	res.AccuracyLabel = geo.AccuracyReport(*place)
	return res, nil
}

// RefreshCity re-fetches a watched city and reports changes since the last
// refresh.
func (d *Dashboard) RefreshCity(ctx context.Context, name string, units weather.Units) (weather.Update, error) {
	place, err := d.places.Resolve(ctx, name)
	if err != nil {
		return weather.Update{}, err
	}
	return d.weather.Refresh(ctx, weather.Coordinates{Lat: place.Lat, Lon: place.Lon}, units)
}

func (d *Dashboard) History(lat, lon float64, units weather.Units, from, to time.Time) ([]weather.Snapshot, error) {
	return d.weather.History(weather.Coordinates{Lat: lat, Lon: lon}, units, from, to)
}

// load runs the weather pipeline and the address lookup concurrently.
func (d *Dashboard) load(ctx context.Context, lat, lon float64, units weather.Units) (Result, *geo.Candidate, error) {
	coords := weather.Coordinates{Lat: lat, Lon: lon}

	var (
		wg       sync.WaitGroup
		place    *geo.Candidate
		update   weather.Update
		fetchErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		update, fetchErr = d.weather.Refresh(ctx, coords, units)
	}()
	go func() {
		defer wg.Done()
		if d.locator == nil {
			return
		}
		c, err := d.locator.ResolvePrecise(ctx, lat, lon)
		if err != nil {
			d.logger.Info("precise location lookup failed",
				zap.String("coords", coords.Key()),
				zap.Error(err))
			return
		}
		place = &c
	}()
	wg.Wait()

	if fetchErr != nil {
		return Result{}, nil, fetchErr
	}

	return Result{
		Weather:     update.Current,
		SourceLabel: update.Source,
		Location:    place,
		Tips:        weather.Tips(update.Current),
		Analysis:    weather.Analyze(update.Current),
		Changes:     update.Changes,
		Coordinates: coords,
	}, place, nil
}

// CoordinateLabel is the place label used when no address is known.
func CoordinateLabel(lat, lon float64) string {
	return fmt.Sprintf("%.6f°N, %.6f°E", lat, lon)
}

func usefulLabel(label string) bool {
	return len(label) > 5 && !strings.Contains(label, "Unknown") && label != geo.LocationDetected
}

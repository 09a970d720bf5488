package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/skywatch/internal/upstream"
	"github.com/i474232898/skywatch/internal/weather"
)

const openMeteoURL = "https://api.open-meteo.com/v1/forecast"

var errNoCurrentWeather = errors.New("no current weather data available")

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// It needs no credential and is always configured.
type OpenMeteoProvider struct {
	client  *upstream.Client
	baseURL string
	now     func() time.Time
}

func NewOpenMeteoProvider(client *upstream.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		client:  client,
		baseURL: openMeteoURL,
		now:     time.Now,
	}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (p *OpenMeteoProvider) WithBaseURL(u string) *OpenMeteoProvider {
	p.baseURL = u
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return "Open-Meteo (Live)"
}

type openMeteoResponse struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	CurrentWeather   *struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
		Time        int64   `json:"time"`
	} `json:"current_weather"`
	Hourly struct {
		Time                     []int64    `json:"time"`
		Temperature              []float64  `json:"temperature_2m"`
		RelativeHumidity         []*float64 `json:"relative_humidity_2m"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		WeatherCode              []int      `json:"weather_code"`
	} `json:"hourly"`
	Daily struct {
		Time           []int64   `json:"time"`
		WeatherCode    []int     `json:"weather_code"`
		TemperatureMax []float64 `json:"temperature_2m_max"`
		TemperatureMin []float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, coords weather.Coordinates, units weather.Units) (weather.Snapshot, error) {
	tempUnit, windUnit := "celsius", "kmh"
	if units == weather.UnitsImperial {
		tempUnit, windUnit = "fahrenheit", "mph"
	}

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	values.Set("current_weather", "true")
	values.Set("hourly", "temperature_2m,relative_humidity_2m,precipitation_probability,weather_code,wind_speed_10m")
	values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max")
	values.Set("temperature_unit", tempUnit)
	values.Set("wind_speed_unit", windUnit)
	values.Set("timezone", "auto")
	values.Set("timeformat", "unixtime")

	var payload openMeteoResponse
	if err := p.client.GetJSON(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil, &payload); err != nil {
		return weather.Snapshot{}, err
	}
	if payload.CurrentWeather == nil {
		return weather.Snapshot{}, fmt.Errorf("%w: %s: %w", weather.ErrSourceUnavailable, p.client.Name(), errNoCurrentWeather)
	}

	return p.toSnapshot(payload, units), nil
}

func (p *OpenMeteoProvider) toSnapshot(payload openMeteoResponse, units weather.Units) weather.Snapshot {
	now := p.now().UTC()
	cw := payload.CurrentWeather
	h := payload.Hourly
	d := payload.Daily

	humidity := float64(weather.DefaultHumidity)
	if len(h.RelativeHumidity) > 0 && h.RelativeHumidity[0] != nil && *h.RelativeHumidity[0] > 0 {
		humidity = *h.RelativeHumidity[0]
	}

	snap := weather.Snapshot{
		Units: units,
		Current: weather.Current{
			Timestamp:   now.Truncate(time.Second),
			Temperature: math.Round(cw.Temperature),
			Humidity:    humidity,
			Pressure:    weather.DefaultPressureHpa,
			WindSpeed:   cw.WindSpeed,
			UVIndex:     weather.DefaultUVIndex,
			Conditions:  weather.CodeToCondition(cw.WeatherCode),
		},
		TimezoneOffsetSeconds: payload.UTCOffsetSeconds,
	}

	// The provider returns whole days of hours, including those already past.
	for i, ts := range h.Time {
		if len(snap.Hourly) == weather.MaxHourly {
			break
		}
		at := time.Unix(ts, 0).UTC()
		if at.Before(now) {
			continue
		}
		snap.Hourly = append(snap.Hourly, weather.HourlyEntry{
			Timestamp:                at,
			Temperature:              floatAt(h.Temperature, i),
			Conditions:               weather.CodeToCondition(intAt(h.WeatherCode, i)),
			PrecipitationProbability: weather.ClampProbability(optionalAt(h.PrecipitationProbability, i) / 100),
		})
	}

	for i, ts := range d.Time {
		if i == weather.MaxDaily {
			break
		}
		snap.Daily = append(snap.Daily, weather.DailyEntry{
			Timestamp:  weather.DayStamp(ts, payload.UTCOffsetSeconds),
			TempMax:    floatAt(d.TemperatureMax, i),
			TempMin:    floatAt(d.TemperatureMin, i),
			Conditions: weather.CodeToCondition(intAt(d.WeatherCode, i)),
		})
	}

	return snap
}

func floatAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

func optionalAt(values []*float64, i int) float64 {
	if i < len(values) && values[i] != nil {
		return *values[i]
	}
	return 0
}

func intAt(values []int, i int) int {
	if i < len(values) {
		return values[i]
	}
	return -1
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/skywatch/internal/upstream"
	"github.com/i474232898/skywatch/internal/weather"
)

const openWeatherOneCallURL = "https://api.openweathermap.org/data/2.5/onecall"

var errMissingAPIKey = errors.New("api key is not configured")

// OpenWeatherProvider implements the weather.Provider interface for the
// OpenWeatherMap One Call API.
type OpenWeatherProvider struct {
	client  *upstream.Client
	apiKey  string
	baseURL string
	now     func() time.Time
}

func NewOpenWeatherProvider(client *upstream.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		client:  client,
		apiKey:  apiKey,
		baseURL: openWeatherOneCallURL,
		now:     time.Now,
	}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (p *OpenWeatherProvider) WithBaseURL(u string) *OpenWeatherProvider {
	p.baseURL = u
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return "OpenWeatherMap (Live)"
}

type owmCondition struct {
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

type oneCallResponse struct {
	TimezoneOffset *int `json:"timezone_offset"`
	Current        *struct {
		Dt        *int64         `json:"dt"`
		Temp      *float64       `json:"temp"`
		Humidity  *float64       `json:"humidity"`
		Pressure  *float64       `json:"pressure"`
		WindSpeed *float64       `json:"wind_speed"`
		UVI       *float64       `json:"uvi"`
		Weather   []owmCondition `json:"weather"`
	} `json:"current"`
	Hourly []struct {
		Dt      int64          `json:"dt"`
		Temp    *float64       `json:"temp"`
		Pop     *float64       `json:"pop"`
		Weather []owmCondition `json:"weather"`
	} `json:"hourly"`
	Daily []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Min *float64 `json:"min"`
			Max *float64 `json:"max"`
		} `json:"temp"`
		Weather []owmCondition `json:"weather"`
	} `json:"daily"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, coords weather.Coordinates, units weather.Units) (weather.Snapshot, error) {
	if p.apiKey == "" {
		return weather.Snapshot{}, fmt.Errorf("%w: %s: %w", weather.ErrSourceUnavailable, p.client.Name(), errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	values.Set("units", string(units))
	values.Set("exclude", "minutely,alerts")
	values.Set("appid", p.apiKey)

	var payload oneCallResponse
	if err := p.client.GetJSON(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil, &payload); err != nil {
		return weather.Snapshot{}, err
	}

	return p.toSnapshot(payload, units), nil
}

func (p *OpenWeatherProvider) toSnapshot(payload oneCallResponse, units weather.Units) weather.Snapshot {
	// One Call reports metric wind in m/s; canonical metric is km/h.
	windFrom := weather.MetersPerSecond
	if units == weather.UnitsImperial {
		windFrom = weather.MilesPerHour
	}
	windTo := weather.SpeedUnitFor(units)

	offset := 0
	if payload.TimezoneOffset != nil {
		offset = *payload.TimezoneOffset
	}

	snap := weather.Snapshot{
		Units:                 units,
		TimezoneOffsetSeconds: offset,
		Current: weather.Current{
			Timestamp:  p.now().UTC().Truncate(time.Second),
			Pressure:   weather.DefaultPressureHpa,
			UVIndex:    weather.DefaultUVIndex,
			Humidity:   weather.DefaultHumidity,
			Conditions: weather.DefaultConditions,
		},
	}

	if c := payload.Current; c != nil {
		if c.Dt != nil {
			snap.Current.Timestamp = time.Unix(*c.Dt, 0).UTC()
		}
		snap.Current.Temperature = valueOr(c.Temp, 0)
		snap.Current.Humidity = valueOr(c.Humidity, weather.DefaultHumidity)
		snap.Current.Pressure = valueOr(c.Pressure, weather.DefaultPressureHpa)
		snap.Current.WindSpeed = weather.ConvertWindSpeed(valueOr(c.WindSpeed, 0), windFrom, windTo)
		snap.Current.UVIndex = valueOr(c.UVI, weather.DefaultUVIndex)
		snap.Current.Conditions = owmConditions(c.Weather)
	}

	for i, h := range payload.Hourly {
		if i == weather.MaxHourly {
			break
		}
		snap.Hourly = append(snap.Hourly, weather.HourlyEntry{
			Timestamp:                time.Unix(h.Dt, 0).UTC(),
			Temperature:              valueOr(h.Temp, 0),
			Conditions:               owmConditions(h.Weather),
			PrecipitationProbability: weather.ClampProbability(valueOr(h.Pop, 0)),
		})
	}

	for i, d := range payload.Daily {
		if i == weather.MaxDaily {
			break
		}
		snap.Daily = append(snap.Daily, weather.DailyEntry{
			Timestamp:  weather.DayStamp(d.Dt, offset),
			TempMax:    valueOr(d.Temp.Max, 0),
			TempMin:    valueOr(d.Temp.Min, 0),
			Conditions: owmConditions(d.Weather),
		})
	}

	return snap
}

func owmConditions(items []owmCondition) weather.Conditions {
	if len(items) == 0 || items[0].Description == "" {
		return weather.DefaultConditions
	}
	c := weather.Conditions{Icon: items[0].Icon, Description: items[0].Description}
	if c.Icon == "" {
		c.Icon = weather.DefaultConditions.Icon
	}
	return c
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

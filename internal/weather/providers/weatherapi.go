package providers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/i474232898/skywatch/internal/common"
	"github.com/i474232898/skywatch/internal/upstream"
	"github.com/i474232898/skywatch/internal/weather"
)

const weatherAPIForecastURL = "https://api.weatherapi.com/v1/forecast.json"

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	client  *upstream.Client
	apiKey  string
	baseURL string
	now     func() time.Time
}

func NewWeatherAPIProvider(client *upstream.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		client:  client,
		apiKey:  apiKey,
		baseURL: weatherAPIForecastURL,
		now:     time.Now,
	}
}

// WithBaseURL points the provider at another endpoint, e.g. a test server.
func (p *WeatherAPIProvider) WithBaseURL(u string) *WeatherAPIProvider {
	p.baseURL = u
	return p
}

func (p *WeatherAPIProvider) Name() string {
	return "WeatherAPI (Live)"
}

type weatherAPICondition struct {
	Text string `json:"text"`
}

type weatherAPIResponse struct {
	Location struct {
		TzID string `json:"tz_id"`
	} `json:"location"`
	Current struct {
		LastUpdatedEpoch int64               `json:"last_updated_epoch"`
		TempC            *float64            `json:"temp_c"`
		TempF            *float64            `json:"temp_f"`
		Humidity         *float64            `json:"humidity"`
		PressureMb       *float64            `json:"pressure_mb"`
		WindKph          *float64            `json:"wind_kph"`
		WindMph          *float64            `json:"wind_mph"`
		UV               *float64            `json:"uv"`
		IsDay            int                 `json:"is_day"`
		Condition        weatherAPICondition `json:"condition"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC  *float64            `json:"maxtemp_c"`
				MaxTempF  *float64            `json:"maxtemp_f"`
				MinTempC  *float64            `json:"mintemp_c"`
				MinTempF  *float64            `json:"mintemp_f"`
				Condition weatherAPICondition `json:"condition"`
			} `json:"day"`
			Hour []struct {
				TimeEpoch    int64               `json:"time_epoch"`
				TempC        *float64            `json:"temp_c"`
				TempF        *float64            `json:"temp_f"`
				ChanceOfRain *float64            `json:"chance_of_rain"`
				IsDay        int                 `json:"is_day"`
				Condition    weatherAPICondition `json:"condition"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, coords weather.Coordinates, units weather.Units) (weather.Snapshot, error) {
	if p.apiKey == "" {
		return weather.Snapshot{}, fmt.Errorf("%w: %s: %w", weather.ErrSourceUnavailable, p.client.Name(), errMissingAPIKey)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI uses "q" for location; it accepts "lat,lon".
	values.Set("q", fmt.Sprintf("%f,%f", coords.Lat, coords.Lon))
	values.Set("days", "7")
	values.Set("aqi", "no")
	values.Set("alerts", "no")

	var payload weatherAPIResponse
	if err := p.client.GetJSON(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil, &payload); err != nil {
		return weather.Snapshot{}, err
	}

	return p.toSnapshot(payload, units), nil
}

func (p *WeatherAPIProvider) toSnapshot(payload weatherAPIResponse, units weather.Units) weather.Snapshot {
	now := p.now().UTC()
	imperial := units == weather.UnitsImperial
	pick := func(c, f *float64, fallback float64) float64 {
		if imperial {
			return valueOr(f, fallback)
		}
		return valueOr(c, fallback)
	}

	offset := 0
	if loc, err := time.LoadLocation(payload.Location.TzID); err == nil && payload.Location.TzID != "" {
		_, offset = now.In(loc).Zone()
	}

	cur := payload.Current
	ts := now.Truncate(time.Second)
	if cur.LastUpdatedEpoch > 0 {
		ts = time.Unix(cur.LastUpdatedEpoch, 0).UTC()
	}

	snap := weather.Snapshot{
		Units:                 units,
		TimezoneOffsetSeconds: offset,
		Current: weather.Current{
			Timestamp:   ts,
			Temperature: pick(cur.TempC, cur.TempF, 0),
			Humidity:    valueOr(cur.Humidity, weather.DefaultHumidity),
			Pressure:    valueOr(cur.PressureMb, weather.DefaultPressureHpa),
			WindSpeed:   pick(cur.WindKph, cur.WindMph, 0),
			UVIndex:     valueOr(cur.UV, weather.DefaultUVIndex),
			Conditions:  mapWeatherAPICondition(cur.Condition.Text, cur.IsDay == 1),
		},
	}

	for _, fd := range payload.Forecast.ForecastDay {
		for _, h := range fd.Hour {
			if len(snap.Hourly) == weather.MaxHourly {
				break
			}
			at := time.Unix(h.TimeEpoch, 0).UTC()
			if at.Before(now) {
				continue
			}
			snap.Hourly = append(snap.Hourly, weather.HourlyEntry{
				Timestamp:                at,
				Temperature:              pick(h.TempC, h.TempF, 0),
				Conditions:               mapWeatherAPICondition(h.Condition.Text, h.IsDay == 1),
				PrecipitationProbability: weather.ClampProbability(valueOr(h.ChanceOfRain, 0) / 100),
			})
		}

		if len(snap.Daily) == weather.MaxDaily {
			continue
		}
		date, err := time.Parse("2006-01-02", fd.Date)
		if err != nil {
			continue
		}
		snap.Daily = append(snap.Daily, weather.DailyEntry{
			Timestamp:  date.UTC(),
			TempMax:    pick(fd.Day.MaxTempC, fd.Day.MaxTempF, 0),
			TempMin:    pick(fd.Day.MinTempC, fd.Day.MinTempF, 0),
			Conditions: mapWeatherAPICondition(fd.Day.Condition.Text, true),
		})
	}

	return snap
}

// mapWeatherAPICondition maps WeatherAPI's free-text condition to the icon set
// shared by every provider. The description is kept as reported.
func mapWeatherAPICondition(text string, day bool) weather.Conditions {
	if text == "" {
		return weather.DefaultConditions
	}

	var icon string
	switch {
	case common.HasAny(text, "thunder", "storm"):
		icon = "11"
	case common.HasAny(text, "snow", "sleet", "blizzard", "ice pellets"):
		icon = "13"
	case common.HasAny(text, "shower", "drizzle"):
		icon = "09"
	case common.HasAny(text, "rain"):
		icon = "10"
	case common.HasAny(text, "fog", "mist", "haze"):
		icon = "50"
	case common.HasAny(text, "overcast"):
		icon = "04"
	case common.HasAny(text, "cloud"):
		icon = "03"
	case common.HasAny(text, "sunny", "clear"):
		icon = "01"
	default:
		return weather.Conditions{Icon: weather.DefaultConditions.Icon, Description: text}
	}

	suffix := "n"
	if day {
		suffix = "d"
	}
	return weather.Conditions{Icon: icon + suffix, Description: text}
}

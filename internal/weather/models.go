package weather

import (
	"fmt"
	"time"
)

// Units is the unit system a snapshot is expressed in. Metric snapshots carry
// °C and km/h, imperial ones °F and mph.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// ParseUnits validates a unit system name. An empty string means metric.
func ParseUnits(s string) (Units, error) {
	switch Units(s) {
	case "", UnitsMetric:
		return UnitsMetric, nil
	case UnitsImperial:
		return UnitsImperial, nil
	default:
		return "", fmt.Errorf("unknown unit system %q", s)
	}
}

const (
	MaxHourly = 24
	MaxDaily  = 7

	// Placeholders used when a provider cannot supply the field.
	DefaultPressureHpa = 1013
	DefaultUVIndex     = 5
	DefaultHumidity    = 65
)

// Coordinates identify the point a snapshot was fetched for.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key returns a canonical string key for indexing these coordinates in stores.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Conditions is the icon/description pair shown for a reading.
type Conditions struct {
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

type Current struct {
	Timestamp   time.Time  `json:"timestamp"`
	Temperature float64    `json:"temperature"`
	Humidity    float64    `json:"humidity"`
	Pressure    float64    `json:"pressure"`
	WindSpeed   float64    `json:"windSpeed"`
	UVIndex     float64    `json:"uvIndex"`
	Conditions  Conditions `json:"conditions"`
}

type HourlyEntry struct {
	Timestamp   time.Time  `json:"timestamp"`
	Temperature float64    `json:"temperature"`
	Conditions  Conditions `json:"conditions"`
	// PrecipitationProbability is a fraction in [0,1].
	PrecipitationProbability float64 `json:"precipitationProbability"`
}

// DailyEntry timestamps denote the local calendar day, expressed as 00:00 UTC
// of that date, so entries from different providers line up.
type DailyEntry struct {
	Timestamp  time.Time  `json:"timestamp"`
	TempMax    float64    `json:"tempMax"`
	TempMin    float64    `json:"tempMin"`
	Conditions Conditions `json:"conditions"`
}

// Snapshot is the canonical weather shape every provider adapter produces.
// Hourly and Daily are ascending by Timestamp and capped at MaxHourly and
// MaxDaily entries.
type Snapshot struct {
	Units                 Units         `json:"units"`
	Current               Current       `json:"current"`
	Hourly                []HourlyEntry `json:"hourly"`
	Daily                 []DailyEntry  `json:"daily"`
	TimezoneOffsetSeconds int           `json:"timezoneOffsetSeconds"`
}

// DayStamp maps a provider timestamp to the calendar day it falls on at the
// given UTC offset.
func DayStamp(unix int64, offsetSeconds int) time.Time {
	local := time.Unix(unix+int64(offsetSeconds), 0).UTC()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// ClampProbability bounds p to [0,1].
func ClampProbability(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

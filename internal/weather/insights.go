package weather

import (
	"math"
	"regexp"
	"strings"
)

var (
	wetPattern    = regexp.MustCompile(`rain|drizzle|thunder`)
	cloudyPattern = regexp.MustCompile(`cloud`)
)

// Tips returns short advice for the current conditions of s.
func Tips(s Snapshot) []string {
	var tips []string

	celsius := ConvertTemperature(s.Current.Temperature, s.Units, UnitsMetric)
	windKmh := ConvertWindSpeed(s.Current.WindSpeed, SpeedUnitFor(s.Units), KilometersPerHour)
	desc := strings.ToLower(s.Current.Conditions.Description)

	switch {
	case celsius >= 35:
		tips = append(tips, "Very hot today. Stay hydrated and avoid peak sun.")
	case celsius >= 30:
		tips = append(tips, "Warm day. Carry water and wear light clothing.")
	case celsius <= 10:
		tips = append(tips, "Chilly conditions. Wear layers to stay warm.")
	}

	switch {
	case s.Current.UVIndex >= 7:
		tips = append(tips, "High UV. Use sunscreen and a cap outdoors.")
	case s.Current.UVIndex >= 3:
		tips = append(tips, "Moderate UV. Sunscreen recommended.")
	}

	switch {
	case wetPattern.MatchString(desc):
		tips = append(tips, "Chance of rain. Carry an umbrella or raincoat.")
	case cloudyPattern.MatchString(desc):
		tips = append(tips, "Cloudy skies. Pleasant for outdoor walks.")
	}

	if windKmh >= 30 {
		tips = append(tips, "Windy conditions. Secure loose items and drive carefully.")
	}
	if s.Current.Humidity >= 85 {
		tips = append(tips, "High humidity. Expect a muggy feel and ventilate indoor spaces.")
	}

	if len(tips) == 0 {
		tips = append(tips, "Weather looks fine. Enjoy your day and stay prepared.")
	}
	return tips
}

// HeavyRainThreshold is the precipitation probability flagged as heavy rain.
const HeavyRainThreshold = 0.5

// Analysis summarises the next 24 hourly entries of a snapshot.
type Analysis struct {
	Current   float64  `json:"current"`
	High      *float64 `json:"high,omitempty"`
	Low       *float64 `json:"low,omitempty"`
	Average   *float64 `json:"average,omitempty"`
	MaxPop    float64  `json:"maxPop"`
	HeavyRain bool     `json:"heavyRain"`
}

// Analyze computes the 24h high, low, rounded average and peak precipitation chance.
func Analyze(s Snapshot) Analysis {
	a := Analysis{Current: s.Current.Temperature}

	hourly := s.Hourly
	if len(hourly) > MaxHourly {
		hourly = hourly[:MaxHourly]
	}
	if len(hourly) == 0 {
		return a
	}

	high, low, sum := math.Inf(-1), math.Inf(1), 0.0
	for _, h := range hourly {
		high = math.Max(high, h.Temperature)
		low = math.Min(low, h.Temperature)
		sum += h.Temperature
		a.MaxPop = math.Max(a.MaxPop, h.PrecipitationProbability)
	}
	avg := math.Round(sum / float64(len(hourly)))
	a.High, a.Low, a.Average = &high, &low, &avg
	a.HeavyRain = a.MaxPop >= HeavyRainThreshold
	return a
}

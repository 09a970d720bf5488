package weather

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTips(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want []string
	}{
		{
			name: "fallback",
			snap: Snapshot{Units: UnitsMetric, Current: Current{Temperature: 22, Humidity: 50, Conditions: Conditions{Description: "Clear sky"}}},
			want: []string{"Weather looks fine. Enjoy your day and stay prepared."},
		},
		{
			name: "hot rainy humid",
			snap: Snapshot{Units: UnitsMetric, Current: Current{Temperature: 36, UVIndex: 8, Humidity: 90, WindSpeed: 35, Conditions: Conditions{Description: "Thunderstorm"}}},
			want: []string{
				"Very hot today. Stay hydrated and avoid peak sun.",
				"High UV. Use sunscreen and a cap outdoors.",
				"Chance of rain. Carry an umbrella or raincoat.",
				"Windy conditions. Secure loose items and drive carefully.",
				"High humidity. Expect a muggy feel and ventilate indoor spaces.",
			},
		},
		{
			name: "imperial is converted",
			snap: Snapshot{Units: UnitsImperial, Current: Current{Temperature: 50, UVIndex: 3, WindSpeed: 15, Conditions: Conditions{Description: "Partly cloudy"}}},
			want: []string{
				"Chilly conditions. Wear layers to stay warm.",
				"Moderate UV. Sunscreen recommended.",
				"Cloudy skies. Pleasant for outdoor walks.",
			},
		},
		{
			name: "warm",
			snap: Snapshot{Units: UnitsMetric, Current: Current{Temperature: 31, Conditions: Conditions{Description: "Clear sky"}}},
			want: []string{"Warm day. Carry water and wear light clothing."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tips(tt.snap))
		})
	}
}

func TestAnalyze(t *testing.T) {
	s := Snapshot{
		Current: Current{Temperature: 25},
		Hourly:  []HourlyEntry{hour(0, 24, 0.1, ""), hour(1, 29, 0.6, ""), hour(2, 20, 0.3, "")},
	}
	a := Analyze(s)
	require.NotNil(t, a.High)
	assert.Equal(t, 25.0, a.Current)
	assert.Equal(t, 29.0, *a.High)
	assert.Equal(t, 20.0, *a.Low)
	assert.Equal(t, 24.0, *a.Average)
	assert.Equal(t, 0.6, a.MaxPop)
	assert.True(t, a.HeavyRain)

	empty := Analyze(Snapshot{Current: Current{Temperature: 3}})
	assert.Nil(t, empty.High)
	assert.Nil(t, empty.Average)
	assert.False(t, empty.HeavyRain)
}

func TestWriteCSV(t *testing.T) {
	s := sampleSnapshot()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, s))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1+1+len(s.Hourly)+len(s.Daily))
	assert.Equal(t, "section,dt,temp,humidity,pressure,wind_speed,uvi,description", lines[0])
	assert.Equal(t, "current,1717200000,30,60,1008,12,6,Clear sky", lines[1])
	assert.Equal(t, "hourly,1717200000,30,,,,,Clear sky", lines[2])
	assert.Equal(t, "daily,1717200000,24-33,,,,,Mainly clear", lines[4])
}

func TestDetectChanges(t *testing.T) {
	prev := sampleSnapshot()
	assert.Empty(t, DetectChanges(&prev, prev))

	curr := sampleSnapshot()
	curr.Current.Temperature = 24
	curr.Current.Conditions = Conditions{Icon: "10d", Description: "Slight rain"}
	curr.Hourly = []HourlyEntry{hour(0, 24, 0.8, "Slight rain")}

	changes := DetectChanges(&prev, curr)
	require.Len(t, changes, 3)
	assert.Equal(t, ChangeConditions, changes[0].Kind)
	assert.Equal(t, "Conditions changed from Clear sky to Slight rain", changes[0].Message)
	assert.Equal(t, ChangeTemperature, changes[1].Kind)
	assert.Equal(t, "Temperature dropped by 6°", changes[1].Message)
	assert.Equal(t, ChangeRain, changes[2].Kind)

	first := DetectChanges(nil, curr)
	require.Len(t, first, 1)
	assert.Equal(t, ChangeRain, first[0].Kind)
}

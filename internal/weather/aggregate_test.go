package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mergeBase = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func hour(i int, temp, pop float64, desc string) HourlyEntry {
	return HourlyEntry{
		Timestamp:                mergeBase.Add(time.Duration(i) * time.Hour),
		Temperature:              temp,
		PrecipitationProbability: pop,
		Conditions:               Conditions{Icon: "01d", Description: desc},
	}
}

func day(i int, max, min float64) DailyEntry {
	return DailyEntry{
		Timestamp:  mergeBase.AddDate(0, 0, i),
		TempMax:    max,
		TempMin:    min,
		Conditions: Conditions{Icon: "02d", Description: "Mainly clear"},
	}
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		Units: UnitsMetric,
		Current: Current{
			Timestamp:   mergeBase,
			Temperature: 30,
			Humidity:    60,
			Pressure:    1008,
			WindSpeed:   12,
			UVIndex:     6,
			Conditions:  Conditions{Icon: "01d", Description: "Clear sky"},
		},
		Hourly:                []HourlyEntry{hour(0, 30, 0.1, "Clear sky"), hour(2, 28, 0.2, "Clear sky")},
		Daily:                 []DailyEntry{day(0, 33, 24), day(2, 34, 25)},
		TimezoneOffsetSeconds: 19800,
	}
}

func TestMergeIdentity(t *testing.T) {
	a := sampleSnapshot()
	assert.Equal(t, a, Merge(a, nil))
}

func TestMergeDisjointKeepsEveryEntry(t *testing.T) {
	a := sampleSnapshot()
	b := Snapshot{
		Units:  UnitsMetric,
		Hourly: []HourlyEntry{hour(1, 29, 0.3, "Partly cloudy"), hour(3, 27, 0.4, "Overcast")},
		Daily:  []DailyEntry{day(1, 32, 23)},
	}

	got := Merge(a, &b)
	require.Len(t, got.Hourly, 4)
	assert.Equal(t, a.Hourly[0], got.Hourly[0])
	assert.Equal(t, b.Hourly[0], got.Hourly[1])
	assert.Equal(t, a.Hourly[1], got.Hourly[2])
	assert.Equal(t, b.Hourly[1], got.Hourly[3])

	require.Len(t, got.Daily, 3)
	assert.Equal(t, a.Daily[0], got.Daily[0])
	assert.Equal(t, b.Daily[0], got.Daily[1])
	assert.Equal(t, a.Daily[1], got.Daily[2])
}

func TestMergeMatchedHourly(t *testing.T) {
	a := Snapshot{Units: UnitsMetric, Hourly: []HourlyEntry{hour(0, 20, 0.2, "Clear sky")}}
	b := Snapshot{Units: UnitsMetric, Hourly: []HourlyEntry{hour(0, 24, 0.7, "Heavy rain")}}

	got := Merge(a, &b)
	require.Len(t, got.Hourly, 1)
	assert.Equal(t, 22.0, got.Hourly[0].Temperature)
	assert.Equal(t, 0.7, got.Hourly[0].PrecipitationProbability)
	assert.Equal(t, "Clear sky", got.Hourly[0].Conditions.Description)

	// Primary wins condition ties, so the order matters.
	flipped := Merge(b, &a)
	assert.Equal(t, "Heavy rain", flipped.Hourly[0].Conditions.Description)
	assert.Equal(t, 22.0, flipped.Hourly[0].Temperature)
}

func TestMergeMatchedDailyRoundsMean(t *testing.T) {
	a := Snapshot{Daily: []DailyEntry{day(0, 33, 24)}}
	b := Snapshot{Daily: []DailyEntry{day(0, 36, 21)}}

	got := Merge(a, &b)
	require.Len(t, got.Daily, 1)
	assert.Equal(t, 35.0, got.Daily[0].TempMax)
	assert.Equal(t, 23.0, got.Daily[0].TempMin)
}

func TestMergeCurrentFields(t *testing.T) {
	a := sampleSnapshot()
	b := Snapshot{
		Units: UnitsMetric,
		Current: Current{
			Temperature: 26,
			Humidity:    75,
			Pressure:    1011,
			WindSpeed:   20,
			UVIndex:     8,
			Conditions:  Conditions{Icon: "10d", Description: "Slight rain"},
		},
	}

	got := Merge(a, &b)
	assert.Equal(t, 28.0, got.Current.Temperature)
	assert.Equal(t, 20.0, got.Current.WindSpeed)
	assert.Equal(t, 68.0, got.Current.Humidity)
	assert.Equal(t, 1008.0, got.Current.Pressure)
	assert.Equal(t, 6.0, got.Current.UVIndex)
	assert.Equal(t, "Clear sky", got.Current.Conditions.Description)
}

func TestMergeCurrentFallbacks(t *testing.T) {
	a := Snapshot{Current: Current{Temperature: 10}}
	b := Snapshot{Current: Current{Temperature: 12, Pressure: 1020, UVIndex: 2, Conditions: Conditions{Icon: "04d", Description: "Overcast"}}}

	got := Merge(a, &b)
	assert.Equal(t, 1020.0, got.Current.Pressure)
	assert.Equal(t, 2.0, got.Current.UVIndex)
	assert.Equal(t, "Overcast", got.Current.Conditions.Description)

	none := Merge(Snapshot{}, &Snapshot{})
	assert.Equal(t, float64(DefaultPressureHpa), none.Current.Pressure)
}

func TestMergeCapsLists(t *testing.T) {
	var a, b Snapshot
	for i := 0; i < 20; i++ {
		a.Hourly = append(a.Hourly, hour(2*i, 20, 0, "Clear sky"))
		b.Hourly = append(b.Hourly, hour(2*i+1, 21, 0, "Clear sky"))
	}
	for i := 0; i < 5; i++ {
		a.Daily = append(a.Daily, day(2*i, 30, 20))
		b.Daily = append(b.Daily, day(2*i+1, 31, 21))
	}

	got := Merge(a, &b)
	require.Len(t, got.Hourly, MaxHourly)
	require.Len(t, got.Daily, MaxDaily)
	for i := 1; i < len(got.Hourly); i++ {
		assert.True(t, got.Hourly[i-1].Timestamp.Before(got.Hourly[i].Timestamp))
	}
	assert.Equal(t, mergeBase.Add(23*time.Hour), got.Hourly[MaxHourly-1].Timestamp)
}

package weather_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/skywatch/internal/store"
	"github.com/i474232898/skywatch/internal/weather"
)

type fakeProvider struct {
	name string
	snap weather.Snapshot
	err  error
	wait time.Duration
}

func (f fakeProvider) Name() string { return f.name }

func (f fakeProvider) Fetch(ctx context.Context, _ weather.Coordinates, units weather.Units) (weather.Snapshot, error) {
	if f.wait > 0 {
		time.Sleep(f.wait)
	}
	if f.err != nil {
		return weather.Snapshot{}, f.err
	}
	s := f.snap
	s.Units = units
	return s, nil
}

var hyderabad = weather.Coordinates{Lat: 17.385, Lon: 78.4867}

func snapshotWithTemp(temp float64, desc string) weather.Snapshot {
	return weather.Snapshot{
		Current: weather.Current{
			Timestamp:   time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC),
			Temperature: temp,
			Humidity:    60,
			Conditions:  weather.Conditions{Icon: "01d", Description: desc},
		},
	}
}

func unavailable(name string) error {
	return fmt.Errorf("%w: %s: boom", weather.ErrSourceUnavailable, name)
}

func TestGetWeatherSingleSource(t *testing.T) {
	svc := weather.NewService(store.NewMemoryStore(10, 0), []weather.Provider{
		fakeProvider{name: "Open-Meteo (Live)", snap: snapshotWithTemp(31, "Clear sky")},
	}, zap.NewNop())

	snap, source, err := svc.GetWeather(context.Background(), hyderabad, weather.UnitsMetric)
	require.NoError(t, err)
	assert.Equal(t, "Open-Meteo (Live)", source)
	assert.Equal(t, 31.0, snap.Current.Temperature)
}

func TestGetWeatherMergesInProviderOrder(t *testing.T) {
	svc := weather.NewService(store.NewMemoryStore(10, 0), []weather.Provider{
		// The slow provider still wins ties because it is listed first.
		fakeProvider{name: "OpenWeatherMap (Live)", snap: snapshotWithTemp(30, "Clear sky"), wait: 20 * time.Millisecond},
		fakeProvider{name: "WeatherAPI (Live)", err: unavailable("weatherapi")},
		fakeProvider{name: "Open-Meteo (Live)", snap: snapshotWithTemp(26, "Overcast")},
	}, zap.NewNop())

	snap, source, err := svc.GetWeather(context.Background(), hyderabad, weather.UnitsMetric)
	require.NoError(t, err)
	assert.Equal(t, "OpenWeatherMap (Live) + Open-Meteo (Live)", source)
	assert.Equal(t, 28.0, snap.Current.Temperature)
	assert.Equal(t, "Clear sky", snap.Current.Conditions.Description)
}

func TestGetWeatherAllSourcesFail(t *testing.T) {
	svc := weather.NewService(store.NewMemoryStore(10, 0), []weather.Provider{
		fakeProvider{name: "OpenWeatherMap (Live)", err: unavailable("openweather")},
		fakeProvider{name: "Open-Meteo (Live)", err: unavailable("openmeteo")},
	}, zap.NewNop())

	_, _, err := svc.GetWeather(context.Background(), hyderabad, weather.UnitsMetric)
	require.Error(t, err)
	assert.True(t, errors.Is(err, weather.ErrAllSourcesExhausted))
	assert.False(t, errors.Is(err, weather.ErrSourceUnavailable))

	empty := weather.NewService(store.NewMemoryStore(10, 0), nil, zap.NewNop())
	_, _, err = empty.GetWeather(context.Background(), hyderabad, weather.UnitsMetric)
	assert.ErrorIs(t, err, weather.ErrAllSourcesExhausted)
}

func TestRefreshThreadsPreviousSnapshot(t *testing.T) {
	mem := store.NewMemoryStore(10, 0)
	first := weather.NewService(mem, []weather.Provider{
		fakeProvider{name: "Open-Meteo (Live)", snap: snapshotWithTemp(30, "Clear sky")},
	}, zap.NewNop())

	u, err := first.Refresh(context.Background(), hyderabad, weather.UnitsMetric)
	require.NoError(t, err)
	assert.Nil(t, u.Previous)
	assert.Empty(t, u.Changes)

	later := snapshotWithTemp(22, "Moderate rain")
	later.Current.Timestamp = later.Current.Timestamp.Add(5 * time.Minute)
	second := weather.NewService(mem, []weather.Provider{
		fakeProvider{name: "Open-Meteo (Live)", snap: later},
	}, zap.NewNop())

	u, err = second.Refresh(context.Background(), hyderabad, weather.UnitsMetric)
	require.NoError(t, err)
	require.NotNil(t, u.Previous)
	assert.Equal(t, 30.0, u.Previous.Current.Temperature)
	assert.Equal(t, 22.0, u.Current.Current.Temperature)
	require.Len(t, u.Changes, 2)
	assert.Equal(t, weather.ChangeConditions, u.Changes[0].Kind)
	assert.Equal(t, weather.ChangeTemperature, u.Changes[1].Kind)

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	history, err := second.History(hyderabad, weather.UnitsMetric, from, from.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestGetWeatherKeyedSourceFailsOpenMeteoAlone(t *testing.T) {
	at := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)
	openMeteo := weather.Snapshot{
		Units:                 weather.UnitsMetric,
		TimezoneOffsetSeconds: 19800,
		Current: weather.Current{
			Timestamp:   at,
			Temperature: 30,
			Humidity:    weather.DefaultHumidity,
			Pressure:    weather.DefaultPressureHpa,
			WindSpeed:   11.2,
			UVIndex:     weather.DefaultUVIndex,
			Conditions:  weather.Conditions{Icon: "03d", Description: "Partly cloudy"},
		},
		Hourly: []weather.HourlyEntry{
			{Timestamp: at.Add(time.Hour), Temperature: 31, PrecipitationProbability: 0.25,
				Conditions: weather.Conditions{Icon: "03d", Description: "Partly cloudy"}},
		},
		Daily: []weather.DailyEntry{
			{Timestamp: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), TempMax: 34, TempMin: 24,
				Conditions: weather.Conditions{Icon: "10d", Description: "Slight rain"}},
		},
	}

	svc := weather.NewService(store.NewMemoryStore(10, 0), []weather.Provider{
		fakeProvider{name: "OpenWeatherMap (Live)", err: unavailable("openweathermap")},
		fakeProvider{name: "Open-Meteo (Live)", snap: openMeteo},
	}, zap.NewNop())

	snap, source, err := svc.GetWeather(context.Background(), hyderabad, weather.UnitsMetric)
	require.NoError(t, err)
	assert.Equal(t, "Open-Meteo (Live)", source)
	assert.Equal(t, openMeteo, snap)
}

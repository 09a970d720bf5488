package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"OPENWEATHER_API_KEY", "HTTP_TIMEOUT", "SENSOR_BUDGET", "REFRESH_INTERVAL",
		"WATCH_CITIES", "WATCH_UNITS", "STORE_MAX_HISTORY", "STORE_MAX_AGE",
		"GEOCODE_CACHE_TTL", "REDIS_URL", "SESSION_IDLE_TTL", "SWEEP_INTERVAL",
		"PORT", "LOG_LEVEL", "DEV_MODE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 30*time.Second, cfg.SensorBudget)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "metric", cfg.WatchUnits)
	assert.Equal(t, 288, cfg.StoreMaxHistory)
	assert.Equal(t, 24*time.Hour, cfg.StoreMaxAge)
	assert.Equal(t, 6*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.WatchCities)
	assert.False(t, cfg.DevMode)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("WATCH_CITIES", "Hyderabad; Paris ;;")
	t.Setenv("WATCH_UNITS", "imperial")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []string{"Hyderabad", "Paris"}, cfg.WatchCities)
	assert.Equal(t, "imperial", cfg.WatchUnits)
	assert.True(t, cfg.DevMode)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("HTTP_TIMEOUT", "")
	t.Setenv("WATCH_UNITS", "kelvin")
	_, err = Load()
	assert.Error(t, err)
}

func TestHasKey(t *testing.T) {
	assert.False(t, HasKey(""))
	assert.False(t, HasKey("   "))
	assert.False(t, HasKey("your_api_key_here"))
	assert.False(t, HasKey("YOUR_API_KEY"))
	assert.True(t, HasKey("abc123"))
}

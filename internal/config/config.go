package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Placeholder values shipped in sample .env files. A key equal to one of
// these is treated as not configured.
var placeholderKeys = []string{"your_api_key_here", "YOUR_API_KEY"}

type AppConfig struct {
	// Credentials. Empty or placeholder values disable the matching provider.
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GoogleAPIKey      string
	LocationIQAPIKey  string
	MapBoxToken       string
	OpenCageAPIKey    string

	// HTTPTimeout bounds every individual outbound provider call.
	HTTPTimeout time.Duration

	// SensorBudget is the overall wall-clock budget of the GPS refinement loop.
	SensorBudget time.Duration

	// RefreshInterval controls how often watched cities are refreshed.
	RefreshInterval time.Duration
	WatchCities     []string
	WatchUnits      string

	// In-memory store retention.
	StoreMaxHistory int           // max number of snapshots per location (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)

	// Housekeeping. Sessions unused for SessionIdleTTL are closed and aged-out
	// store keys are dropped every SweepInterval.
	SessionIdleTTL time.Duration
	SweepInterval  time.Duration

	// Forward geocode cache. RedisURL empty means in-process cache.
	CacheTTL time.Duration
	RedisURL string

	Port     string
	LogLevel string
	DevMode  bool
}

// Load reads configuration from environment with sensible defaults.
// Callers are expected to have loaded any .env file beforehand.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")
	cfg.LocationIQAPIKey = os.Getenv("LOCATIONIQ_API_KEY")
	cfg.MapBoxToken = os.Getenv("MAPBOX_TOKEN")
	cfg.OpenCageAPIKey = os.Getenv("OPENCAGE_API_KEY")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "12s"); err != nil {
		return nil, err
	}
	if cfg.SensorBudget, err = getenvDuration("SENSOR_BUDGET", "30s"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	cfg.WatchCities = splitList(os.Getenv("WATCH_CITIES"))
	cfg.WatchUnits = getenvDefault("WATCH_UNITS", "metric")
	if cfg.WatchUnits != "metric" && cfg.WatchUnits != "imperial" {
		return nil, fmt.Errorf("invalid WATCH_UNITS: %q", cfg.WatchUnits)
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 288) // 24h at 5-minute intervals
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	if cfg.SessionIdleTTL, err = getenvDuration("SESSION_IDLE_TTL", "30m"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getenvDuration("SWEEP_INTERVAL", "1m"); err != nil {
		return nil, err
	}

	if cfg.CacheTTL, err = getenvDuration("GEOCODE_CACHE_TTL", "6h"); err != nil {
		return nil, err
	}
	cfg.RedisURL = os.Getenv("REDIS_URL")

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.DevMode, _ = strconv.ParseBool(os.Getenv("DEV_MODE"))

	return cfg, nil
}

// HasKey reports whether key is set to a real credential.
func HasKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	for _, p := range placeholderKeys {
		if key == p {
			return false
		}
	}
	return true
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

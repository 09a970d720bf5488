package weather

import (
	"context"
	"time"
)

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
// Fetch returns a complete canonical snapshot in the requested units or an
// error wrapping ErrSourceUnavailable.
type Provider interface {
	// Name is the source label shown to users, e.g. "Open-Meteo (Live)".
	Name() string
	Fetch(ctx context.Context, coords Coordinates, units Units) (Snapshot, error)
}

// Store is the contract the in-memory store (and any future persistent store) must satisfy.
type Store interface {
	SaveSnapshot(key string, snapshot Snapshot)
	GetLatest(key string) (Snapshot, error)
	GetRange(key string, from, to time.Time) ([]Snapshot, error)
}

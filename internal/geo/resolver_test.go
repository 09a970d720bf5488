package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/skywatch/internal/cache"
)

type stubGeocoder struct {
	name  string
	res   GeocodeResult
	err   error
	calls int
}

func (s *stubGeocoder) Name() string { return s.name }

func (s *stubGeocoder) Geocode(context.Context, string) (GeocodeResult, error) {
	s.calls++
	return s.res, s.err
}

func TestResolveFallsBackAndCaches(t *testing.T) {
	authed := &stubGeocoder{name: "openweather", err: errors.New("source unavailable: unexpected status code: 401")}
	free := &stubGeocoder{name: "nominatim", res: GeocodeResult{Lat: 48.8566, Lon: 2.3522, Label: "Paris", Source: "nominatim"}}
	r := NewResolver([]Geocoder{authed, free}, cache.NewMemoryCache(), time.Hour, zap.NewNop())

	got, err := r.Resolve(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, "Paris", got.Label)

	got, err = r.Resolve(context.Background(), "  PARIS ")
	require.NoError(t, err)
	assert.Equal(t, 48.8566, got.Lat)
	assert.Equal(t, 1, authed.calls)
	assert.Equal(t, 1, free.calls)
}

func TestResolveNotFound(t *testing.T) {
	r := NewResolver([]Geocoder{
		&stubGeocoder{name: "a", err: errors.New("empty result")},
		&stubGeocoder{name: "b", err: errors.New("timeout")},
	}, nil, 0, zap.NewNop())

	_, err := r.Resolve(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocationNotFound)
	assert.NotContains(t, err.Error(), "timeout")

	_, err = r.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestResetCacheForgetsResults(t *testing.T) {
	free := &stubGeocoder{name: "nominatim", res: GeocodeResult{Lat: 45.764, Lon: 4.8357, Label: "Lyon", Source: "nominatim"}}
	r := NewResolver([]Geocoder{free}, cache.NewMemoryCache(), time.Hour, zap.NewNop())

	_, err := r.Resolve(context.Background(), "Lyon")
	require.NoError(t, err)
	require.NoError(t, r.ResetCache(context.Background()))
	_, err = r.Resolve(context.Background(), "Lyon")
	require.NoError(t, err)
	assert.Equal(t, 2, free.calls)

	assert.NoError(t, NewResolver(nil, nil, 0, zap.NewNop()).ResetCache(context.Background()))
}

package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fastBackoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestGetJSONDecodesBodyAndSendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SkyWatch-Weather-App/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"name":"Hyderabad"}`))
	}))
	defer server.Close()

	c := New("test-ok", server.Client(), time.Second, NoRetry, zap.NewNop())
	var out struct {
		Name string `json:"name"`
	}
	err := c.GetJSON(context.Background(), server.URL, map[string]string{"User-Agent": "SkyWatch-Weather-App/1.0"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Hyderabad", out.Name)
	assert.Equal(t, float64(1), testutil.ToFloat64(requestsTotal.WithLabelValues("test-ok", "ok")))
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := New("test-401", server.Client(), time.Second, fastBackoff, zap.NewNop())
	var out map[string]any
	err := c.GetJSON(context.Background(), server.URL, nil, &out)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := New("test-retry", server.Client(), time.Second, fastBackoff, zap.NewNop())
	var out map[string]any
	require.NoError(t, c.GetJSON(context.Background(), server.URL, nil, &out))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetJSONDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := New("test-decode", server.Client(), time.Second, NoRetry, zap.NewNop())
	var out map[string]any
	err := c.GetJSON(context.Background(), server.URL, nil, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.True(t, errors.Is(err, errDecode))
}

func TestGetJSONAppliesPerCallTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	c := New("test-timeout", server.Client(), 20*time.Millisecond, NoRetry, zap.NewNop())
	var out map[string]any
	err := c.GetJSON(context.Background(), server.URL, nil, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestGetJSONWithoutHTTPClient(t *testing.T) {
	c := New("test-nil", nil, time.Second, NoRetry, zap.NewNop())
	var out map[string]any
	err := c.GetJSON(context.Background(), "http://example.invalid", nil, &out)
	assert.True(t, errors.Is(err, errNoHTTPClient))
}

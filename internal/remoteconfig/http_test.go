package remoteconfig

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProvider_FetchActivateAndRead(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"SantaTakeoff": 1766570400000, "StatusMessage": "ho", "DisableSantaTracker": true,
			"AsString": "17", "AsFloat": 2.9, "BoolString": "true"}`))
	}))
	defer ts.Close()

	p := NewHTTPProvider(ts.URL, "", WithDefaults(map[string]any{"StatusMessage": "default", "Fallback": int64(5)}))
	ctx := context.Background()

	require.NoError(t, p.Fetch(ctx, 0))
	assert.Equal(t, "default", p.String("StatusMessage"), "fetched values are invisible before Activate")

	require.NoError(t, p.Activate(ctx))
	assert.Equal(t, int64(1766570400000), p.Int("SantaTakeoff"))
	assert.Equal(t, "ho", p.String("StatusMessage"))
	assert.True(t, p.Bool("DisableSantaTracker"))
	assert.Equal(t, int64(17), p.Int("AsString"))
	assert.Equal(t, int64(2), p.Int("AsFloat"))
	assert.True(t, p.Bool("BoolString"))
	assert.Equal(t, int64(5), p.Int("Fallback"))
	assert.Zero(t, p.Int("Missing"))
	assert.Empty(t, p.String("Missing"))
	assert.False(t, p.Bool("Missing"))
}

func TestHTTPProvider_FetchReusesRecentResult(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	now := time.Unix(1000, 0)
	p := NewHTTPProvider(ts.URL, "", WithNow(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, p.Fetch(ctx, time.Hour))
	require.NoError(t, p.Fetch(ctx, time.Hour))
	assert.Equal(t, int32(1), hits.Load())

	now = now.Add(time.Hour)
	require.NoError(t, p.Fetch(ctx, time.Hour))
	assert.Equal(t, int32(2), hits.Load())

	require.NoError(t, p.Fetch(ctx, 0))
	assert.Equal(t, int32(3), hits.Load())
}

func TestHTTPProvider_TooManyRequestsIsThrottled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	now := time.Unix(1000, 0)
	p := NewHTTPProvider(ts.URL, "", WithNow(func() time.Time { return now }))

	err := p.Fetch(context.Background(), 0)
	var te *ThrottledError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, now.Add(2*time.Minute), te.Until)
}

func TestHTTPProvider_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer ts.Close()

	err := NewHTTPProvider(ts.URL, "").Fetch(context.Background(), 0)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestHTTPProvider_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2`))
	}))
	defer ts.Close()

	err := NewHTTPProvider(ts.URL, "").Fetch(context.Background(), 0)
	require.ErrorContains(t, err, "failed to decode config")
}

func TestHTTPProvider_SendsSignedBearerToken(t *testing.T) {
	secret := "s3cr3t"
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	p := NewHTTPProvider(ts.URL, secret)
	require.NoError(t, p.Fetch(context.Background(), 0))
	require.True(t, strings.HasPrefix(auth, "Bearer "))

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, p.instance, claims.Subject)
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, defaultRetryAfter, retryAfter("", now))
	assert.Equal(t, defaultRetryAfter, retryAfter("soon", now))
	assert.Equal(t, 30*time.Second, retryAfter("30", now))
	assert.Equal(t, time.Hour, retryAfter(now.Add(time.Hour).Format(http.TimeFormat), now))
}

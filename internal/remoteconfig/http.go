package remoteconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultRetryAfter = time.Minute
	tokenValidity     = 5 * time.Minute
	maxBodySize       = 1 << 20
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// HTTPProvider fetches flags as one flat JSON object from a URL. When a
// secret is configured every request carries an HS256 bearer token whose
// subject identifies this process.
type HTTPProvider struct {
	url      string
	secret   []byte
	instance string
	client   *http.Client
	now      func() time.Time

	mu        sync.RWMutex
	fetched   map[string]any
	fetchedAt time.Time
	active    map[string]any
	defaults  map[string]any
}

type HTTPOption func(*HTTPProvider)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvider) { p.client = c }
}

func WithNow(now func() time.Time) HTTPOption {
	return func(p *HTTPProvider) { p.now = now }
}

// WithDefaults sets the values returned for keys the backend never sent.
func WithDefaults(d map[string]any) HTTPOption {
	return func(p *HTTPProvider) { p.defaults = d }
}

func NewHTTPProvider(url, secret string, opts ...HTTPOption) *HTTPProvider {
	p := &HTTPProvider{
		url:      url,
		secret:   []byte(secret),
		instance: uuid.NewString(),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
		active:   map[string]any{},
		defaults: map[string]any{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *HTTPProvider) Fetch(ctx context.Context, minInterval time.Duration) error {
	p.mu.RLock()
	fresh := !p.fetchedAt.IsZero() && p.now().Sub(p.fetchedAt) < minInterval
	p.mu.RUnlock()
	if fresh {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create config request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if len(p.secret) > 0 {
		token, err := p.token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("config request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &ThrottledError{Until: p.now().Add(retryAfter(resp.Header.Get("Retry-After"), p.now()))}
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s; body: %s", ErrUnexpectedStatus, resp.Status, string(b))
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize))
	dec.UseNumber()
	values := map[string]any{}
	if err := dec.Decode(&values); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	p.mu.Lock()
	p.fetched = values
	p.fetchedAt = p.now()
	p.mu.Unlock()
	return nil
}

// Activate publishes the last fetched set. Without a pending set it is a
// no-op.
func (p *HTTPProvider) Activate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetched != nil {
		p.active = p.fetched
		p.fetched = nil
	}
	return nil
}

func (p *HTTPProvider) value(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.active[key]; ok {
		return v, true
	}
	v, ok := p.defaults[key]
	return v, ok
}

func (p *HTTPProvider) Int(key string) int64 {
	v, _ := p.value(key)
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return int64(f)
		}
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	}
	return 0
}

func (p *HTTPProvider) String(key string) string {
	v, ok := p.value(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (p *HTTPProvider) Bool(key string) bool {
	v, _ := p.value(key)
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	}
	return false
}

func (p *HTTPProvider) token() (string, error) {
	now := p.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   p.instance,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenValidity)),
	})

	s, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign config token: %w", err)
	}
	return s, nil
}

// retryAfter accepts delta-seconds or an HTTP date.
func retryAfter(h string, now time.Time) time.Duration {
	if h == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		return max(t.Sub(now), 0)
	}
	return defaultRetryAfter
}

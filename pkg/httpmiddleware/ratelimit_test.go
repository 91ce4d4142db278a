package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// hit sends one GET to h with the given remote address and headers.
func hit(h http.Handler, path, remote string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_Burst(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i := range 3 {
		w := hit(h, "/api/menu", "192.168.1.1:1234")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	w := hit(h, "/api/menu", "192.168.1.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests"}`, w.Body.String())
}

func TestRateLimit_Keys(t *testing.T) {
	tests := []struct {
		name   string
		cfg    RateLimitConfig
		first  []string
		second []string
		status int
	}{
		{
			name:   "separate ips",
			first:  []string{"10.0.0.1:1"},
			second: []string{"10.0.0.2:1"},
			status: http.StatusOK,
		},
		{
			name:   "same ip different port",
			first:  []string{"10.0.0.1:1"},
			second: []string{"10.0.0.1:2"},
			status: http.StatusTooManyRequests,
		},
		{
			name:   "forwarded client behind proxies",
			first:  []string{"192.168.1.1:1", "X-Forwarded-For", "203.0.113.50, 70.41.3.18"},
			second: []string{"192.168.1.2:1", "X-Forwarded-For", "203.0.113.50"},
			status: http.StatusTooManyRequests,
		},
		{
			name: "custom key",
			cfg: RateLimitConfig{KeyFunc: func(r *http.Request) string {
				return r.Header.Get("X-Session-ID")
			}},
			first:  []string{"10.0.0.1:1", "X-Session-ID", "a"},
			second: []string{"10.0.0.1:1", "X-Session-ID", "b"},
			status: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Max, cfg.Window = 1, time.Minute
			h := RateLimit(cfg)(okHandler())

			require.Equal(t, http.StatusOK, hit(h, "/", tt.first[0], tt.first[1:]...).Code)
			assert.Equal(t, tt.status, hit(h, "/", tt.second[0], tt.second[1:]...).Code)
		})
	}
}

func TestRateLimit_Skip(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		Skip:   func(r *http.Request) bool { return r.URL.Path == "/livez" },
	})(okHandler())

	for range 3 {
		w := hit(h, "/livez", "10.0.0.1:1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, http.StatusOK, hit(h, "/api/cart", "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/api/cart", "10.0.0.1:1").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers []string
		want    string
	}{
		{"remote addr", "10.1.2.3:5555", nil, "10.1.2.3"},
		{"remote without port", "10.1.2.3", nil, "10.1.2.3"},
		{"forwarded chain", "10.1.2.3:1", []string{"X-Forwarded-For", " 203.0.113.9 , 10.0.0.1"}, "203.0.113.9"},
		{"real ip", "10.1.2.3:1", []string{"X-Real-IP", "198.51.100.4"}, "198.51.100.4"},
		{"forwarded wins", "10.1.2.3:1", []string{"X-Real-IP", "198.51.100.4", "X-Forwarded-For", "203.0.113.9"}, "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for i := 0; i+1 < len(tt.headers); i += 2 {
				req.Header.Set(tt.headers[i], tt.headers[i+1])
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestRateLimit_Refill(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 2, Window: 2 * time.Second})
	now := time.Now()

	for range 2 {
		_, _, _, ok := rl.allow("k", now)
		require.True(t, ok)
	}
	remaining, _, retry, ok := rl.allow("k", now)
	assert.False(t, ok)
	assert.Equal(t, 0, remaining)
	assert.InDelta(t, time.Second, retry, float64(10*time.Millisecond))

	_, _, _, ok = rl.allow("k", now.Add(time.Second))
	assert.True(t, ok)
}

func TestRateLimit_Cleanup(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Now()

	rl.allow("idle", now)
	rl.allow("active", now.Add(50*time.Second))
	rl.cleanup(now.Add(70 * time.Second))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.buckets, "idle")
	assert.Contains(t, rl.buckets, "active")
}

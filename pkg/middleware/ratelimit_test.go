package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimit(t *testing.T) {
	t.Parallel()

	handler := RateLimit(RateLimitConfig{
		RequestsPerPeriod: 2,
		Period:            time.Minute,
		Store:             NewMemoryStore(),
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/payment-plan", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("198.51.100.1:1000"))
	assert.Equal(t, http.StatusOK, call("198.51.100.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("198.51.100.1:1002"))
	assert.Equal(t, http.StatusOK, call("198.51.100.2:1000"))
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	t.Parallel()

	handler := RateLimit(RateLimitConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_KeyPrefixSeparatesLimiters(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	global := RateLimit(RateLimitConfig{RequestsPerPeriod: 1, Period: time.Minute, Store: store})(ok)
	submit := RateLimit(RateLimitConfig{RequestsPerPeriod: 1, Period: time.Minute, Store: store, KeyPrefix: "submit:"})(ok)

	call := func(h http.Handler) int {
		req := httptest.NewRequest(http.MethodPost, "/api/payment-plan", nil)
		req.RemoteAddr = "198.51.100.9:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call(global))
	assert.Equal(t, http.StatusOK, call(submit))
	assert.Equal(t, http.StatusTooManyRequests, call(submit))
}

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taxdesk/pkg/composables"
	"github.com/iota-uz/taxdesk/pkg/httpapi"
)

func newTestLogger() (*bytes.Buffer, *logrus.Logger) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return buf, logger
}

func TestWithLogger_RequestScopedEntry(t *testing.T) {
	t.Parallel()

	buf, logger := newTestLogger()
	handler := WithLogger(logger, DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		composables.UseLogger(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/payment-plan", strings.NewReader(`{"paymentPlanData":{}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-42")
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))

	out := buf.String()
	assert.Contains(t, out, `"request-id":"req-42"`)
	assert.Contains(t, out, "inside handler")
	assert.Contains(t, out, "request completed")
	assert.NotContains(t, out, "secret-token")
}

func TestWithLogger_RecoversPanic(t *testing.T) {
	t.Parallel()

	buf, logger := newTestLogger()
	handler := WithLogger(logger, DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("store exploded")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tax-return-copy", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, httpapi.CodeInternal, env.Code)
	assert.Equal(t, "/api/tax-return-copy", env.Meta["path"])
	assert.Contains(t, buf.String(), "panic recovered in request handler")
}

func TestRequestParams(t *testing.T) {
	t.Parallel()

	var ip string
	handler := RequestParams("X-Real-IP")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _ = composables.UseIP(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "203.0.113.9")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.9", ip)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taxdesk/pkg/composables"
	"github.com/iota-uz/taxdesk/pkg/identity"
)

var testSecret = []byte("test-secret-0123456789")

func signToken(t *testing.T, secret []byte, method jwt.SigningMethod, mutate func(c *Claims)) string {
	t.Helper()
	c := &Claims{
		Email: "jane@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	c.UserMetadata.FullName = "Jane Citizen"
	if mutate != nil {
		mutate(c)
	}
	raw, err := jwt.NewWithClaims(method, c).SignedString(secret)
	require.NoError(t, err)
	return raw
}

func TestAuthConfig_ParseUser(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{Secret: testSecret, Audience: "authenticated"}

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()
		u, err := cfg.ParseUser(signToken(t, testSecret, jwt.SigningMethodHS256, nil))
		require.NoError(t, err)
		assert.Equal(t, identity.User{ID: "u1", Email: "jane@example.com", DisplayName: "Jane Citizen"}, u)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		_, err := cfg.ParseUser("  ")
		require.ErrorIs(t, err, ErrMissingToken)
	})

	cases := map[string]string{
		"wrong secret": signToken(t, []byte("another-secret-0123456"), jwt.SigningMethodHS256, nil),
		"wrong alg":    signToken(t, testSecret, jwt.SigningMethodHS512, nil),
		"expired": signToken(t, testSecret, jwt.SigningMethodHS256, func(c *Claims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		}),
		"no expiry": signToken(t, testSecret, jwt.SigningMethodHS256, func(c *Claims) {
			c.ExpiresAt = nil
		}),
		"wrong audience": signToken(t, testSecret, jwt.SigningMethodHS256, func(c *Claims) {
			c.Audience = jwt.ClaimStrings{"anon"}
		}),
		"empty subject": signToken(t, testSecret, jwt.SigningMethodHS256, func(c *Claims) {
			c.Subject = ""
		}),
		"garbage": "not.a.jwt",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := cfg.ParseUser(raw)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	var seen identity.User
	var seenErr error
	handler := Authenticate(AuthConfig{Secret: testSecret})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, seenErr = composables.UseUser(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("rejects missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payment-plan", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	})

	t.Run("puts user in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/payment-plan", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.SigningMethodHS256, nil))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NoError(t, seenErr)
		assert.Equal(t, "u1", seen.ID)
	})
}

func TestAuthenticate_Disabled(t *testing.T) {
	t.Parallel()

	called := false
	handler := Authenticate(AuthConfig{Disabled: true})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, err := composables.UseUser(r.Context())
		assert.ErrorIs(t, err, composables.ErrNoUser)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

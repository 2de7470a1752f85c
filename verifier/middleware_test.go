package verifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxos/signet/profile"
	"github.com/praxos/signet/ratelimit"
)

func protectedServer(t *testing.T, cfg MiddlewareConfig, handler http.Handler) http.Handler {
	t.Helper()

	protect, err := Middleware(cfg)
	require.NoError(t, err)

	return protect(handler)
}

func TestMiddleware(t *testing.T) {
	t.Run("requires a verifier", func(t *testing.T) {
		_, err := Middleware(MiddlewareConfig{})
		assert.ErrorIs(t, err, ErrNoVerifier)
	})

	t.Run("authenticated request reaches the handler with identity", func(t *testing.T) {
		pair := newTestPair(t, profile.Standard())

		var got *Identity
		handler := protectedServer(t, MiddlewareConfig{Verifier: pair.verifier},
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

		req := signedRequest(t, pair.signer, "POST", "https://api.example.com/api/schemas", `{"a":1}`)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, got)
		assert.Equal(t, "client-abc", got.ClientID)
	})

	t.Run("production rejection exposes only code and correlation id", func(t *testing.T) {
		pair := newTestPair(t, profile.Standard())

		handler := protectedServer(t, MiddlewareConfig{Verifier: pair.verifier},
			http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				t.Fatal("handler must not run for rejected requests")
			}))

		req := httptest.NewRequest("GET", "https://api.example.com/ping", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "missing_headers", resp.Error)
		assert.NotEmpty(t, resp.CorrelationID)
		assert.Empty(t, resp.Detail)
		assert.Empty(t, resp.Docs)
	})

	t.Run("development rejection carries detail and docs", func(t *testing.T) {
		pair := newTestPair(t, profile.Standard())

		handler := protectedServer(t, MiddlewareConfig{Verifier: pair.verifier, Development: true},
			http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

		req := httptest.NewRequest("GET", "https://api.example.com/ping", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Detail)
		assert.Contains(t, resp.Docs, "missing_headers")
	})

	t.Run("replayed request is rejected with 401", func(t *testing.T) {
		pair := newTestPair(t, profile.Standard())

		handler := protectedServer(t, MiddlewareConfig{Verifier: pair.verifier},
			http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))

		req := signedRequest(t, pair.signer, "POST", "https://api.example.com/api/schemas", `{"a":1}`)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "nonce_validation_failed", resp.Error)
	})
}

func TestMiddlewareRateLimit(t *testing.T) {
	t.Run("budget exhaustion returns 429 with limit headers", func(t *testing.T) {
		pair := newTestPair(t, profile.Standard())

		handler := protectedServer(t, MiddlewareConfig{
			Verifier:   pair.verifier,
			Limiter:    ratelimit.NewMemoryLimiter(ratelimit.MemoryConfig{}),
			RateLimit:  1,
			RateWindow: time.Minute,
		}, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		first := signedRequest(t, pair.signer, "GET", "https://api.example.com/ping", "")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, first)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("RateLimit-Limit"))
		assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))

		second := signedRequest(t, pair.signer, "GET", "https://api.example.com/ping", "")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, second)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "rate_limit_exceeded", resp.Error)
	})

	t.Run("clients have independent budgets", func(t *testing.T) {
		pair := newTestPair(t, profile.Standard())
		limiter := ratelimit.NewMemoryLimiter(ratelimit.MemoryConfig{})

		handler := protectedServer(t, MiddlewareConfig{
			Verifier:  pair.verifier,
			Limiter:   limiter,
			RateLimit: 1,
		}, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		req := signedRequest(t, pair.signer, "GET", "https://api.example.com/ping", "")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		// A different client id gets its own window.
		other := signedRequest(t, pair.signer, "GET", "https://api.example.com/ping", "")
		other.Header.Set("X-Client-Id", "client-other")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, other)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		pair := newTestPair(t, profile.Standard())

		handler := protectedServer(t, MiddlewareConfig{
			Verifier:  pair.verifier,
			Limiter:   failingLimiter{},
			RateLimit: 1,
		}, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		req := signedRequest(t, pair.signer, "GET", "https://api.example.com/ping", "")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, ratelimit.ErrCapacityExceeded
}

package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/praxos/signet/autherrors"
	"github.com/praxos/signet/ratelimit"
)

// ErrNoVerifier is returned by Middleware when no Verifier is
// configured.
var ErrNoVerifier = errors.New("verifier: verifier must not be nil")

type identityKey struct{}

// IdentityFromContext returns the identity stored by the middleware
// after successful verification.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)

	return identity, ok
}

// MiddlewareConfig configures the verification middleware.
type MiddlewareConfig struct {
	// Verifier authenticates each request. Required.
	Verifier *Verifier

	// Limiter, when set, is consulted before verification. Requests are
	// keyed by x-client-id, falling back to the remote host.
	Limiter ratelimit.Limiter

	// RateLimit is the per-key request budget per RateWindow. Ignored
	// when Limiter is nil; a non-positive value disables limiting.
	RateLimit int

	// RateWindow is the limiter window length. Defaults to one minute.
	RateWindow time.Duration

	// Logger receives structured accept/reject events. Defaults to a
	// no-op logger.
	Logger zerolog.Logger

	// Development, when true, adds the error detail and a
	// troubleshooting link to rejection responses. Never enable in
	// production: responses must expose only the code and correlation
	// id.
	Development bool
}

// errorResponse is the JSON rejection body.
type errorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Detail        string `json:"detail,omitempty"`
	Docs          string `json:"docs,omitempty"`
}

// Middleware wraps handlers with rate limiting, signature
// verification, and identity propagation. The wrapped handler runs
// only for authenticated requests and finds the caller identity in the
// request context.
func Middleware(cfg MiddlewareConfig) (func(http.Handler) http.Handler, error) {
	if cfg.Verifier == nil {
		return nil, ErrNoVerifier
	}

	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.allowRate(w, r) {
				return
			}

			identity, err := cfg.Verifier.Verify(r.Context(), r)
			if err != nil {
				cfg.reject(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

// allowRate enforces the request budget. Returns false when the
// request was rejected and a response already written. Limiter
// failures fail open: losing the limiter must not take down
// authentication.
func (cfg *MiddlewareConfig) allowRate(w http.ResponseWriter, r *http.Request) bool {
	if cfg.Limiter == nil || cfg.RateLimit <= 0 {
		return true
	}

	key := r.Header.Get("X-Client-Id")
	if key == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			key = host
		} else {
			key = r.RemoteAddr
		}
	}

	decision, err := cfg.Limiter.Allow(r.Context(), key, cfg.RateLimit, cfg.RateWindow)
	if err != nil {
		cfg.Logger.Warn().Err(err).Str("client_id", key).Msg("rate limiter unavailable, failing open")

		return true
	}

	writeRateLimitHeaders(w, decision)

	if decision.Allowed {
		return true
	}

	cfg.reject(w, r, autherrors.Newf(autherrors.CodeRateLimitExceeded,
		"client %s exceeded %d requests per %s", key, decision.Limit, cfg.RateWindow))

	return false
}

// writeRateLimitHeaders exposes the limiter decision to the client.
func writeRateLimitHeaders(w http.ResponseWriter, decision ratelimit.Decision) {
	if decision.Limit > 0 {
		w.Header().Set("RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}

	if decision.ResetAt.IsZero() {
		return
	}

	w.Header().Set("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

	if !decision.Allowed {
		retryAfter := int64(time.Until(decision.ResetAt).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}

		w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	}
}

// reject writes the JSON rejection response and logs the outcome.
// Production responses carry only the code, generic message, and
// correlation id; detail and docs are development-mode additions.
func (cfg *MiddlewareConfig) reject(w http.ResponseWriter, r *http.Request, err error) {
	code := autherrors.CodeOf(err)
	correlationID := autherrors.CorrelationIDOf(err)

	event := cfg.Logger.Warn()
	if code.ServerFault() {
		event = cfg.Logger.Error()
	}

	event.
		Str("code", string(code)).
		Str("correlation_id", correlationID).
		Str("client_id", r.Header.Get("X-Client-Id")).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Bool("security_alert", code.SecurityAlert()).
		Err(err).
		Msg("request rejected")

	resp := errorResponse{
		Error:         string(code),
		Message:       code.PublicMessage(),
		CorrelationID: correlationID,
	}

	if cfg.Development {
		resp.Docs = code.DocsURL()

		var authErr *autherrors.Error
		if errors.As(err, &authErr) {
			resp.Detail = authErr.Detail
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code.HTTPStatus())

	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		cfg.Logger.Error().Err(encodeErr).Msg("writing rejection response")
	}
}

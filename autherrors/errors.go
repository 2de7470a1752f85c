package autherrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Code identifies one class of authentication failure. Codes are stable
// wire values: they appear in error responses and logs.
type Code string

// Verifier-side codes, one per rejecting state of the verification
// state machine, plus the operational codes.
const (
	// CodeMissingHeaders: the signature-input or signature header (with
	// the sig1 label) is absent.
	CodeMissingHeaders Code = "missing_headers"

	// CodeInvalidSignatureFormat: the signature headers are present but
	// cannot be parsed, or the canonical message cannot be rebuilt from
	// the received request.
	CodeInvalidSignatureFormat Code = "invalid_signature_format"

	// CodeUnsupportedAlgorithm: the alg parameter is not "ed25519".
	CodeUnsupportedAlgorithm Code = "unsupported_algorithm"

	// CodePublicKeyLookupFailed: the keyid did not resolve to an active
	// public key.
	CodePublicKeyLookupFailed Code = "public_key_lookup_failed"

	// CodeSignatureVerificationFailed: the signature does not match the
	// rebuilt canonical message, or a covered content digest does not
	// match the body.
	CodeSignatureVerificationFailed Code = "signature_verification_failed"

	// CodeTimestampValidationFailed: the created parameter is missing
	// or outside the permitted clock-skew window.
	CodeTimestampValidationFailed Code = "timestamp_validation_failed"

	// CodeNonceValidationFailed: the nonce is missing, malformed for
	// the active profile, or was already consumed. Flagged for security
	// alerting, since it indicates either a bug or an active replay
	// attempt.
	CodeNonceValidationFailed Code = "nonce_validation_failed"

	// CodeRateLimitExceeded: the client exhausted its request budget.
	CodeRateLimitExceeded Code = "rate_limit_exceeded"

	// CodeConfigurationError: the server-side configuration is
	// inconsistent or a backing store is unavailable. Operator fault.
	CodeConfigurationError Code = "configuration_error"
)

// Signer-side codes.
const (
	// CodeInvalidRequest: the outgoing request cannot be signed as-is
	// (missing covered header, body over the profile limit).
	CodeInvalidRequest Code = "invalid_request"

	// CodeSignatureGeneration: the signing primitive failed.
	CodeSignatureGeneration Code = "signature_generation"

	// CodeHTTPHeader: a produced header value is not valid for
	// transport.
	CodeHTTPHeader Code = "http_header"
)

// Error is an authentication failure. Values are immutable once
// constructed; build them with New or Wrap only.
type Error struct {
	// Code classifies the failure.
	Code Code

	// CorrelationID is a fresh UUID v4 assigned at construction, echoed
	// in responses and logs so a client report can be matched to a
	// server-side trace.
	CorrelationID string

	// Detail is the development-mode diagnostic. Never exposed in
	// production responses.
	Detail string

	cause error
}

// New creates an Error with the given code and detail and a fresh
// correlation ID.
func New(code Code, detail string) *Error {
	return &Error{
		Code:          code,
		CorrelationID: uuid.New().String(),
		Detail:        detail,
	}
}

// Newf creates an Error with a formatted detail.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates an Error that records cause for errors.Is/errors.As
// chains. The cause is diagnostic only and is not rendered to clients.
func Wrap(code Code, detail string, cause error) *Error {
	err := New(code, detail)
	err.cause = cause

	return err
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("autherrors: %s [%s]: %s: %v", e.Code, e.CorrelationID, e.Detail, e.cause)
	}

	return fmt.Sprintf("autherrors: %s [%s]: %s", e.Code, e.CorrelationID, e.Detail)
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code, so callers can test
// `errors.Is(err, &autherrors.Error{Code: autherrors.CodeMissingHeaders})`
// without caring about correlation IDs.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return e.Code == t.Code
}

// CodeOf extracts the Code from an error chain. Unclassified errors
// report CodeConfigurationError: an error that escaped the taxonomy is
// a server-side fault by definition.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return CodeConfigurationError
}

// CorrelationIDOf extracts the correlation ID from an error chain, or
// returns an empty string.
func CorrelationIDOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.CorrelationID
	}

	return ""
}

// HTTPStatus maps a code to its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeMissingHeaders, CodeInvalidSignatureFormat, CodeUnsupportedAlgorithm, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeSignatureVerificationFailed, CodeTimestampValidationFailed, CodePublicKeyLookupFailed, CodeNonceValidationFailed:
		return http.StatusUnauthorized
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// SecurityAlert reports whether failures with this code should be
// flagged for security alerting.
func (c Code) SecurityAlert() bool { return c == CodeNonceValidationFailed }

// ServerFault reports whether this code marks an operator fault rather
// than a client fault. Server faults log at a higher severity.
func (c Code) ServerFault() bool { return c == CodeConfigurationError }

// PublicMessage is the generic client-facing message for this code.
// Intentionally vague: detailed diagnostics stay server-side.
func (c Code) PublicMessage() string {
	switch c {
	case CodeRateLimitExceeded:
		return "too many requests"
	case CodeConfigurationError:
		return "internal server error"
	default:
		return "request authentication failed"
	}
}

// DocsURL returns the troubleshooting page for this code. Attached to
// development-mode responses only.
func (c Code) DocsURL() string {
	return "https://github.com/praxos/signet/blob/main/docs/errors.md#" + string(c)
}

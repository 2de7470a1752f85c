package verifier

import (
	"context"
	"crypto/ed25519"
	"errors"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/praxos/signet/autherrors"
	"github.com/praxos/signet/canonical"
	"github.com/praxos/signet/noncestore"
	"github.com/praxos/signet/profile"
)

// Label is the signature label expected in the dictionary headers.
const Label = "sig1"

var (
	// ErrNoProfile is returned by New when Config.Profile is nil.
	ErrNoProfile = errors.New("verifier: profile must not be nil")

	// ErrNoRegistry is returned by New when Config.Registry is nil.
	ErrNoRegistry = errors.New("verifier: key registry must not be nil")

	// ErrNoNonceStore is returned when the active profile requires
	// nonces but no store is configured.
	ErrNoNonceStore = errors.New("verifier: nonce store required by profile")
)

// Identity is the authenticated caller bound to a verified request;
// downstream authorization consumes it.
type Identity struct {
	// ClientID is the caller's x-client-id header value, falling back
	// to the key ID when the header is absent.
	ClientID string

	// UserID is the optional x-user-id header value.
	UserID string

	// KeyID is the key the signature verified against.
	KeyID string
}

// Config configures a Verifier.
type Config struct {
	// Profile is the security policy to enforce. Required; must
	// validate.
	Profile *profile.Profile

	// Registry resolves key IDs to public keys. Required.
	Registry Registry

	// Nonces records consumed nonces. Required when the profile makes
	// nonces mandatory.
	Nonces noncestore.Store

	// Logger receives verification outcomes at debug level. Defaults
	// to a no-op logger.
	Logger zerolog.Logger

	// Now overrides the clock for timestamp checks. Defaults to
	// time.Now.
	Now func() time.Time
}

// Verifier authenticates inbound requests. One Verifier is created at
// process start and shared by all request goroutines; the active
// profile sits behind an atomic pointer so Reload never exposes a
// half-updated policy to in-flight verifications.
type Verifier struct {
	active   atomic.Pointer[profile.Profile]
	registry Registry
	nonces   noncestore.Store
	logger   zerolog.Logger
	now      func() time.Time
}

// New validates the configuration and creates a Verifier.
func New(cfg Config) (*Verifier, error) {
	if cfg.Profile == nil {
		return nil, ErrNoProfile
	}

	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}

	if cfg.Registry == nil {
		return nil, ErrNoRegistry
	}

	if cfg.Profile.IncludeNonce && cfg.Nonces == nil {
		return nil, ErrNoNonceStore
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	v := &Verifier{
		registry: cfg.Registry,
		nonces:   cfg.Nonces,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	v.active.Store(cfg.Profile)

	return v, nil
}

// Profile returns the active profile.
func (v *Verifier) Profile() *profile.Profile { return v.active.Load() }

// Reload atomically replaces the active profile. In-flight
// verifications finish under the profile they started with.
func (v *Verifier) Reload(p *profile.Profile) error {
	if p == nil {
		return ErrNoProfile
	}

	if err := p.Validate(); err != nil {
		return err
	}

	if p.IncludeNonce && v.nonces == nil {
		return ErrNoNonceStore
	}

	v.active.Store(p)

	return nil
}

// Verify authenticates the request and returns the caller identity, or
// an *autherrors.Error naming the rejecting check. Every rejection is
// terminal for the request; nothing here retries.
func (v *Verifier) Verify(ctx context.Context, r *http.Request) (*Identity, error) {
	p := v.active.Load()

	// HeadersPresent: both headers must exist and carry the sig1 label.
	inputWire, ok := canonical.DictMember(r.Header.Get("Signature-Input"), Label)
	if !ok {
		return nil, autherrors.New(autherrors.CodeMissingHeaders, "signature-input header with sig1 label required")
	}

	sigValue, ok := canonical.DictMember(r.Header.Get("Signature"), Label)
	if !ok {
		return nil, autherrors.New(autherrors.CodeMissingHeaders, "signature header with sig1 label required")
	}

	// ParseSignatureInput.
	in, err := canonical.ParseInput(inputWire)
	if err != nil {
		return nil, autherrors.Wrap(autherrors.CodeInvalidSignatureFormat, "parsing signature-input", err)
	}

	for _, required := range p.RequiredComponents {
		if !slices.Contains(in.Components, required) {
			return nil, autherrors.Newf(autherrors.CodeInvalidSignatureFormat,
				"signature does not cover required component %s", required)
		}
	}

	// A digest header that is not itself signed binds nothing: the
	// sender of a tampered body can recompute it freely.
	if p.IncludeContentDigest && !slices.Contains(in.Components, canonical.Header("content-digest")) {
		return nil, autherrors.New(autherrors.CodeInvalidSignatureFormat,
			"signature does not cover content-digest")
	}

	// AlgorithmSupported.
	if in.Params.Alg != canonical.AlgorithmEd25519 {
		return nil, autherrors.Newf(autherrors.CodeUnsupportedAlgorithm, "algorithm %q not supported", in.Params.Alg)
	}

	// KeyLookup: the only step that may suspend.
	if in.Params.KeyID == "" {
		return nil, autherrors.New(autherrors.CodePublicKeyLookupFailed, "keyid parameter required")
	}

	record, err := v.registry.Lookup(ctx, in.Params.KeyID)
	if err != nil {
		return nil, autherrors.Wrap(autherrors.CodePublicKeyLookupFailed, "resolving keyid "+in.Params.KeyID, err)
	}

	if record.Status != KeyStatusActive {
		return nil, autherrors.Newf(autherrors.CodePublicKeyLookupFailed, "key %s is not active", in.Params.KeyID)
	}

	// RebuildCanonical, from the parsed component list against the
	// request as actually received.
	base, _, err := canonical.Build(r, in)
	if err != nil {
		return nil, autherrors.Wrap(autherrors.CodeInvalidSignatureFormat, "rebuilding canonical message", err)
	}

	if p.IncludeContentDigest {
		if err := v.checkContentDigest(r); err != nil {
			return nil, err
		}
	}

	// SignatureValid.
	sig, err := canonical.DecodeByteSequence(sigValue)
	if err != nil {
		return nil, autherrors.Wrap(autherrors.CodeInvalidSignatureFormat, "decoding signature value", err)
	}

	if !ed25519.Verify(record.PublicKey, base, sig) {
		return nil, autherrors.New(autherrors.CodeSignatureVerificationFailed, "signature does not match canonical message")
	}

	// TimestampValid.
	now := v.now()

	if p.IncludeTimestamp {
		if err := checkTimestamp(in.Params.Created, now, p); err != nil {
			return nil, err
		}
	}

	// NonceFresh.
	if p.IncludeNonce {
		if err := v.checkNonce(ctx, in.Params.Nonce, in.Params.Created, now, p); err != nil {
			return nil, err
		}
	}

	identity := &Identity{
		ClientID: r.Header.Get("X-Client-Id"),
		UserID:   r.Header.Get("X-User-Id"),
		KeyID:    in.Params.KeyID,
	}
	if identity.ClientID == "" {
		identity.ClientID = in.Params.KeyID
	}

	v.logger.Debug().
		Str("client_id", identity.ClientID).
		Str("key_id", identity.KeyID).
		Str("profile", p.Name).
		Msg("request authenticated")

	return identity, nil
}

// checkContentDigest verifies the covered content-digest header against
// the received body. A missing or unparseable header is a format
// failure; a mismatch means the body was tampered with after signing.
func (v *Verifier) checkContentDigest(r *http.Request) error {
	header := r.Header.Get("Content-Digest")
	if header == "" {
		return autherrors.New(autherrors.CodeInvalidSignatureFormat, "content-digest header required by profile")
	}

	body, err := canonical.ReadBody(r)
	if err != nil {
		return autherrors.Wrap(autherrors.CodeInvalidSignatureFormat, "reading request body", err)
	}

	if err := canonical.VerifyContentDigest(header, body); err != nil {
		if errors.Is(err, canonical.ErrDigestMismatch) {
			return autherrors.Wrap(autherrors.CodeSignatureVerificationFailed, "content digest does not match body", err)
		}

		return autherrors.Wrap(autherrors.CodeInvalidSignatureFormat, "content-digest header", err)
	}

	return nil
}

// checkTimestamp enforces the profile's skew window
// [now - past, now + future] on the created parameter.
func checkTimestamp(created, now time.Time, p *profile.Profile) error {
	if created.IsZero() {
		return autherrors.New(autherrors.CodeTimestampValidationFailed, "created parameter required by profile")
	}

	if created.Before(now.Add(-p.MaxClockSkewPast)) || created.After(now.Add(p.MaxClockSkewFuture)) {
		return autherrors.Newf(autherrors.CodeTimestampValidationFailed,
			"created=%d outside window, now=%d past=%s future=%s",
			created.Unix(), now.Unix(), p.MaxClockSkewPast, p.MaxClockSkewFuture)
	}

	return nil
}

// checkNonce validates the nonce format and consumes it in the replay
// store. Store infrastructure failures surface as configuration errors
// rather than nonce rejections: a broken store is an operator fault,
// not evidence of replay.
func (v *Verifier) checkNonce(ctx context.Context, nonce string, created, now time.Time, p *profile.Profile) error {
	if nonce == "" {
		return autherrors.New(autherrors.CodeNonceValidationFailed, "nonce parameter required by profile")
	}

	if err := p.ValidateNonce(nonce); err != nil {
		return autherrors.Wrap(autherrors.CodeNonceValidationFailed, "nonce format", err)
	}

	acceptedAt := created
	if acceptedAt.IsZero() {
		acceptedAt = now
	}

	if err := v.nonces.CheckAndStore(ctx, nonce, acceptedAt); err != nil {
		if errors.Is(err, noncestore.ErrAlreadySeen) || errors.Is(err, noncestore.ErrMalformedNonce) {
			return autherrors.Wrap(autherrors.CodeNonceValidationFailed, "nonce rejected by replay store", err)
		}

		return autherrors.Wrap(autherrors.CodeConfigurationError, "nonce store unavailable", err)
	}

	return nil
}

package signer

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"

	"github.com/praxos/signet/autherrors"
	"github.com/praxos/signet/canonical"
	"github.com/praxos/signet/profile"
)

// Label is the signature label written to the dictionary headers.
const Label = "sig1"

var (
	// ErrInvalidKey is returned by New for key material of the wrong
	// size.
	ErrInvalidKey = errors.New("signer: ed25519 private key must be 64 bytes")

	// ErrNoProfile is returned by New when Config.Profile is nil.
	ErrNoProfile = errors.New("signer: profile must not be nil")

	// ErrNoClientID is returned by New when Config.ClientID is empty.
	ErrNoClientID = errors.New("signer: client id must not be empty")
)

// Config configures a Signer.
type Config struct {
	// Key is the Ed25519 private key. Required.
	Key ed25519.PrivateKey

	// KeyID names the key to the verifier's registry. Defaults to
	// ClientID.
	KeyID string

	// ClientID identifies the calling client; written as x-client-id.
	// Required.
	ClientID string

	// UserID, when set, is written as x-user-id.
	UserID string

	// Profile is the security policy to sign under. Required; must
	// validate.
	Profile *profile.Profile

	// Now overrides the clock for the created parameter. Defaults to
	// time.Now.
	Now func() time.Time

	// NewNonce overrides nonce generation. Defaults to a fresh UUID v4
	// per request.
	NewNonce func() string
}

// Signer signs outgoing requests under a fixed profile and key.
type Signer struct {
	cfg Config
}

// New validates the configuration and creates a Signer.
func New(cfg Config) (*Signer, error) {
	if len(cfg.Key) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKey
	}

	if cfg.ClientID == "" {
		return nil, ErrNoClientID
	}

	if cfg.Profile == nil {
		return nil, ErrNoProfile
	}

	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}

	if cfg.KeyID == "" {
		cfg.KeyID = cfg.ClientID
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.NewNonce == nil {
		cfg.NewNonce = func() string { return uuid.New().String() }
	}

	return &Signer{cfg: cfg}, nil
}

// Sign signs the request in place: it computes the covered components,
// optionally binds a content digest, builds and signs the canonical
// message, and writes the signature and identity headers. Headers are
// staged and applied only once signing succeeds, so an error leaves
// the request exactly as it came in.
func (s *Signer) Sign(r *http.Request) error {
	p := s.cfg.Profile

	components := slices.Clone(p.RequiredComponents)

	if r.URL != nil && r.URL.RawQuery != "" && !slices.Contains(components, canonical.Query()) {
		components = append(components, canonical.Query())
	}

	body, err := canonical.ReadBody(r)
	if err != nil {
		return autherrors.Wrap(autherrors.CodeInvalidRequest, "reading request body", err)
	}

	if len(body) > 0 && !slices.Contains(components, canonical.Header("content-type")) {
		components = append(components, canonical.Header("content-type"))
	}

	staged := make(http.Header)

	if p.IncludeContentDigest {
		if int64(len(body)) > p.MaxBodySize {
			return autherrors.Newf(autherrors.CodeInvalidRequest,
				"body of %d bytes exceeds profile limit of %d", len(body), p.MaxBodySize)
		}

		staged.Set("Content-Digest", canonical.ContentDigest(body))

		if !slices.Contains(components, canonical.Header("content-digest")) {
			components = append(components, canonical.Header("content-digest"))
		}
	}

	params := canonical.Parameters{
		Alg:   canonical.AlgorithmEd25519,
		KeyID: s.cfg.KeyID,
	}

	if p.IncludeTimestamp {
		params.Created = s.cfg.Now()
	}

	if p.IncludeNonce {
		params.Nonce = s.cfg.NewNonce()
	}

	// Identity headers are staged before the canonical build so a
	// profile may cover them.
	if err := stageHeader(staged, "X-Client-Id", s.cfg.ClientID); err != nil {
		return err
	}

	if s.cfg.UserID != "" {
		if err := stageHeader(staged, "X-User-Id", s.cfg.UserID); err != nil {
			return err
		}
	}

	in := canonical.Input{Components: components, Params: params}

	// The canonical build sees the staged headers through a header-only
	// copy of the request.
	view := new(http.Request)
	*view = *r
	view.Header = r.Header.Clone()
	for name, values := range staged {
		view.Header[name] = values
	}

	base, wire, err := canonical.Build(view, in)
	if err != nil {
		return autherrors.Wrap(autherrors.CodeInvalidRequest, "building canonical message", err)
	}

	sig, err := s.cfg.Key.Sign(rand.Reader, base, crypto.Hash(0))
	if err != nil {
		return autherrors.Wrap(autherrors.CodeSignatureGeneration, "ed25519 signing failed", err)
	}

	for name, values := range staged {
		r.Header[name] = values
	}

	r.Header.Set("Signature-Input", Label+"="+wire)
	r.Header.Set("Signature", fmt.Sprintf("%s=:%s:", Label, base64.StdEncoding.EncodeToString(sig)))

	return nil
}

// stageHeader records a header value after checking it is valid for
// transport: no non-ASCII bytes, no embedded control characters.
func stageHeader(h http.Header, name, value string) error {
	if !httpguts.ValidHeaderFieldValue(value) || !isASCII(value) {
		return autherrors.Newf(autherrors.CodeHTTPHeader, "value for %s is not a valid header value", name)
	}

	h.Set(name, value)

	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}

	return true
}

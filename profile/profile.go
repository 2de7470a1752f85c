package profile

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/praxos/signet/canonical"
)

var (
	// ErrUnknownProfile is returned by ByName for a name outside
	// strict, standard, and lenient.
	ErrUnknownProfile = errors.New("profile: unknown profile name")

	// ErrInvalidProfile is returned by Validate for an inconsistent
	// profile.
	ErrInvalidProfile = errors.New("profile: invalid profile")

	// ErrNonceFormat is returned by ValidateNonce when a nonce violates
	// the profile's format rule.
	ErrNonceFormat = errors.New("profile: nonce violates format rule")
)

// NonceFormat constrains the shape of accepted nonces.
type NonceFormat string

const (
	// NonceUUID4 accepts only UUID version 4 strings.
	NonceUUID4 NonceFormat = "uuid4"

	// NonceOpaque accepts free-form strings within the profile's length
	// bounds.
	NonceOpaque NonceFormat = "opaque"
)

// Profile is the concrete signature-auth policy. Treat values as
// read-only after construction; the verifier swaps whole profiles
// atomically on reload.
type Profile struct {
	// Name is the profile this configuration started from.
	Name string

	// RequiredComponents lists the components every signature must
	// cover, in canonical order. The signer signs exactly these (plus
	// the contextual additions); the verifier rejects signatures that
	// omit any of them.
	RequiredComponents []canonical.Component

	// IncludeContentDigest binds a SHA-256 digest of the body into the
	// signature.
	IncludeContentDigest bool

	// IncludeTimestamp makes the created parameter mandatory and
	// enforces the skew window on verify.
	IncludeTimestamp bool

	// IncludeNonce makes the nonce parameter mandatory and enforces
	// single use through the replay store.
	IncludeNonce bool

	// MaxBodySize is the largest body, in bytes, eligible for
	// digesting.
	MaxBodySize int64

	// MaxClockSkewPast and MaxClockSkewFuture bound the accepted
	// created window: [now - past, now + future].
	MaxClockSkewPast   time.Duration
	MaxClockSkewFuture time.Duration

	// NonceFormat selects the nonce format rule. MinNonceLength and
	// MaxNonceLength bound opaque nonces.
	NonceFormat    NonceFormat
	MinNonceLength int
	MaxNonceLength int

	// NonceCapacity caps the replay store. When full, the oldest entry
	// is evicted to admit a new one.
	NonceCapacity int
}

// Strict is the tightest policy: five covered components, mandatory
// digest, timestamp, and UUID v4 nonce, and a near-zero skew window.
func Strict() *Profile {
	return &Profile{
		Name: "strict",
		RequiredComponents: []canonical.Component{
			canonical.Method(),
			canonical.TargetURI(),
			canonical.Authority(),
			canonical.Scheme(),
			canonical.Path(),
		},
		IncludeContentDigest: true,
		IncludeTimestamp:     true,
		IncludeNonce:         true,
		MaxBodySize:          1 << 20,
		MaxClockSkewPast:     2 * time.Second,
		MaxClockSkewFuture:   2 * time.Second,
		NonceFormat:          NonceUUID4,
		MinNonceLength:       36,
		MaxNonceLength:       36,
		NonceCapacity:        50000,
	}
}

// Standard is the default policy for service-to-service traffic.
func Standard() *Profile {
	return &Profile{
		Name: "standard",
		RequiredComponents: []canonical.Component{
			canonical.Method(),
			canonical.TargetURI(),
		},
		IncludeContentDigest: true,
		IncludeTimestamp:     true,
		IncludeNonce:         true,
		MaxBodySize:          4 << 20,
		MaxClockSkewPast:     120 * time.Second,
		MaxClockSkewFuture:   60 * time.Second,
		NonceFormat:          NonceOpaque,
		MinNonceLength:       8,
		MaxNonceLength:       256,
		NonceCapacity:        100000,
	}
}

// Lenient covers only the method and skips digest and nonce. Meant for
// development and migration traffic, not production.
func Lenient() *Profile {
	return &Profile{
		Name: "lenient",
		RequiredComponents: []canonical.Component{
			canonical.Method(),
		},
		IncludeTimestamp:   true,
		MaxBodySize:        16 << 20,
		MaxClockSkewPast:   600 * time.Second,
		MaxClockSkewFuture: 300 * time.Second,
		NonceFormat:        NonceOpaque,
		MinNonceLength:     1,
		MaxNonceLength:     512,
		NonceCapacity:      200000,
	}
}

// ByName returns a fresh profile for "strict", "standard", or
// "lenient".
func ByName(name string) (*Profile, error) {
	switch name {
	case "strict":
		return Strict(), nil
	case "standard":
		return Standard(), nil
	case "lenient":
		return Lenient(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
}

// Validate rejects inconsistent profiles. A profile that fails
// validation must not be installed; the verifier surfaces this as a
// configuration error.
func (p *Profile) Validate() error {
	if len(p.RequiredComponents) == 0 {
		return fmt.Errorf("%w: required components must not be empty", ErrInvalidProfile)
	}

	if p.MaxBodySize <= 0 {
		return fmt.Errorf("%w: max body size must be positive", ErrInvalidProfile)
	}

	if p.MaxClockSkewPast < 0 || p.MaxClockSkewFuture < 0 {
		return fmt.Errorf("%w: clock skew must not be negative", ErrInvalidProfile)
	}

	if p.IncludeNonce {
		if p.NonceCapacity <= 0 {
			return fmt.Errorf("%w: nonce required with zero store capacity", ErrInvalidProfile)
		}

		switch p.NonceFormat {
		case NonceUUID4:
		case NonceOpaque:
			if p.MinNonceLength <= 0 || p.MaxNonceLength < p.MinNonceLength {
				return fmt.Errorf("%w: opaque nonce length bounds %d..%d", ErrInvalidProfile, p.MinNonceLength, p.MaxNonceLength)
			}
		default:
			return fmt.Errorf("%w: unknown nonce format %q", ErrInvalidProfile, p.NonceFormat)
		}
	}

	return nil
}

// ValidateNonce checks a nonce against the profile's format rule.
func (p *Profile) ValidateNonce(nonce string) error {
	switch p.NonceFormat {
	case NonceUUID4:
		id, err := uuid.Parse(nonce)
		if err != nil || id.Version() != 4 || id.Variant() != uuid.RFC4122 {
			return fmt.Errorf("%w: UUID v4 required", ErrNonceFormat)
		}

		return nil

	case NonceOpaque:
		if len(nonce) < p.MinNonceLength || len(nonce) > p.MaxNonceLength {
			return fmt.Errorf("%w: length outside %d..%d", ErrNonceFormat, p.MinNonceLength, p.MaxNonceLength)
		}

		return nil

	default:
		return fmt.Errorf("%w: unknown nonce format %q", ErrNonceFormat, p.NonceFormat)
	}
}

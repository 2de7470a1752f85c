package noncestore

import (
	"context"
	"errors"
	"time"
)

// maxNonceBytes bounds the size of any stored nonce, independent of
// profile rules. Oversized nonces are rejected before touching the
// store.
const maxNonceBytes = 512

var (
	// ErrAlreadySeen is returned when the nonce was consumed by an
	// earlier request.
	ErrAlreadySeen = errors.New("noncestore: nonce already seen")

	// ErrMalformedNonce is returned for empty or oversized nonces.
	ErrMalformedNonce = errors.New("noncestore: malformed nonce")
)

// Store is the replay-prevention record. Implementations must make
// CheckAndStore atomic: the check-then-insert sequence is indivisible,
// so caller cancellation can never leave a half-applied entry.
type Store interface {
	// CheckAndStore records the nonce as consumed at acceptedAt. It
	// returns nil exactly once per nonce; later calls with the same
	// nonce return ErrAlreadySeen.
	CheckAndStore(ctx context.Context, nonce string, acceptedAt time.Time) error

	// Stats returns a read-only snapshot for observability.
	Stats(ctx context.Context) (Stats, error)
}

// Stats is a point-in-time snapshot of a store.
type Stats struct {
	// TotalNonces is the number of recorded entries.
	TotalNonces int

	// MaxCapacity is the configured entry ceiling.
	MaxCapacity int

	// OldestAge is the age of the oldest recorded entry. Nil when the
	// store is empty.
	OldestAge *time.Duration
}

// checkNonce applies the store-level format floor shared by all
// implementations.
func checkNonce(nonce string) error {
	if nonce == "" {
		return ErrMalformedNonce
	}

	if len(nonce) > maxNonceBytes {
		return ErrMalformedNonce
	}

	return nil
}

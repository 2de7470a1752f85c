package verifier

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrKeyNotFound is returned by Registry.Lookup for an unknown key
	// ID.
	ErrKeyNotFound = errors.New("verifier: key not found")

	// ErrInvalidPublicKey is returned when key material of the wrong
	// size is registered.
	ErrInvalidPublicKey = errors.New("verifier: ed25519 public key must be 32 bytes")
)

// KeyStatus is the lifecycle state of a registered key. Only active
// keys verify; issuance, rotation, and revocation propagation live in
// the external key-management subsystem.
type KeyStatus string

const (
	// KeyStatusActive keys may verify signatures.
	KeyStatusActive KeyStatus = "active"

	// KeyStatusRevoked keys are rejected as if unknown.
	KeyStatusRevoked KeyStatus = "revoked"
)

// KeyRecord is the resolved public key for one key ID.
type KeyRecord struct {
	PublicKey ed25519.PublicKey
	Status    KeyStatus
}

// Registry resolves key IDs to public keys. This is the single read
// interface the verifier has into the external key-management
// subsystem; the lookup may reach over the network and is the only
// suspension point in the verification pipeline.
type Registry interface {
	// Lookup resolves a key ID, returning ErrKeyNotFound (possibly
	// wrapped) for unknown IDs.
	Lookup(ctx context.Context, keyID string) (KeyRecord, error)
}

// StaticRegistry is an in-process Registry for tests and single-binary
// deployments. Safe for concurrent use.
type StaticRegistry struct {
	mu   sync.RWMutex
	keys map[string]KeyRecord
}

// NewStaticRegistry creates an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{keys: make(map[string]KeyRecord)}
}

// Register adds or replaces a key as active.
func (r *StaticRegistry) Register(keyID string, key ed25519.PublicKey) error {
	if len(key) != ed25519.PublicKeySize {
		return ErrInvalidPublicKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.keys[keyID] = KeyRecord{PublicKey: key, Status: KeyStatusActive}

	return nil
}

// SetStatus changes the lifecycle state of a registered key.
func (r *StaticRegistry) SetStatus(keyID string, status KeyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.keys[keyID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, keyID)
	}

	record.Status = status
	r.keys[keyID] = record

	return nil
}

// Remove deletes a key. Removing an unknown key is a no-op.
func (r *StaticRegistry) Remove(keyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.keys, keyID)
}

// Lookup implements Registry.
func (r *StaticRegistry) Lookup(_ context.Context, keyID string) (KeyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.keys[keyID]
	if !ok {
		return KeyRecord{}, fmt.Errorf("%w: %q", ErrKeyNotFound, keyID)
	}

	return record, nil
}

// Package noncestore records consumed nonces so a signed request can
// never be accepted twice. The store keeps a bounded mapping of nonce
// to acceptance time; CheckAndStore is the single entry point and is
// atomic: under concurrent calls with the identical nonce exactly one
// call succeeds and every other call reports ErrAlreadySeen. That
// at-most-once property is the replay guarantee of the whole scheme.
//
// Nonce uniqueness is scoped to the store instance, across all key
// IDs sharing it. Deployments wanting per-key replay scopes run one
// store per key.
//
// Two implementations are provided. Memory keeps everything in process
// behind a single mutex with oldest-first eviction at capacity; state
// is deliberately lost on restart, so replay protection restarts with
// no history rather than trusting stale disk state. Redis shares one
// replay history between processes by running the check-and-store
// sequence as a single Lua script.
package noncestore

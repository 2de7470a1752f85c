// Package ratelimit provides the request-budget check consumed by the
// verification middleware. Limiting is fixed-window: each key gets a
// counter that resets when its window ends, and a request is allowed
// while the counter is below the limit.
//
// The middleware keys limits by client ID, so a misbehaving or
// compromised client exhausts its own budget without affecting others.
package ratelimit

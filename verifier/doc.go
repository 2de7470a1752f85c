// Package verifier authenticates inbound HTTP requests signed by
// package signer. Verification is an explicit state machine: header
// presence, signature-input parsing, algorithm check, key lookup
// through the Registry, canonical-message rebuild, signature check,
// timestamp window, and nonce freshness, each rejecting with its own
// error code. The first failing check is terminal for the request.
//
// A Verifier is shared process-wide: it is stateless per request apart
// from nonce-store mutation, which the store serializes itself. The
// active security profile sits behind an atomic pointer, so Reload is
// safe while requests are in flight.
//
// Middleware wraps an http.Handler with rate limiting, verification,
// and identity propagation:
//
//	v, err := verifier.New(verifier.Config{
//	    Profile:  profile.Standard(),
//	    Registry: registry,
//	    Nonces:   noncestore.NewMemory(noncestore.MemoryConfig{}),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	protect, err := verifier.Middleware(verifier.MiddlewareConfig{Verifier: v})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	http.Handle("/api/", protect(apiHandler))
//
// Handlers read the authenticated caller with IdentityFromContext.
package verifier

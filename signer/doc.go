// Package signer produces signed HTTP requests. Sign builds the
// covered-component list from the active security profile plus the
// request's own context, binds an optional content digest of the body,
// constructs the canonical message, signs it with the client's Ed25519
// key, and injects the signature-input, signature, content-digest, and
// client-identity headers into the outgoing request.
//
// A Signer holds no shared mutable state: it is safe for concurrent
// use by any number of goroutines without synchronization.
//
// For transparent signing of all requests made by an *http.Client, wrap
// its transport:
//
//	s, err := signer.New(signer.Config{
//	    Key:      privateKey,
//	    KeyID:    "client-abc",
//	    ClientID: "client-abc",
//	    Profile:  profile.Standard(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := &http.Client{Transport: signer.NewTransport(nil, s)}
package signer

// Package canonical builds the deterministic byte representation of an
// HTTP request that is signed by clients and rebuilt by servers for
// verification. The construction follows the RFC 9421 signature-base
// shape with RFC 8941 structured-field serialization.
//
// # Canonical Message
//
// A canonical message is one line per covered component, in order,
// followed by a final "@signature-params" line carrying the serialized
// signature input:
//
//	"@method": POST
//	"@target-uri": https://api.example.com/api/schemas
//	"content-type": application/json
//	"@signature-params": ("@method" "@target-uri" "content-type");created="1718000000";keyid="client-abc";alg="ed25519";nonce="3fa3..."
//
// Lines are newline-joined with no trailing newline. Both sides must
// produce identical bytes: the builder performs no normalization beyond
// what the component definitions state, so any divergence between
// signer and verifier (header casing aside, which is handled) surfaces
// as a signature mismatch rather than being papered over.
//
// # Components
//
// Component is a closed type: the derived components @method,
// @target-uri, @authority, @scheme, @path, and @query, plus header
// components carrying a lower-cased field name. Covering a header makes
// it mandatory; building against a request that lacks the header fails
// with ErrHeaderNotPresent.
package canonical

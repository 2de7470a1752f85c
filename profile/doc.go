// Package profile defines the declarative security policy consumed by
// the signet signer and verifier. A profile bundles the policy
// constants of the scheme: which components every signature must
// cover, whether content digest, timestamp, and nonce are mandatory,
// the body-size ceiling for digesting, the permitted clock skew, the
// nonce format rule, and the replay-store capacity.
//
// Three named profiles are built in — Strict, Standard, and Lenient —
// ordered from tightest to loosest policy. Profiles can also be loaded
// from a YAML file (LoadFile) or from SIGNET_* environment variables
// (FromEnv), both starting from a named profile and applying per-field
// overrides.
//
// Profiles are immutable by convention: constructors return fresh
// values and nothing in this module mutates a profile after
// construction. Hot reload swaps the whole value atomically on the
// verifier rather than mutating fields in place.
package profile

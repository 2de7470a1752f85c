// Package autherrors defines the error taxonomy shared by the signet
// signer and verifier. Every rejection is an *Error carrying a stable
// machine-readable Code and a correlation ID for tracing, and is the
// sole error type crossing component boundaries.
//
// Verification failures are terminal for the request; no retries happen
// inside the verifier. ConfigurationError is the only code that marks
// an operator fault rather than a client fault and maps to a 500.
//
// Production responses expose only the code and correlation ID; the
// Detail field and troubleshooting links are development-mode material
// and must never reach production clients.
package autherrors

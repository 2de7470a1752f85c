package canonical

import "errors"

var (
	// ErrUnknownComponent is returned when a component identifier is not
	// part of the supported derived set and is not a valid header field
	// name.
	ErrUnknownComponent = errors.New("canonical: unknown component identifier")

	// ErrHeaderNotPresent is returned when a covered header component is
	// absent from the request. Covering a header makes it mandatory.
	ErrHeaderNotPresent = errors.New("canonical: covered header not present")

	// ErrMalformedInput is returned when a signature-input wire string
	// or byte sequence cannot be parsed.
	ErrMalformedInput = errors.New("canonical: malformed signature input")
)

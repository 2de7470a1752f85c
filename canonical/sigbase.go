package canonical

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Parameters holds the signature parameters rendered into the
// "@signature-params" line. Alg is always "ed25519" in this scheme;
// the remaining fields are optional and their zero values mean absent.
type Parameters struct {
	// Alg is the signature algorithm identifier.
	Alg string

	// Created is the signature creation time, carried as unix seconds.
	Created time.Time

	// Expires is the signature expiration time, carried as unix seconds.
	Expires time.Time

	// Nonce is the single-use replay token.
	Nonce string

	// KeyID identifies the signing key to the verifier's registry.
	KeyID string
}

// Input pairs the ordered covered components with the signature
// parameters. It is created fresh per signed request and never reused.
type Input struct {
	Components []Component
	Params     Parameters

	// raw preserves the wire text the input was parsed from, so
	// verification rebuilds the signed "@signature-params" line from
	// the received bytes rather than from a re-serialization.
	raw string
}

// Serialize renders the input in wire form: the quoted component
// identifiers as a parenthesized inner list, then ;name="value"
// parameters. Every parameter value is quoted, including the integer
// timestamps.
func (in Input) Serialize() string {
	var b strings.Builder

	b.WriteByte('(')
	for i, c := range in.Components {
		if i > 0 {
			b.WriteByte(' ')
		}

		b.WriteString(strconv.Quote(c.String()))
	}
	b.WriteByte(')')

	if !in.Params.Created.IsZero() {
		fmt.Fprintf(&b, `;created="%d"`, in.Params.Created.Unix())
	}

	if in.Params.KeyID != "" {
		b.WriteString(";keyid=")
		b.WriteString(quoteRFC8941(in.Params.KeyID))
	}

	if in.Params.Alg != "" {
		b.WriteString(";alg=")
		b.WriteString(quoteRFC8941(in.Params.Alg))
	}

	if in.Params.Nonce != "" {
		b.WriteString(";nonce=")
		b.WriteString(quoteRFC8941(in.Params.Nonce))
	}

	if !in.Params.Expires.IsZero() {
		fmt.Fprintf(&b, `;expires="%d"`, in.Params.Expires.Unix())
	}

	return b.String()
}

// wireText returns the parameter text embedded in the canonical
// message: the received bytes for parsed inputs, a fresh serialization
// otherwise.
func (in Input) wireText() string {
	if in.raw != "" {
		return in.raw
	}

	return in.Serialize()
}

// ParseInput parses the wire form produced by Serialize. The component
// list must open the string; parameters follow in any order, with
// integer values accepted quoted or bare. Unknown parameters are
// ignored. Missing alg or keyid values do not fail the parse — their
// checks belong to later verification steps.
func ParseInput(raw string) (Input, error) {
	closeParen := strings.IndexByte(raw, ')')
	if len(raw) == 0 || raw[0] != '(' || closeParen < 0 {
		return Input{}, fmt.Errorf("%w: missing component list", ErrMalformedInput)
	}

	in := Input{raw: raw}

	ids, err := parseInnerList(raw[1:closeParen])
	if err != nil {
		return Input{}, err
	}

	for _, id := range ids {
		c, err := Parse(id)
		if err != nil {
			return Input{}, err
		}

		in.Components = append(in.Components, c)
	}

	for _, part := range splitParams(raw[closeParen+1:]) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}

		switch key {
		case "created":
			t, err := parseUnixParam(value)
			if err != nil {
				return Input{}, fmt.Errorf("%w: invalid created timestamp", ErrMalformedInput)
			}

			in.Params.Created = t

		case "expires":
			t, err := parseUnixParam(value)
			if err != nil {
				return Input{}, fmt.Errorf("%w: invalid expires timestamp", ErrMalformedInput)
			}

			in.Params.Expires = t

		case "nonce":
			in.Params.Nonce = unquote(value)

		case "alg":
			in.Params.Alg = unquote(value)

		case "keyid":
			in.Params.KeyID = unquote(value)
		}
	}

	return in, nil
}

// parseUnixParam parses a unix-seconds parameter value, quoted or bare.
func parseUnixParam(value string) (time.Time, error) {
	ts, err := strconv.ParseInt(unquote(value), 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(ts, 0), nil
}

// Build constructs the canonical message for the request: one line
// `"<component>": <value>` per covered component, in order, then a
// final `"@signature-params": <wire input>` line. Lines are
// newline-joined with no trailing newline. The wire input text is also
// returned so callers write the exact signed bytes into the
// signature-input header.
func Build(r *http.Request, in Input) ([]byte, string, error) {
	var base strings.Builder

	for _, c := range in.Components {
		val, err := componentValue(c, r)
		if err != nil {
			return nil, "", err
		}

		fmt.Fprintf(&base, "%q: %s\n", c.String(), val)
	}

	wire := in.wireText()
	fmt.Fprintf(&base, "\"@signature-params\": %s", wire)

	return []byte(base.String()), wire, nil
}

// parseInnerList parses a space-separated list of quoted strings inside
// the parentheses of an inner list. An unterminated quoted string fails
// the parse.
func parseInnerList(s string) ([]string, error) {
	var items []string

	for s = strings.TrimLeft(s, " "); len(s) > 0; s = strings.TrimLeft(s, " ") {
		if s[0] == '"' {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated quoted string in component list", ErrMalformedInput)
			}

			items = append(items, s[1:end+1])
			s = s[end+2:]

			continue
		}

		end := strings.IndexByte(s, ' ')
		if end < 0 {
			items = append(items, s)
			break
		}

		items = append(items, s[:end])
		s = s[end+1:]
	}

	return items, nil
}

// splitParams splits ";key=value" parameter pairs.
func splitParams(s string) []string {
	s = strings.TrimLeft(s, " ")
	if s == "" {
		return nil
	}

	return splitQuoteAware(s, ';')
}

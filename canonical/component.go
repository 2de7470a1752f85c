package canonical

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// AlgorithmEd25519 is the only signature algorithm of this scheme.
const AlgorithmEd25519 = "ed25519"

// Wire identifiers for derived components per RFC 9421 Section 2.2.
const (
	idMethod    = "@method"
	idTargetURI = "@target-uri"
	idAuthority = "@authority"
	idScheme    = "@scheme"
	idPath      = "@path"
	idQuery     = "@query"
)

type componentKind uint8

const (
	kindInvalid componentKind = iota
	kindMethod
	kindTargetURI
	kindAuthority
	kindScheme
	kindPath
	kindQuery
	kindHeader
)

// Component identifies one piece of request context covered by a
// signature. The derived set is closed; header components carry a
// lower-cased field name. Components are comparable values, and
// ordering within a component list is significant end-to-end. The zero
// value is not a valid component.
type Component struct {
	kind componentKind
	name string
}

// Method covers the upper-cased HTTP method.
func Method() Component { return Component{kind: kindMethod} }

// TargetURI covers the full absolute request URI.
func TargetURI() Component { return Component{kind: kindTargetURI} }

// Authority covers the request host, with default ports stripped.
func Authority() Component { return Component{kind: kindAuthority} }

// Scheme covers the lower-cased URI scheme.
func Scheme() Component { return Component{kind: kindScheme} }

// Path covers the URI path only.
func Path() Component { return Component{kind: kindPath} }

// Query covers the raw query string without the leading "?".
func Query() Component { return Component{kind: kindQuery} }

// Header covers a single header field, looked up case-insensitively.
func Header(name string) Component {
	return Component{kind: kindHeader, name: strings.ToLower(name)}
}

// Parse converts a wire identifier into a Component. Identifiers
// starting with "@" must belong to the supported derived set; anything
// else is treated as a header field name and must be valid per RFC
// 9110.
func Parse(id string) (Component, error) {
	switch id {
	case idMethod:
		return Method(), nil
	case idTargetURI:
		return TargetURI(), nil
	case idAuthority:
		return Authority(), nil
	case idScheme:
		return Scheme(), nil
	case idPath:
		return Path(), nil
	case idQuery:
		return Query(), nil
	}

	if strings.HasPrefix(id, "@") {
		return Component{}, fmt.Errorf("%w: %s", ErrUnknownComponent, id)
	}

	if !httpguts.ValidHeaderFieldName(id) {
		return Component{}, fmt.Errorf("%w: invalid header field name %q", ErrUnknownComponent, id)
	}

	return Header(id), nil
}

// String returns the wire identifier: "@method" style for derived
// components, the lower-cased field name for headers. The zero value
// returns "".
func (c Component) String() string {
	switch c.kind {
	case kindMethod:
		return idMethod
	case kindTargetURI:
		return idTargetURI
	case kindAuthority:
		return idAuthority
	case kindScheme:
		return idScheme
	case kindPath:
		return idPath
	case kindQuery:
		return idQuery
	case kindHeader:
		return c.name
	default:
		return ""
	}
}

// componentValue extracts the value of a covered component from the
// request. No normalization is applied beyond what each component
// definition states: a construction difference between signer and
// verifier must surface as a signature mismatch.
func componentValue(c Component, r *http.Request) (string, error) {
	switch c.kind {
	case kindMethod:
		return strings.ToUpper(r.Method), nil

	case kindTargetURI:
		return targetURI(r), nil

	case kindAuthority:
		return authority(r), nil

	case kindScheme:
		return scheme(r), nil

	case kindPath:
		path := r.URL.Path
		if path == "" {
			path = "/"
		}

		return path, nil

	case kindQuery:
		return r.URL.RawQuery, nil

	case kindHeader:
		return headerValue(c.name, r)

	default:
		return "", fmt.Errorf("%w: zero component", ErrUnknownComponent)
	}
}

// headerValue extracts a header field value. Multiple values for the
// same field are joined with ", ".
//
// The "host" field is special-cased because net/http stores it in
// Request.Host rather than in the header map.
func headerValue(name string, r *http.Request) (string, error) {
	values := r.Header[http.CanonicalHeaderKey(name)]

	if len(values) == 0 && name == "host" && r.Host != "" {
		return r.Host, nil
	}

	if len(values) == 0 {
		return "", fmt.Errorf("%w: %q", ErrHeaderNotPresent, name)
	}

	return strings.Join(values, ", "), nil
}

// authority returns the request authority, lower-cased, keeping the
// port only when it is not the scheme default (80 for http, 443 for
// https).
func authority(r *http.Request) string {
	host := r.Host
	if host == "" && r.URL != nil {
		host = r.URL.Host
	}

	host = strings.ToLower(host)

	if h, port, err := net.SplitHostPort(host); err == nil {
		def := "80"
		if scheme(r) == "https" {
			def = "443"
		}

		if port == def {
			if strings.Contains(h, ":") {
				return "[" + h + "]"
			}

			return h
		}
	}

	return host
}

// scheme returns the request scheme (http or https).
func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}

	if r.URL != nil && r.URL.Scheme != "" {
		return strings.ToLower(r.URL.Scheme)
	}

	return "http"
}

// targetURI reconstructs the absolute request URI. Server-side requests
// carry an origin-form URL, so the URI is rebuilt from scheme,
// authority, path, and query; both sides must arrive at the same bytes.
func targetURI(r *http.Request) string {
	path := r.URL.Path
	if path == "" {
		path = "/"
	}

	uri := scheme(r) + "://" + authority(r) + path
	if r.URL.RawQuery != "" {
		uri += "?" + r.URL.RawQuery
	}

	return uri
}

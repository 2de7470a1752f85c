package canonical

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DictMember returns the value of the member with the given key in an
// RFC 8941 dictionary header value, such as the signature-input and
// signature headers. Splitting is quote-aware, so commas inside quoted
// strings do not separate members.
func DictMember(header, key string) (string, bool) {
	for _, entry := range splitQuoteAware(header, ',') {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}

		if strings.TrimSpace(k) == key {
			return strings.TrimSpace(v), true
		}
	}

	return "", false
}

// DecodeByteSequence decodes an RFC 8941 byte sequence: standard base64
// wrapped in colons.
func DecodeByteSequence(value string) ([]byte, error) {
	if len(value) < 2 || value[0] != ':' || value[len(value)-1] != ':' {
		return nil, fmt.Errorf("%w: value is not a byte sequence", ErrMalformedInput)
	}

	decoded, err := base64.StdEncoding.DecodeString(value[1 : len(value)-1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 in byte sequence", ErrMalformedInput)
	}

	return decoded, nil
}

// splitQuoteAware splits s on delim while respecting "..." quoted
// regions. Backslash-escaped quotes (\") inside quoted strings are
// handled. Each resulting part is trimmed of whitespace and empty parts
// are skipped.
func splitQuoteAware(s string, delim byte) []string {
	var result []string
	var part strings.Builder
	inQuote := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inQuote {
			if ch == '\\' && i+1 < len(s) {
				part.WriteByte(ch)
				i++
				part.WriteByte(s[i])
				continue
			}

			if ch == '"' {
				inQuote = false
			}

			part.WriteByte(ch)
			continue
		}

		if ch == '"' {
			inQuote = true
			part.WriteByte(ch)
			continue
		}

		if ch == delim {
			p := strings.TrimSpace(part.String())
			if p != "" {
				result = append(result, p)
			}

			part.Reset()
			continue
		}

		part.WriteByte(ch)
	}

	if p := strings.TrimSpace(part.String()); p != "" {
		result = append(result, p)
	}

	return result
}

// quoteRFC8941 produces an RFC 8941 quoted-string. Only backslash and
// double-quote are escaped (Section 3.3.3); no other escape sequences
// are permitted.
func quoteRFC8941(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\\' || ch == '"' {
			b.WriteByte('\\')
		}

		b.WriteByte(ch)
	}

	b.WriteByte('"')

	return b.String()
}

// unquote removes surrounding double quotes and unescapes RFC 8941
// escape sequences (\\ → \ and \" → "). Unquoted values pass through.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			b.WriteByte(s[i])

			continue
		}

		b.WriteByte(s[i])
	}

	return b.String()
}

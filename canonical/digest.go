package canonical

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// digestPrefix is the only supported content-digest algorithm entry.
const digestPrefix = "sha-256=:"

// ErrDigestMismatch is returned when a content-digest header does not
// match the body it claims to cover.
var ErrDigestMismatch = errors.New("canonical: content digest mismatch")

// ContentDigest renders the content-digest header value for a body:
// "sha-256=:<base64 SHA-256>:". A nil body digests the empty byte
// sequence.
func ContentDigest(body []byte) string {
	sum := sha256.Sum256(body)

	return digestPrefix + base64.StdEncoding.EncodeToString(sum[:]) + ":"
}

// VerifyContentDigest checks a content-digest header value against the
// body. The comparison is constant-time. Unparseable values and
// unsupported algorithms report ErrMalformedInput; a well-formed value
// that does not match reports ErrDigestMismatch.
func VerifyContentDigest(header string, body []byte) error {
	value, ok := strings.CutPrefix(strings.TrimSpace(header), digestPrefix)
	if !ok || !strings.HasSuffix(value, ":") {
		return fmt.Errorf("%w: unsupported content-digest value", ErrMalformedInput)
	}

	claimed, err := base64.StdEncoding.DecodeString(strings.TrimSuffix(value, ":"))
	if err != nil {
		return fmt.Errorf("%w: invalid base64 in content-digest", ErrMalformedInput)
	}

	sum := sha256.Sum256(body)
	if subtle.ConstantTimeCompare(sum[:], claimed) != 1 {
		return ErrDigestMismatch
	}

	return nil
}

// ReadBody reads the whole request body and replaces it with a fresh
// reader, so digest computation does not consume the body for
// downstream readers. A nil body yields a nil slice.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}

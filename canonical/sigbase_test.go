package canonical

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputSerialize(t *testing.T) {
	t.Run("full parameter set in fixed order", func(t *testing.T) {
		in := Input{
			Components: []Component{Method(), TargetURI(), Header("content-type")},
			Params: Parameters{
				Alg:     AlgorithmEd25519,
				Created: time.Unix(1718000000, 0),
				Nonce:   "3fa3",
				KeyID:   "client-abc",
			},
		}

		want := `("@method" "@target-uri" "content-type");created="1718000000";keyid="client-abc";alg="ed25519";nonce="3fa3"`
		assert.Equal(t, want, in.Serialize())
	})

	t.Run("absent parameters are omitted", func(t *testing.T) {
		in := Input{
			Components: []Component{Method()},
			Params:     Parameters{Alg: AlgorithmEd25519, KeyID: "k1"},
		}

		assert.Equal(t, `("@method");keyid="k1";alg="ed25519"`, in.Serialize())
	})

	t.Run("expires renders last", func(t *testing.T) {
		in := Input{
			Components: []Component{Method()},
			Params: Parameters{
				Alg:     AlgorithmEd25519,
				Created: time.Unix(100, 0),
				Expires: time.Unix(200, 0),
				KeyID:   "k1",
			},
		}

		assert.Equal(t, `("@method");created="100";keyid="k1";alg="ed25519";expires="200"`, in.Serialize())
	})

	t.Run("quoted string escaping in values", func(t *testing.T) {
		in := Input{
			Components: []Component{Method()},
			Params:     Parameters{Alg: AlgorithmEd25519, KeyID: `k"1`},
		}

		assert.Equal(t, `("@method");keyid="k\"1";alg="ed25519"`, in.Serialize())
	})
}

func TestParseInput(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		orig := Input{
			Components: []Component{Method(), TargetURI(), Header("content-type")},
			Params: Parameters{
				Alg:     AlgorithmEd25519,
				Created: time.Unix(1718000000, 0),
				Nonce:   "3fa3",
				KeyID:   "client-abc",
			},
		}

		parsed, err := ParseInput(orig.Serialize())
		require.NoError(t, err)
		assert.Equal(t, orig.Components, parsed.Components)
		assert.Equal(t, orig.Params, parsed.Params)
	})

	t.Run("parameters in any order", func(t *testing.T) {
		raw := `("@method" "@path");alg="ed25519";nonce="n-1";keyid="k1";created="42"`

		parsed, err := ParseInput(raw)
		require.NoError(t, err)
		assert.Equal(t, []Component{Method(), Path()}, parsed.Components)
		assert.Equal(t, "ed25519", parsed.Params.Alg)
		assert.Equal(t, "k1", parsed.Params.KeyID)
		assert.Equal(t, "n-1", parsed.Params.Nonce)
		assert.Equal(t, int64(42), parsed.Params.Created.Unix())
	})

	t.Run("bare integer timestamps are accepted", func(t *testing.T) {
		parsed, err := ParseInput(`("@method");created=1718000000;alg="ed25519";keyid="k1"`)
		require.NoError(t, err)
		assert.Equal(t, int64(1718000000), parsed.Params.Created.Unix())
	})

	t.Run("missing alg and keyid parse cleanly", func(t *testing.T) {
		parsed, err := ParseInput(`("@method")`)
		require.NoError(t, err)
		assert.Empty(t, parsed.Params.Alg)
		assert.Empty(t, parsed.Params.KeyID)
	})

	t.Run("unknown parameters are ignored", func(t *testing.T) {
		parsed, err := ParseInput(`("@method");alg="ed25519";keyid="k1";tag="x"`)
		require.NoError(t, err)
		assert.Equal(t, "k1", parsed.Params.KeyID)
	})

	t.Run("missing component list", func(t *testing.T) {
		for _, raw := range []string{"", "noparen", `alg="ed25519"("@method")`} {
			_, err := ParseInput(raw)
			assert.ErrorIs(t, err, ErrMalformedInput, "raw %q", raw)
		}
	})

	t.Run("unterminated quoted identifier", func(t *testing.T) {
		_, err := ParseInput(`("@method" "@path);alg="ed25519";keyid="k1"`)
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("unknown component identifier", func(t *testing.T) {
		_, err := ParseInput(`("@nope");alg="ed25519";keyid="k1"`)
		assert.ErrorIs(t, err, ErrUnknownComponent)
	})

	t.Run("invalid created timestamp", func(t *testing.T) {
		_, err := ParseInput(`("@method");created="soon";alg="ed25519";keyid="k1"`)
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("invalid expires timestamp", func(t *testing.T) {
		_, err := ParseInput(`("@method");expires="never";alg="ed25519";keyid="k1"`)
		assert.ErrorIs(t, err, ErrMalformedInput)
	})
}

func TestBuild(t *testing.T) {
	t.Run("canonical message layout", func(t *testing.T) {
		req := httptest.NewRequest("POST", "https://api.example.com/api/schemas", nil)
		req.Header.Set("Content-Type", "application/json")

		in := Input{
			Components: []Component{Method(), TargetURI(), Header("content-type")},
			Params: Parameters{
				Alg:     AlgorithmEd25519,
				Created: time.Unix(1718000000, 0),
				KeyID:   "client-abc",
			},
		}

		base, wire, err := Build(req, in)
		require.NoError(t, err)

		want := "\"@method\": POST\n" +
			"\"@target-uri\": https://api.example.com/api/schemas\n" +
			"\"content-type\": application/json\n" +
			`"@signature-params": ("@method" "@target-uri" "content-type");created="1718000000";keyid="client-abc";alg="ed25519"`
		assert.Equal(t, want, string(base))
		assert.Equal(t, in.Serialize(), wire)
	})

	t.Run("no trailing newline", func(t *testing.T) {
		req := httptest.NewRequest("GET", "https://example.com/", nil)

		base, _, err := Build(req, Input{Components: []Component{Method()}})
		require.NoError(t, err)
		assert.NotEqual(t, byte('\n'), base[len(base)-1])
	})

	t.Run("parsed input rebuilds from received bytes", func(t *testing.T) {
		// Parameter order differs from what Serialize would produce; the
		// rebuilt line must keep the received order.
		raw := `("@method");alg="ed25519";created="42";keyid="k1"`

		in, err := ParseInput(raw)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "https://example.com/", nil)
		base, wire, err := Build(req, in)
		require.NoError(t, err)

		assert.Equal(t, raw, wire)
		assert.Contains(t, string(base), `"@signature-params": `+raw)
		assert.NotEqual(t, raw, in.Serialize())
	})

	t.Run("missing covered header fails", func(t *testing.T) {
		req := httptest.NewRequest("GET", "https://example.com/", nil)

		_, _, err := Build(req, Input{Components: []Component{Header("x-missing")}})
		assert.ErrorIs(t, err, ErrHeaderNotPresent)
	})

	t.Run("component order is preserved", func(t *testing.T) {
		req := httptest.NewRequest("GET", "https://example.com/a?b=1", nil)

		base, _, err := Build(req, Input{Components: []Component{Path(), Method(), Query()}})
		require.NoError(t, err)

		assert.Equal(t, "\"@path\": /a\n\"@method\": GET\n\"@query\": b=1\n\"@signature-params\": (\"@path\" \"@method\" \"@query\")", string(base))
	})
}

func TestDictMember(t *testing.T) {
	t.Run("single member", func(t *testing.T) {
		v, ok := DictMember(`sig1=("@method");alg="ed25519"`, "sig1")
		require.True(t, ok)
		assert.Equal(t, `("@method");alg="ed25519"`, v)
	})

	t.Run("second member with comma inside quotes", func(t *testing.T) {
		header := `sig1=("@method");nonce="a,b", sig2=("@path");keyid="k2"`

		v, ok := DictMember(header, "sig2")
		require.True(t, ok)
		assert.Equal(t, `("@path");keyid="k2"`, v)
	})

	t.Run("missing member", func(t *testing.T) {
		_, ok := DictMember(`sig1=("@method")`, "sig2")
		assert.False(t, ok)
	})

	t.Run("empty header", func(t *testing.T) {
		_, ok := DictMember("", "sig1")
		assert.False(t, ok)
	})

	t.Run("entry without equals is skipped", func(t *testing.T) {
		v, ok := DictMember(`malformed, sig1=:dGVzdA==:`, "sig1")
		require.True(t, ok)
		assert.Equal(t, ":dGVzdA==:", v)
	})
}

func TestDecodeByteSequence(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		b, err := DecodeByteSequence(":dGVzdA==:")
		require.NoError(t, err)
		assert.Equal(t, []byte("test"), b)
	})

	t.Run("not colon wrapped", func(t *testing.T) {
		_, err := DecodeByteSequence("dGVzdA==")
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := DecodeByteSequence(":!!!:")
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := DecodeByteSequence(":")
		assert.ErrorIs(t, err, ErrMalformedInput)
	})
}

func TestQuoteUnquote(t *testing.T) {
	t.Run("round trip with escapes", func(t *testing.T) {
		for _, s := range []string{"plain", `with"quote`, `with\backslash`, ""} {
			assert.Equal(t, s, unquote(quoteRFC8941(s)))
		}
	})

	t.Run("unquoted value passes through", func(t *testing.T) {
		assert.Equal(t, "1718000000", unquote("1718000000"))
	})
}

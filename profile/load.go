package profile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/praxos/signet/canonical"
)

// fileConfig is the YAML surface of LoadFile. Pointer fields
// distinguish "absent" from zero values; absent fields keep the named
// profile's defaults.
type fileConfig struct {
	Profile                string   `yaml:"profile"`
	RequiredComponents     []string `yaml:"required_components"`
	IncludeContentDigest   *bool    `yaml:"include_content_digest"`
	IncludeTimestamp       *bool    `yaml:"include_timestamp"`
	IncludeNonce           *bool    `yaml:"include_nonce"`
	MaxBodySize            *int64   `yaml:"max_body_size"`
	MaxClockSkewPastSecs   *int     `yaml:"max_clock_skew_past_secs"`
	MaxClockSkewFutureSecs *int     `yaml:"max_clock_skew_future_secs"`
	NonceFormat            *string  `yaml:"nonce_format"`
	MinNonceLength         *int     `yaml:"min_nonce_length"`
	MaxNonceLength         *int     `yaml:"max_nonce_length"`
	NonceCapacity          *int     `yaml:"nonce_capacity"`
}

// LoadFile loads a profile from a YAML file: a named profile selection
// plus optional per-field overrides. The result is validated.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidProfile, path, err)
	}

	name := cfg.Profile
	if name == "" {
		name = "standard"
	}

	p, err := ByName(name)
	if err != nil {
		return nil, err
	}

	if len(cfg.RequiredComponents) > 0 {
		components, err := parseComponents(cfg.RequiredComponents)
		if err != nil {
			return nil, err
		}

		p.RequiredComponents = components
	}

	if cfg.IncludeContentDigest != nil {
		p.IncludeContentDigest = *cfg.IncludeContentDigest
	}

	if cfg.IncludeTimestamp != nil {
		p.IncludeTimestamp = *cfg.IncludeTimestamp
	}

	if cfg.IncludeNonce != nil {
		p.IncludeNonce = *cfg.IncludeNonce
	}

	if cfg.MaxBodySize != nil {
		p.MaxBodySize = *cfg.MaxBodySize
	}

	if cfg.MaxClockSkewPastSecs != nil {
		p.MaxClockSkewPast = time.Duration(*cfg.MaxClockSkewPastSecs) * time.Second
	}

	if cfg.MaxClockSkewFutureSecs != nil {
		p.MaxClockSkewFuture = time.Duration(*cfg.MaxClockSkewFutureSecs) * time.Second
	}

	if cfg.NonceFormat != nil {
		p.NonceFormat = NonceFormat(*cfg.NonceFormat)
	}

	if cfg.MinNonceLength != nil {
		p.MinNonceLength = *cfg.MinNonceLength
	}

	if cfg.MaxNonceLength != nil {
		p.MaxNonceLength = *cfg.MaxNonceLength
	}

	if cfg.NonceCapacity != nil {
		p.NonceCapacity = *cfg.NonceCapacity
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// FromEnv loads a profile from SIGNET_* environment variables: a named
// profile from SIGNET_PROFILE (default "standard") plus optional
// per-field overrides. The result is validated.
func FromEnv() (*Profile, error) {
	p, err := ByName(envDefault("SIGNET_PROFILE", "standard"))
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SIGNET_REQUIRED_COMPONENTS"); v != "" {
		components, err := parseComponents(strings.Split(v, ","))
		if err != nil {
			return nil, err
		}

		p.RequiredComponents = components
	}

	p.IncludeContentDigest = envBoolDefault("SIGNET_INCLUDE_CONTENT_DIGEST", p.IncludeContentDigest)
	p.IncludeTimestamp = envBoolDefault("SIGNET_INCLUDE_TIMESTAMP", p.IncludeTimestamp)
	p.IncludeNonce = envBoolDefault("SIGNET_INCLUDE_NONCE", p.IncludeNonce)
	p.MaxBodySize = int64(envIntDefault("SIGNET_MAX_BODY_SIZE", int(p.MaxBodySize)))
	p.MaxClockSkewPast = time.Duration(envIntDefault("SIGNET_MAX_CLOCK_SKEW_PAST_SECS", int(p.MaxClockSkewPast/time.Second))) * time.Second
	p.MaxClockSkewFuture = time.Duration(envIntDefault("SIGNET_MAX_CLOCK_SKEW_FUTURE_SECS", int(p.MaxClockSkewFuture/time.Second))) * time.Second
	p.NonceFormat = NonceFormat(envDefault("SIGNET_NONCE_FORMAT", string(p.NonceFormat)))
	p.MinNonceLength = envIntDefault("SIGNET_MIN_NONCE_LENGTH", p.MinNonceLength)
	p.MaxNonceLength = envIntDefault("SIGNET_MAX_NONCE_LENGTH", p.MaxNonceLength)
	p.NonceCapacity = envIntDefault("SIGNET_NONCE_CAPACITY", p.NonceCapacity)

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// parseComponents converts wire identifiers into components, trimming
// surrounding whitespace per entry.
func parseComponents(ids []string) ([]canonical.Component, error) {
	components := make([]canonical.Component, 0, len(ids))

	for _, id := range ids {
		c, err := canonical.Parse(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}

		components = append(components, c)
	}

	return components, nil
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}

	return parsed
}

func envBoolDefault(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

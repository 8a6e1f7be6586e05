package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-forecast-etl/internal/common"
)

// DefaultKey is the configuration key holding the TMD API bearer token.
const DefaultKey = "TMD_API_TOKEN"

// ErrMissing is returned when the bearer token is absent or blank.
var ErrMissing = errors.New("api token is missing or not loaded")

// Token is an opaque bearer token. Its String method is redacted so that
// formatting a Token into a log line never leaks the secret.
type Token string

// Value returns the raw token.
func (t Token) Value() string {
	return string(t)
}

// Bearer returns the Authorization header value for this token.
func (t Token) Bearer() string {
	return "Bearer " + string(t)
}

func (t Token) String() string {
	return common.Redact(string(t))
}

// GoString keeps %#v from printing the raw value.
func (t Token) GoString() string {
	return fmt.Sprintf("credential.Token(%q)", t.String())
}

// Provider yields a bearer token for a single run.
type Provider interface {
	Load() (Token, error)
}

// EnvProvider reads the token from the process environment and falls back to
// an optional dotenv file, which never overrides an exported value. The
// dotenv file is re-read on every Load.
type EnvProvider struct {
	Key        string
	DotenvPath string

	// lookup defaults to os.LookupEnv; tests replace it.
	lookup func(string) (string, bool)
}

// NewEnvProvider creates an EnvProvider for key, falling back to DefaultKey.
func NewEnvProvider(key, dotenvPath string) *EnvProvider {
	if key == "" {
		key = DefaultKey
	}
	return &EnvProvider{Key: key, DotenvPath: dotenvPath, lookup: os.LookupEnv}
}

// Load returns the configured token or an error wrapping ErrMissing.
func (p *EnvProvider) Load() (Token, error) {
	key := p.Key
	if key == "" {
		key = DefaultKey
	}

	lookup := p.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return Token(strings.TrimSpace(v)), nil
	}

	if p.DotenvPath != "" {
		values, err := godotenv.Read(p.DotenvPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("read dotenv %s: %w", p.DotenvPath, err)
		}
		if v := strings.TrimSpace(values[key]); v != "" {
			return Token(v), nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrMissing, key)
}

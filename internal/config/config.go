// Package config resolves CLI settings from defaults, an optional .env file
// and COSTLENS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL  = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second

	EnvAPIURL    = "COSTLENS_API_URL"
	EnvAuthURL   = "COSTLENS_AUTH_URL"
	EnvClientID  = "COSTLENS_CLIENT_ID"
	EnvTimeout   = "COSTLENS_TIMEOUT"
	EnvExportDir = "COSTLENS_EXPORT_DIR"
	EnvOutput    = "COSTLENS_OUTPUT"
	EnvConfigDir = "COSTLENS_CONFIG_DIR"
)

// ErrNoBaseURL is returned when the API URL resolves to empty.
var ErrNoBaseURL = errors.New("API URL not configured (set COSTLENS_API_URL or pass --api-url)")

// Settings are the resolved client settings.
type Settings struct {
	APIURL    string
	AuthURL   string
	ClientID  string
	Timeout   time.Duration
	ExportDir string
	Output    string
}

// Overrides are flag values. Zero fields leave the resolved value alone.
type Overrides struct {
	APIURL  string
	Timeout time.Duration
}

// Dir returns the costlens config directory.
func Dir() (string, error) {
	if dir := firstNonBlankEnv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "costlens"), nil
}

// LoadEnvFile loads <config dir>/.env when it exists. Variables already set in
// the environment are not overwritten, so explicit exports always take
// precedence.
func LoadEnvFile() {
	dir, err := Dir()
	if err != nil {
		return
	}
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// Resolve builds Settings from the environment and then applies overrides.
func Resolve(o Overrides) (Settings, error) {
	s := Settings{
		APIURL:    DefaultAPIURL,
		Timeout:   DefaultTimeout,
		ExportDir: ".",
		AuthURL:   firstNonBlankEnv(EnvAuthURL),
		ClientID:  firstNonBlankEnv(EnvClientID),
		Output:    strings.ToLower(firstNonBlankEnv(EnvOutput)),
	}

	if v, ok := os.LookupEnv(EnvAPIURL); ok {
		s.APIURL = strings.TrimSpace(v)
	}
	if v := firstNonBlankEnv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Settings{}, fmt.Errorf("invalid %s %q: must be a positive duration like 30s", EnvTimeout, v)
		}
		s.Timeout = d
	}
	if v := firstNonBlankEnv(EnvExportDir); v != "" {
		s.ExportDir = v
	}

	if o.APIURL != "" {
		s.APIURL = strings.TrimSpace(o.APIURL)
	}
	if o.Timeout > 0 {
		s.Timeout = o.Timeout
	}

	apiURL, err := NormalizeURL(s.APIURL)
	if err != nil {
		return Settings{}, err
	}
	s.APIURL = apiURL
	return s, nil
}

// NormalizeURL validates an API base URL and trims the trailing slash.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoBaseURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid API URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid API URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid API URL %q: missing host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("invalid API URL %q: must not contain a query or fragment", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func firstNonBlankEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

package config

import (
	"fmt"
	"os"
	"strings"
)

// Accepted credential names. The token is looked up under two historical
// names; the first non-empty one wins.
const (
	EnvTushareToken    = "TUSHARE_TOKEN"
	EnvTushareProToken = "TUSHARE_PRO_TOKEN"
	EnvPostgresDSN     = "POSTGRES_DSN"
)

// ConfigurationError reports that none of the candidate keys resolved to a
// non-empty value. It is terminal for the calling operation.
type ConfigurationError struct {
	Keys []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required env: %s", strings.Join(e.Keys, ", "))
}

// Env resolves credential values from the process environment with a fallback
// to a KEY=VALUE file parsed once at construction. Build it once at process
// start and pass it by reference; the file is never re-read.
type Env struct {
	fileValues map[string]string
}

// LoadEnv parses the KEY=VALUE file at path. A missing file is not an error,
// lookups then hit the process environment only. Comments, blank lines and
// lines without '=' are skipped; one level of surrounding quotes is stripped
// from values.
func LoadEnv(path string) *Env {
	values := map[string]string{}

	content, err := os.ReadFile(path)
	if err != nil {
		return &Env{fileValues: values}
	}

	for _, rawLine := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"`)
		value = strings.Trim(value, `'`)

		if key != "" {
			values[key] = value
		}
	}

	return &Env{fileValues: values}
}

// Resolve returns the first non-empty value among the candidate keys, checking
// the live process environment before the cached file values for each key.
func (e *Env) Resolve(names ...string) (string, error) {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value, nil
		}

		if value := e.fileValues[name]; value != "" {
			return value, nil
		}
	}

	return "", &ConfigurationError{Keys: names}
}

func (e *Env) TushareToken() (string, error) {
	return e.Resolve(EnvTushareToken, EnvTushareProToken)
}

func (e *Env) PostgresDSN() (string, error) {
	return e.Resolve(EnvPostgresDSN)
}

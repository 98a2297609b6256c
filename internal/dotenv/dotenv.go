// Package dotenv reads KEY=VALUE files for local development. Values
// already present in the process environment always win.
package dotenv

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Load applies the entries of a dotenv-style file to the process
// environment. A missing file is not an error so production deploys
// can skip the file entirely.
func Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file %q: %w", path, err)
	}
	entries, err := Parse(string(raw))
	if err != nil {
		return fmt.Errorf("parse env file %q: %w", path, err)
	}
	for key, val := range entries {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// Parse reads dotenv content into a map. Blank lines and comment lines
// are skipped, an optional "export " prefix is tolerated, and single or
// double quotes around a value are stripped.
func Parse(content string) (map[string]string, error) {
	entries := make(map[string]string)
	for n, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: missing '='", n+1)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", n+1)
		}
		entries[key] = unquote(strings.TrimSpace(val))
	}
	return entries, nil
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	first, last := val[0], val[len(val)-1]
	if first == last && (first == '"' || first == '\'') {
		return val[1 : len(val)-1]
	}
	return val
}

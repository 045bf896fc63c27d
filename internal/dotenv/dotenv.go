// Package dotenv loads KEY=VALUE pairs from .env-style files into the
// process environment. Variables already present in the environment win.
package dotenv

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Load applies each file in order. Missing files are skipped silently so
// a .env is optional in every deployment.
func Load(paths ...string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read env file %q: %w", path, err)
		}
		if err := apply(path, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func apply(path, content string) error {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}

		val = unquote(strings.TrimSpace(val))
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("set env %q from %q: %w", key, path, err)
		}
	}
	return nil
}

func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
		return v[1 : len(v)-1]
	}
	return v
}

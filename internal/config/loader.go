package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default} references. Secrets
// (webhook tokens, API keys) are expected to reach the config this way
// rather than being written into the file.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads the service configuration: the YAML file at path with
// every environment reference resolved. Unknown keys are rejected so a
// typoed field fails at startup instead of silently keeping a default.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	resolved, err := resolveEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: resolving variables in %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(resolved))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// resolveEnv substitutes every ${VAR} and ${VAR:-default} reference in
// the raw file. A reference with neither an environment value nor a
// default is an error; all such names are reported together.
func resolveEnv(raw []byte) ([]byte, error) {
	var missing []error

	out := envPattern.ReplaceAllFunc(raw, func(ref []byte) []byte {
		groups := envPattern.FindSubmatch(ref)
		name := string(groups[1])

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if def := groups[2]; def != nil {
			return def
		}

		missing = append(missing, fmt.Errorf("unresolved variable: %s", name))
		return ref
	})

	return out, errors.Join(missing...)
}

// Package config loads YAML configuration with environment variable
// expansion, strict key checking, and optional self-validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configuration types that check themselves
// after decoding.
type Validator interface {
	Validate() error
}

// Load reads a YAML file into target. References like ${VAR} are expanded
// from the environment before decoding, and keys that match no field of
// target are rejected so typos surface instead of silently applying
// defaults. When target implements Validator the decoded value is also
// validated.
func Load[T any](filename string, target *T) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := decode(os.ExpandEnv(string(raw)), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

func decode[T any](doc string, target *T) error {
	dec := yaml.NewDecoder(bytes.NewReader([]byte(doc)))
	dec.KnownFields(true)
	err := dec.Decode(target)
	if errors.Is(err, io.EOF) {
		// An empty file is an empty config, not a parse failure.
		return nil
	}
	return err
}

// LoadIfPresent loads configuration when the file exists and reports whether
// it did. A missing file leaves target untouched, letting callers fall back
// to built-in defaults.
func LoadIfPresent[T any](filename string, target *T) (bool, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := Load(filename, target); err != nil {
		return false, err
	}
	return true, nil
}

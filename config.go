package webparazzi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML config file over DefaultOptions and validates the
// result. Keys missing from the file keep their default value; unknown keys
// are an error.
func LoadConfig(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	options := DefaultOptions()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(options); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	options.ShareProbeSettings()

	if err := ValidateOptions(options); err != nil {
		return nil, err
	}

	return options, nil
}

// ValidateOptions checks the options against their validate tags.
func ValidateOptions(options *Options) error {
	if err := validator.New().Struct(options); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

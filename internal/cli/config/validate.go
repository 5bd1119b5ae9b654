package config

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalid marks a configuration that fails validation.
var ErrInvalid = errors.New("invalid configuration")

var (
	outputFormats = []string{"", "auto", "text", "markdown", "json"}
	logFormats    = []string{"text", "json"}
)

// Validate checks if the configuration is valid. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error
	if c.StatePath == "" {
		errs = append(errs, errors.New("state_path is required"))
	}
	if !slices.Contains(outputFormats, c.OutputFormat) {
		errs = append(errs, fmt.Errorf("output must be one of auto, text, markdown, json; got %q", c.OutputFormat))
	}
	if !slices.Contains(logFormats, c.LogFormat) {
		errs = append(errs, fmt.Errorf("log_format must be text or json; got %q", c.LogFormat))
	}
	if c.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("parallelism must be at least 1; got %d", c.Parallelism))
	}
	if c.Serve.Addr == "" {
		errs = append(errs, errors.New("serve.addr is required"))
	}
	if c.Serve.ReadTimeout <= 0 || c.Serve.WriteTimeout <= 0 {
		errs = append(errs, errors.New("serve timeouts must be positive"))
	}
	if c.Watch.Debounce <= 0 {
		errs = append(errs, errors.New("watch.debounce must be positive"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

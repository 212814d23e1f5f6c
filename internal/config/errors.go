package config

import "fmt"

// Operations reported by ConfigError.
const (
	OpRead     = "read"
	OpParse    = "parse"
	OpValidate = "validate"
)

// ConfigError describes why the effective configuration could not be built.
type ConfigError struct {
	Path string // config file, empty when the failure is not tied to one
	Op   string // OpRead, OpParse or OpValidate
	Err  error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("config %s failed for %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

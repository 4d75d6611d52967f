package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/osiris/internal/ast"
	"github.com/roach88/osiris/internal/config"
)

// Command error codes. Compiler diagnostics use their own two-digit
// codes (E11, W26) and never collide with these.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeDecodeFailed = "E002" // Document could not be decoded
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeConfig       = "E008" // Invalid configuration or flags
	ErrCodeStore        = "E009" // Build store error
	ErrCodeCompile      = "E010" // Compilation reported errors
)

// LoadError is a command-level failure with an error code.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// classifyError maps a project loading or compile error to a code.
func classifyError(err error) *LoadError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	var decodeErr *ast.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		return &LoadError{Code: ErrCodeDecodeFailed, Message: err.Error(), Err: err}
	case errors.Is(err, os.ErrNotExist):
		return &LoadError{Code: ErrCodeNotFound, Message: err.Error(), Err: err}
	default:
		return &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
	}
}

// ConfigFlags are the command-line overrides of the project
// configuration.
type ConfigFlags struct {
	ConfigPath string   // explicit configuration file
	Target     string   // overrides target
	Warnings   []string // name=on|off switches
	DebugInfo  bool     // forces debug info
}

// LoadConfig resolves the configuration of a project: the explicit file
// if given, else osiris.yaml in dir, else defaults. Flags override file
// values.
func LoadConfig(dir string, flags ConfigFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.ConfigPath != "" {
		cfg, err = config.Load(flags.ConfigPath)
	} else {
		cfg, err = config.LoadDir(dir)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error(), Err: err}
		}
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error(), Err: err}
	}

	if flags.Target != "" {
		cfg.Target = flags.Target
	}
	for _, w := range flags.Warnings {
		name, enabled, err := parseWarningFlag(w)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error(), Err: err}
		}
		if err := cfg.SetWarning(name, enabled); err != nil {
			return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error(), Err: err}
		}
	}
	if flags.DebugInfo {
		cfg.DebugInfo = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error(), Err: err}
	}
	return cfg, nil
}

// parseWarningFlag parses "name=on", "name=off" or any strconv boolean.
// A bare name enables the warning.
func parseWarningFlag(s string) (string, bool, error) {
	name, value, found := strings.Cut(s, "=")
	if name == "" {
		return "", false, fmt.Errorf("invalid --warning %q: missing name", s)
	}
	if !found {
		return name, true, nil
	}

	switch strings.ToLower(value) {
	case "on":
		return name, true, nil
	case "off":
		return name, false, nil
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return "", false, fmt.Errorf("invalid --warning %q: value must be on, off or a boolean", s)
	}
	return name, enabled, nil
}

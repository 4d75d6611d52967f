// Package config loads the compiler configuration of a story project.
//
// The configuration lives in osiris.yaml at the project root. Every field is
// optional; missing fields take the defaults returned by Default. Command
// line flags are applied on top by the CLI.
package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/osiris/internal/compiler"
	"github.com/roach88/osiris/internal/ir"
)

// FileName is the configuration file looked up in a project directory.
const FileName = "osiris.yaml"

// Config is the compiler configuration.
type Config struct {
	// Target is the game the story is compiled for: dos2, dos2de or bg3.
	Target string `yaml:"target"`

	// Warnings switches warnings on or off. Keys are switch names
	// ("rule-naming") or codes ("W23").
	Warnings map[string]bool `yaml:"warnings,omitempty"`

	// AllowTypeCoercion disables cast checks on variables.
	AllowTypeCoercion bool `yaml:"allow_type_coercion,omitempty"`

	// TypeCoercionWhitelist lists Name(N) functions whose parameters may
	// be cast freely.
	TypeCoercionWhitelist []string `yaml:"type_coercion_whitelist,omitempty"`

	// IgnoreUnusedDatabases lists Name(N) databases excluded from unused
	// database analysis.
	IgnoreUnusedDatabases []string `yaml:"ignore_unused_databases,omitempty"`

	// CheckGameObjects enables GUID checks against objects.yaml.
	CheckGameObjects bool `yaml:"check_game_objects,omitempty"`

	// MaxPropagationPasses bounds the type propagation loop.
	MaxPropagationPasses int `yaml:"max_propagation_passes"`

	// DebugInfo makes compile write debug info next to the story.
	DebugInfo bool `yaml:"debug_info,omitempty"`

	// Output is the story output path, relative to the project directory.
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Target:                compiler.TargetDOS2DE.String(),
		Warnings:              map[string]bool{},
		TypeCoercionWhitelist: []string{},
		IgnoreUnusedDatabases: []string{},
		MaxPropagationPasses:  compiler.DefaultMaxPropagationPasses,
		Output:                "story.json",
	}
}

// Load reads path. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDir reads dir/osiris.yaml, or returns Default when the file does not
// exist.
func LoadDir(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); stderrors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Decode parses a configuration document over the defaults and validates it.
func Decode(data []byte) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks every field. All problems are reported, joined into one
// error.
func (c *Config) Validate() error {
	var errs []error

	if _, err := compiler.ParseTarget(c.Target); err != nil {
		errs = append(errs, err)
	}
	if c.MaxPropagationPasses <= 0 {
		errs = append(errs, fmt.Errorf("max_propagation_passes must be positive, got %d", c.MaxPropagationPasses))
	}
	for name := range c.Warnings {
		if _, err := compiler.ResolveWarningName(name); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := parseNames("type_coercion_whitelist", c.TypeCoercionWhitelist); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseNames("ignore_unused_databases", c.IgnoreUnusedDatabases); err != nil {
		errs = append(errs, err)
	}
	if c.Output == "" {
		errs = append(errs, fmt.Errorf("output must not be empty"))
	}

	return stderrors.Join(errs...)
}

// SetWarning switches a warning by name or code.
func (c *Config) SetWarning(name string, enabled bool) error {
	if _, err := compiler.ResolveWarningName(name); err != nil {
		return err
	}
	if c.Warnings == nil {
		c.Warnings = map[string]bool{}
	}
	c.Warnings[name] = enabled
	return nil
}

// ApplyWarnings copies the warning switches into log.
func (c *Config) ApplyWarnings(log *compiler.CompilationLog) error {
	for name, enabled := range c.Warnings {
		code, err := compiler.ResolveWarningName(name)
		if err != nil {
			return err
		}
		log.WarningSwitches[code] = enabled
	}
	return nil
}

// CompilerOptions translates the configuration into compiler options.
func (c *Config) CompilerOptions() ([]compiler.CompilerOption, error) {
	target, err := compiler.ParseTarget(c.Target)
	if err != nil {
		return nil, err
	}
	whitelist, err := parseNames("type_coercion_whitelist", c.TypeCoercionWhitelist)
	if err != nil {
		return nil, err
	}
	ignored, err := parseNames("ignore_unused_databases", c.IgnoreUnusedDatabases)
	if err != nil {
		return nil, err
	}

	return []compiler.CompilerOption{
		compiler.WithTarget(target),
		compiler.WithTypeCoercion(c.AllowTypeCoercion),
		compiler.WithTypeCoercionWhitelist(whitelist...),
		compiler.WithIgnoredDatabases(ignored...),
		compiler.WithGameObjectChecks(c.CheckGameObjects),
		compiler.WithMaxPropagationPasses(c.MaxPropagationPasses),
	}, nil
}

func parseNames(field string, names []string) ([]ir.FunctionNameAndArity, error) {
	out := make([]ir.FunctionNameAndArity, 0, len(names))
	for i, s := range names {
		n, err := ir.ParseFunctionNameAndArity(s)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

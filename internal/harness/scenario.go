package harness

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/roach88/osiris/internal/ast"
	"github.com/roach88/osiris/internal/build"
	"github.com/roach88/osiris/internal/compiler"
	"github.com/roach88/osiris/internal/config"
)

var diagnosticCode = regexp.MustCompile(`^[EW][0-9]{2}$`)

// Scenario is a compile scenario.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Target defaults to the configuration default.
	Target string `yaml:"target,omitempty"`

	// Warnings switches warnings by name or code.
	Warnings map[string]bool `yaml:"warnings,omitempty"`

	// CheckGameObjects enables GUID checks against Objects.
	CheckGameObjects bool `yaml:"check_game_objects,omitempty"`

	// Header is an inline story header document. Exactly one of Header
	// and HeaderFile is set.
	Header     string `yaml:"header,omitempty"`
	HeaderFile string `yaml:"header_file,omitempty"`

	Goals   []GoalSource     `yaml:"goals"`
	Objects []ast.GameObject `yaml:"objects,omitempty"`

	Expect Expectation `yaml:"expect"`

	// Golden requests a snapshot comparison in RunWithGolden.
	Golden bool `yaml:"golden,omitempty"`

	// Path is the file the scenario was loaded from, empty for scenarios
	// decoded from memory.
	Path string `yaml:"-"`

	baseDir string
}

// GoalSource is an inline goal document or a goal file.
type GoalSource struct {
	// Name is required for inline sources. For files it overrides the
	// name in the document.
	Name   string `yaml:"name,omitempty"`
	Source string `yaml:"source,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// Expectation is what a scenario's compile must produce.
type Expectation struct {
	Errors    []string `yaml:"errors,omitempty"`
	Warnings  []string `yaml:"warnings,omitempty"`
	Nodes     *int     `yaml:"nodes,omitempty"`
	Databases *int     `yaml:"databases,omitempty"`
	Goals     []string `yaml:"goals,omitempty"`
	Functions []string `yaml:"functions,omitempty"`
}

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := DecodeScenario(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// DecodeScenario decodes and validates a scenario. Relative file paths
// resolve against baseDir.
func DecodeScenario(data []byte, baseDir string) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&s); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("invalid scenario: empty document")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	s.baseDir = baseDir

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario reports every problem, joined into one error.
func validateScenario(s *Scenario) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if s.Name == "" {
		fail("name is required")
	}
	if s.Description == "" {
		fail("description is required")
	}

	switch {
	case s.Header == "" && s.HeaderFile == "":
		fail("header or header_file is required")
	case s.Header != "" && s.HeaderFile != "":
		fail("header and header_file are mutually exclusive")
	case s.HeaderFile != "":
		if _, err := os.Stat(s.resolve(s.HeaderFile)); err != nil {
			fail("header_file: %v", err)
		}
	}

	if len(s.Goals) == 0 {
		fail("goals list is required and must be non-empty")
	}
	for i, g := range s.Goals {
		switch {
		case g.Source == "" && g.File == "":
			fail("goals[%d]: source or file is required", i)
		case g.Source != "" && g.File != "":
			fail("goals[%d]: source and file are mutually exclusive", i)
		case g.Source != "" && g.Name == "":
			fail("goals[%d]: name is required for inline sources", i)
		case g.File != "":
			if _, err := os.Stat(s.resolve(g.File)); err != nil {
				fail("goals[%d].file: %v", i, err)
			}
		}
	}

	if s.Target != "" {
		if _, err := compiler.ParseTarget(s.Target); err != nil {
			fail("target: %v", err)
		}
	}
	for name := range s.Warnings {
		if _, err := compiler.ResolveWarningName(name); err != nil {
			fail("warnings: %v", err)
		}
	}

	for _, list := range []struct {
		field string
		codes []string
	}{{"expect.errors", s.Expect.Errors}, {"expect.warnings", s.Expect.Warnings}} {
		for _, code := range list.codes {
			if !diagnosticCode.MatchString(code) {
				fail("%s: invalid diagnostic code %q", list.field, code)
			}
		}
	}
	if s.Expect.Nodes != nil && *s.Expect.Nodes < 0 {
		fail("expect.nodes must be non-negative")
	}
	if s.Expect.Databases != nil && *s.Expect.Databases < 0 {
		fail("expect.databases must be non-negative")
	}

	return stderrors.Join(errs...)
}

func (s *Scenario) resolve(path string) string {
	if filepath.IsAbs(path) || s.baseDir == "" {
		return path
	}
	return filepath.Join(s.baseDir, path)
}

// Config returns the compiler configuration of the scenario.
func (s *Scenario) Config() (*config.Config, error) {
	cfg := config.Default()
	if s.Target != "" {
		cfg.Target = s.Target
	}
	for name, enabled := range s.Warnings {
		if err := cfg.SetWarning(name, enabled); err != nil {
			return nil, err
		}
	}
	cfg.CheckGameObjects = s.CheckGameObjects
	return cfg, cfg.Validate()
}

// Project decodes the scenario documents into a project. Goals keep the
// scenario's order.
func (s *Scenario) Project() (*build.Project, error) {
	p := &build.Project{Dir: s.baseDir}

	var err error
	if s.Header != "" {
		p.Header, err = ast.DecodeHeader(build.HeaderBaseName+".yaml", []byte(s.Header))
	} else {
		p.Header, err = decodeFile(s, s.HeaderFile, ast.DecodeHeader)
	}
	if err != nil {
		return nil, err
	}

	p.Goals = make([]*ast.Goal, 0, len(s.Goals))
	for _, src := range s.Goals {
		var g *ast.Goal
		if src.Source != "" {
			g, err = ast.DecodeGoal(build.GoalsDir+"/"+src.Name+".yaml", []byte(src.Source))
		} else {
			g, err = decodeFile(s, src.File, ast.DecodeGoal)
		}
		if err != nil {
			return nil, err
		}
		if src.Name != "" {
			g.Name = src.Name
		}
		p.Goals = append(p.Goals, g)
	}

	if len(s.Objects) > 0 {
		table := &ast.ObjectTable{Objects: s.Objects}
		if err := ast.ValidateObjects("objects", table); err != nil {
			return nil, err
		}
		p.Objects = table
	}
	return p, nil
}

// decodeFile decodes a file named by a scenario-relative path. The path
// as written becomes the document name, keeping locations stable.
func decodeFile[T any](s *Scenario, path string, decode func(string, []byte) (T, error)) (T, error) {
	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("read %s: %w", path, err)
	}
	return decode(filepath.ToSlash(path), data)
}

package ast

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// DecodeError is a malformed-document error.
type DecodeError struct {
	File    string
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	var b strings.Builder
	if e.Pos.IsValid() {
		fmt.Fprintf(&b, "%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	} else if e.File != "" {
		fmt.Fprintf(&b, "%s: ", e.File)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, "%s: ", e.Path)
	}
	b.WriteString(e.Message)
	return b.String()
}

// Extensions lists the document extensions Decode understands.
var Extensions = []string{".cue", ".json", ".yaml", ".yml"}

// IsDocument reports whether path has a supported extension.
func IsDocument(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Decode decodes a document into out, choosing the format by extension.
// YAML rejects unknown fields.
func Decode(filename string, data []byte, out any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".cue", ".json":
		return decodeCUE(filename, data, out)
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true) // Reject unknown fields
		if err := decoder.Decode(out); err != nil {
			return &DecodeError{File: filename, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
		}
		if g, ok := out.(*Goal); ok {
			var root yaml.Node
			if err := yaml.Unmarshal(data, &root); err == nil {
				g.fillPositions(&root)
			}
		}
		return nil
	default:
		return &DecodeError{File: filename, Message: fmt.Sprintf("unsupported document type %q", filepath.Ext(filename))}
	}
}

// decodeCUE compiles CUE or JSON with the CUE SDK and decodes the concrete
// value into out.
func decodeCUE(filename string, data []byte, out any) error {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return formatCUEError(filename, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(filename, err)
	}
	if err := v.Decode(out); err != nil {
		return formatCUEError(filename, err)
	}
	return nil
}

// formatCUEError converts the first CUE error into a DecodeError with
// position info.
func formatCUEError(filename string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &DecodeError{File: filename, Message: err.Error()}
	}

	first := errs[0]
	decodeErr := &DecodeError{File: filename, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		decodeErr.Pos = positions[0]
	}
	return decodeErr
}

// DecodeHeader decodes and validates a story header document.
func DecodeHeader(filename string, data []byte) (*Header, error) {
	var h Header
	if err := Decode(filename, data, &h); err != nil {
		return nil, err
	}
	h.normalize()
	if err := ValidateHeader(filename, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// DecodeGoal decodes and validates a goal document. The goal name defaults
// to the file name without extension.
func DecodeGoal(filename string, data []byte) (*Goal, error) {
	var g Goal
	if err := Decode(filename, data, &g); err != nil {
		return nil, err
	}
	if g.Name == "" {
		g.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	g.File = filename
	g.normalize()
	if err := ValidateGoal(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// DecodeObjects decodes and validates a game-object table document.
func DecodeObjects(filename string, data []byte) (*ObjectTable, error) {
	var t ObjectTable
	if err := Decode(filename, data, &t); err != nil {
		return nil, err
	}
	for i := range t.Objects {
		t.Objects[i].Name = nfc(t.Objects[i].Name)
	}
	if err := ValidateObjects(filename, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ReadFile reads and decodes a document from disk with the given decoder.
func ReadFile[T any](path string, decode func(string, []byte) (T, error)) (T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("read %s: %w", path, err)
	}
	return decode(path, data)
}

// fillPositions copies YAML node lines and columns into nodes that carry
// no explicit line field.
func (g *Goal) fillPositions(root *yaml.Node) {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return
	}
	g.Position.fill(doc)

	facts := func(key string, list []Fact) {
		items := sequence(doc, key)
		for i := range list {
			if i < len(items) {
				list[i].Position.fill(items[i])
				fillValues(items[i], "elements", list[i].Elements)
			}
		}
	}
	facts("init", g.Init)
	facts("exit", g.Exit)

	rules := sequence(doc, "kb")
	for i := range g.KB {
		if i >= len(rules) {
			break
		}
		rule := &g.KB[i]
		rule.Position.fill(rules[i])

		conds := sequence(rules[i], "conditions")
		for j := range rule.Conditions {
			if j >= len(conds) {
				break
			}
			c := &rule.Conditions[j]
			c.Position.fill(conds[j])
			fillValues(conds[j], "params", c.Params)
			if c.LValue != nil {
				if n := mappingValue(conds[j], "lvalue"); n != nil {
					c.LValue.Position.fill(n)
				}
			}
			if c.RValue != nil {
				if n := mappingValue(conds[j], "rvalue"); n != nil {
					c.RValue.Position.fill(n)
				}
			}
		}

		actions := sequence(rules[i], "actions")
		for j := range rule.Actions {
			if j < len(actions) {
				rule.Actions[j].Position.fill(actions[j])
				fillValues(actions[j], "params", rule.Actions[j].Params)
			}
		}
	}

	parents := sequence(doc, "parents")
	for i := range g.Parents {
		if i < len(parents) {
			g.Parents[i].Position.fill(parents[i])
		}
	}
}

func (p *Position) fill(n *yaml.Node) {
	if p.Line != 0 {
		return
	}
	p.Line = n.Line
	p.Column = n.Column
}

func fillValues(parent *yaml.Node, key string, values []Value) {
	items := sequence(parent, key)
	for i := range values {
		if i < len(items) {
			values[i].Position.fill(items[i])
		}
	}
}

func sequence(n *yaml.Node, key string) []*yaml.Node {
	v := mappingValue(n, key)
	if v == nil || v.Kind != yaml.SequenceNode {
		return nil
	}
	return v.Content
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func nfc(s string) string {
	return norm.NFC.String(s)
}

func (h *Header) normalize() {
	for i := range h.Aliases {
		h.Aliases[i].TypeName = nfc(h.Aliases[i].TypeName)
	}
	for i := range h.Functions {
		h.Functions[i].Name = nfc(h.Functions[i].Name)
	}
}

// normalize rewrites names and string literals to NFC so that symbols
// written with different Unicode compositions resolve to the same entry.
func (g *Goal) normalize() {
	g.Name = nfc(g.Name)
	for i := range g.Init {
		g.Init[i].normalize()
	}
	for i := range g.Exit {
		g.Exit[i].normalize()
	}
	for i := range g.KB {
		rule := &g.KB[i]
		for j := range rule.Conditions {
			c := &rule.Conditions[j]
			c.Func = nfc(c.Func)
			normalizeValues(c.Params)
			if c.LValue != nil {
				c.LValue.normalize()
			}
			if c.RValue != nil {
				c.RValue.normalize()
			}
		}
		for j := range rule.Actions {
			rule.Actions[j].Func = nfc(rule.Actions[j].Func)
			normalizeValues(rule.Actions[j].Params)
		}
	}
	for i := range g.Parents {
		g.Parents[i].Goal = nfc(g.Parents[i].Goal)
	}
}

func (f *Fact) normalize() {
	f.Database = nfc(f.Database)
	normalizeValues(f.Elements)
}

func normalizeValues(values []Value) {
	for i := range values {
		values[i].normalize()
	}
}

func (v *Value) normalize() {
	v.Var = nfc(v.Var)
	v.Name = nfc(v.Name)
	if v.String != nil {
		s := nfc(*v.String)
		v.String = &s
	}
}

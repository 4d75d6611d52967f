package ast

import "github.com/roach88/osiris/internal/ir"

// Position is an optional source position carried by tree nodes.
type Position struct {
	Line      int `json:"line,omitempty" yaml:"line,omitempty"`
	Column    int `json:"column,omitempty" yaml:"column,omitempty"`
	EndLine   int `json:"end_line,omitempty" yaml:"end_line,omitempty"`
	EndColumn int `json:"end_column,omitempty" yaml:"end_column,omitempty"`
}

// Location converts the position to an IR code location in file.
func (p Position) Location(file string) *ir.CodeLocation {
	return &ir.CodeLocation{
		File:        file,
		StartLine:   p.Line,
		StartColumn: p.Column,
		EndLine:     p.EndLine,
		EndColumn:   p.EndColumn,
	}
}

// Header is the story header: alias types and builtin functions.
type Header struct {
	Aliases   []TypeAlias `json:"aliases" yaml:"aliases"`
	Functions []Function  `json:"functions" yaml:"functions"`
}

// TypeAlias declares a user type aliasing an intrinsic type.
type TypeAlias struct {
	TypeName string `json:"type_name" yaml:"type_name"`
	TypeID   uint32 `json:"type_id" yaml:"type_id"`
	AliasID  uint32 `json:"alias_id" yaml:"alias_id"`
}

// Function declares a builtin function.
type Function struct {
	Name   string          `json:"name" yaml:"name"`
	Type   ir.FunctionType `json:"type" yaml:"type"`
	Params []Param         `json:"params" yaml:"params"`
	Meta1  uint32          `json:"meta1,omitempty" yaml:"meta1,omitempty"`
	Meta2  uint32          `json:"meta2,omitempty" yaml:"meta2,omitempty"`
	Meta3  uint32          `json:"meta3,omitempty" yaml:"meta3,omitempty"`
	Meta4  uint32          `json:"meta4,omitempty" yaml:"meta4,omitempty"`
}

// Param is a builtin function parameter. Type is a type name.
type Param struct {
	Name      string            `json:"name" yaml:"name"`
	Type      string            `json:"type" yaml:"type"`
	Direction ir.ParamDirection `json:"direction" yaml:"direction"`
}

// Goal is the tree of one goal file.
type Goal struct {
	// Name defaults to the file name without extension.
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Init    []Fact   `json:"init,omitempty" yaml:"init,omitempty"`
	KB      []Rule   `json:"kb,omitempty" yaml:"kb,omitempty"`
	Exit    []Fact   `json:"exit,omitempty" yaml:"exit,omitempty"`
	Parents []Parent `json:"parents,omitempty" yaml:"parents,omitempty"`
	Position `yaml:",inline"`

	// File is the path the goal was decoded from.
	File string `json:"-" yaml:"-"`
}

// Parent is a parent-goal edge.
type Parent struct {
	Goal     string `json:"goal" yaml:"goal"`
	Position `yaml:",inline"`
}

// Fact is a row of an INIT or EXIT section. GoalCompleted facts carry no
// database.
type Fact struct {
	Database      string  `json:"database,omitempty" yaml:"database,omitempty"`
	Not           bool    `json:"not,omitempty" yaml:"not,omitempty"`
	Elements      []Value `json:"elements,omitempty" yaml:"elements,omitempty"`
	GoalCompleted bool    `json:"goal_completed,omitempty" yaml:"goal_completed,omitempty"`
	Position      `yaml:",inline"`
}

// Rule kinds.
const (
	RuleIf    = "if"
	RuleProc  = "proc"
	RuleQuery = "query"
)

// Rule is an IF, PROC or QRY rule.
type Rule struct {
	Type       string      `json:"type" yaml:"type"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Actions    []Action    `json:"actions,omitempty" yaml:"actions,omitempty"`
	Position   `yaml:",inline"`
}

// Condition is either a function condition (Func set) or a binary
// comparison (Op set).
type Condition struct {
	Func     string  `json:"func,omitempty" yaml:"func,omitempty"`
	Not      bool    `json:"not,omitempty" yaml:"not,omitempty"`
	Params   []Value `json:"params,omitempty" yaml:"params,omitempty"`
	LValue   *Value  `json:"lvalue,omitempty" yaml:"lvalue,omitempty"`
	Op       string  `json:"op,omitempty" yaml:"op,omitempty"`
	RValue   *Value  `json:"rvalue,omitempty" yaml:"rvalue,omitempty"`
	Position `yaml:",inline"`
}

// IsBinary reports whether the condition is a comparison.
func (c *Condition) IsBinary() bool {
	return c.Op != ""
}

// Action is a THEN statement: a call, a database write, or the completion
// of the goal.
type Action struct {
	Func          string  `json:"func,omitempty" yaml:"func,omitempty"`
	Not           bool    `json:"not,omitempty" yaml:"not,omitempty"`
	Params        []Value `json:"params,omitempty" yaml:"params,omitempty"`
	GoalCompleted bool    `json:"goal_completed,omitempty" yaml:"goal_completed,omitempty"`
	Position      `yaml:",inline"`
}

// Value is a variable reference (Var set) or a literal. Type is an optional
// type annotation such as (INTEGER)_X or (CHARACTERGUID)S_Foo.
type Value struct {
	Var      string   `json:"var,omitempty" yaml:"var,omitempty"`
	Type     string   `json:"type,omitempty" yaml:"type,omitempty"`
	Int      *int64   `json:"int,omitempty" yaml:"int,omitempty"`
	Float    *float64 `json:"float,omitempty" yaml:"float,omitempty"`
	String   *string  `json:"string,omitempty" yaml:"string,omitempty"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Position `yaml:",inline"`
}

// IsVariable reports whether the value references a rule variable.
func (v *Value) IsVariable() bool {
	return v.Var != ""
}

// ObjectTable is the game-object document.
type ObjectTable struct {
	Objects []GameObject `json:"objects" yaml:"objects"`
}

// GameObject maps a GUID to its object name and type name.
type GameObject struct {
	GUID string `json:"guid" yaml:"guid"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

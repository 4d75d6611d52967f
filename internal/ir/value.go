package ir

import "fmt"

// CodeLocation is a source range within a story file. A nil *CodeLocation
// marks diagnostics raised where no source position exists.
type CodeLocation struct {
	File        string `json:"file"`
	StartLine   int    `json:"start_line"`
	StartColumn int    `json:"start_column"`
	EndLine     int    `json:"end_line"`
	EndColumn   int    `json:"end_column"`
}

// String formats the location as file:line:column.
func (l *CodeLocation) String() string {
	if l == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.StartLine, l.StartColumn)
}

// ConstantType is the lexical kind of a literal.
type ConstantType uint8

const (
	ConstantUnknown ConstantType = iota
	ConstantInteger
	ConstantFloat
	ConstantString
	ConstantName
)

var constantTypeNames = [...]string{"unknown", "integer", "float", "string", "name"}

// String returns the literal kind name.
func (c ConstantType) String() string {
	if int(c) < len(constantTypeNames) {
		return constantTypeNames[c]
	}
	return fmt.Sprintf("ConstantType(%d)", uint8(c))
}

// Value is a sealed interface for rule and fact operands.
// Only *Constant and *Variable implement it.
type Value interface {
	irValue() // Sealed
	ValueType() *ValueType
	SetValueType(*ValueType)
	Loc() *CodeLocation
}

// Constant is a literal operand.
type Constant struct {
	ConstType ConstantType
	Type      *ValueType
	// InferredType is set when Type comes from an explicit annotation rather
	// than from the literal kind.
	InferredType bool
	IntegerValue int64
	FloatValue   float32
	StringValue  string
	Location     *CodeLocation
}

func (*Constant) irValue() {}

// ValueType returns the constant's type, nil if unknown.
func (c *Constant) ValueType() *ValueType { return c.Type }

// SetValueType sets the constant's type.
func (c *Constant) SetValueType(t *ValueType) { c.Type = t }

// Loc returns the source location.
func (c *Constant) Loc() *CodeLocation { return c.Location }

// String renders the literal the way it appears in source.
func (c *Constant) String() string {
	switch c.ConstType {
	case ConstantInteger:
		return fmt.Sprintf("%d", c.IntegerValue)
	case ConstantFloat:
		return fmt.Sprintf("%g", c.FloatValue)
	case ConstantString:
		return fmt.Sprintf("%q", c.StringValue)
	default:
		return c.StringValue
	}
}

// Variable is an occurrence of a rule-local variable. Type is the type of
// this occurrence, which may be a cast of the rule variable's type.
type Variable struct {
	Index    int
	Type     *ValueType
	Location *CodeLocation
}

func (*Variable) irValue() {}

// ValueType returns the occurrence type, nil if not yet known.
func (v *Variable) ValueType() *ValueType { return v.Type }

// SetValueType sets the occurrence type.
func (v *Variable) SetValueType(t *ValueType) { v.Type = t }

// Loc returns the source location.
func (v *Variable) Loc() *CodeLocation { return v.Location }

package ir

import (
	"fmt"
	"strings"
)

// RuleType distinguishes IF rules from PROC and QRY definitions.
type RuleType uint8

const (
	RuleIf RuleType = iota
	RuleProc
	RuleQuery
)

// String returns the rule keyword.
func (t RuleType) String() string {
	switch t {
	case RuleIf:
		return "IF"
	case RuleProc:
		return "PROC"
	case RuleQuery:
		return "QRY"
	default:
		return fmt.Sprintf("RuleType(%d)", uint8(t))
	}
}

// RelOpType is a comparison operator in a binary condition. Values match the
// story format numbering.
type RelOpType uint8

const (
	RelOpLess           RelOpType = 0
	RelOpLessOrEqual    RelOpType = 1
	RelOpGreater        RelOpType = 2
	RelOpGreaterOrEqual RelOpType = 3
	RelOpEqual          RelOpType = 4
	RelOpNotEqual       RelOpType = 5
)

var relOpSymbols = [...]string{"<", "<=", ">", ">=", "==", "!="}

// String returns the operator symbol.
func (op RelOpType) String() string {
	if int(op) < len(relOpSymbols) {
		return relOpSymbols[op]
	}
	return fmt.Sprintf("RelOpType(%d)", uint8(op))
}

// IsOrdering reports whether op is one of <, <=, >, >=.
func (op RelOpType) IsOrdering() bool {
	return op <= RelOpGreaterOrEqual
}

// ParseRelOp parses an operator symbol.
func ParseRelOp(s string) (RelOpType, error) {
	for i, sym := range relOpSymbols {
		if sym == s {
			return RelOpType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown comparison operator %q", s)
}

// RuleVariable is a rule-local logic variable.
type RuleVariable struct {
	Index int
	Name  string
	Type  *ValueType
	// FirstBindingIndex is the index of the condition that first binds the
	// variable, -1 while unbound.
	FirstBindingIndex int
}

// IsUnused reports whether the variable is the anonymous placeholder "_".
func (v *RuleVariable) IsUnused() bool {
	return len(v.Name) == 1
}

// Condition is a sealed interface for rule conditions.
// Only *FuncCondition and *BinaryCondition implement it.
type Condition interface {
	condition() // Sealed
	Base() *ConditionBase
}

// ConditionBase holds the fields shared by all conditions. TupleSize is -1
// until computed by type propagation.
type ConditionBase struct {
	TupleSize int
	Location  *CodeLocation
}

// Base returns the shared condition fields.
func (c *ConditionBase) Base() *ConditionBase { return c }

// FuncCondition matches a database, event, query or user-defined predicate.
type FuncCondition struct {
	ConditionBase
	Func   FunctionNameAndArity
	Not    bool
	Params []Value
}

func (*FuncCondition) condition() {}

// BinaryCondition compares two values.
type BinaryCondition struct {
	ConditionBase
	LValue Value
	Op     RelOpType
	RValue Value
}

func (*BinaryCondition) condition() {}

// Statement is a THEN action: a call, a database insert/delete, or the
// completion of the enclosing goal when Func is nil.
type Statement struct {
	Func     *FunctionNameAndArity
	Goal     *Goal
	Not      bool
	Params   []Value
	Location *CodeLocation
}

// Fact is a row of an INIT or EXIT section. Database is nil for the
// goal-completed fact.
type Fact struct {
	Database *FunctionNameAndArity
	Goal     *Goal
	Not      bool
	Elements []*Constant
	Location *CodeLocation
}

// Rule is an IF/PROC/QRY production.
type Rule struct {
	Goal       *Goal
	Type       RuleType
	Conditions []Condition
	Actions    []*Statement
	Variables  []*RuleVariable
	// VariablesByName indexes named variables by case-folded name.
	VariablesByName map[string]*RuleVariable
	Location        *CodeLocation
}

// NewRule returns an empty rule owned by goal.
func NewRule(goal *Goal, typ RuleType, loc *CodeLocation) *Rule {
	return &Rule{
		Goal:            goal,
		Type:            typ,
		VariablesByName: make(map[string]*RuleVariable),
		Location:        loc,
	}
}

// FindOrAddVariable resolves a variable name to its rule-local slot. The
// anonymous name "_" always gets a fresh slot; other names are unified
// case-insensitively. typ is only used when a new slot is allocated.
func (r *Rule) FindOrAddVariable(name string, typ *ValueType) (*RuleVariable, error) {
	if !strings.HasPrefix(name, "_") {
		return nil, fmt.Errorf("variable name %q must start with an underscore", name)
	}

	if len(name) > 1 {
		if v, ok := r.VariablesByName[FoldName(name)]; ok {
			return v, nil
		}
	}

	v := &RuleVariable{
		Index:             len(r.Variables),
		Name:              name,
		Type:              typ,
		FirstBindingIndex: -1,
	}
	r.Variables = append(r.Variables, v)
	if len(name) > 1 {
		r.VariablesByName[FoldName(name)] = v
	}
	return v, nil
}

// Variable returns the rule variable an occurrence refers to.
func (r *Rule) Variable(v *Variable) *RuleVariable {
	return r.Variables[v.Index]
}

// InitialCondition returns the first condition, nil for an empty rule.
func (r *Rule) InitialCondition() Condition {
	if len(r.Conditions) == 0 {
		return nil
	}
	return r.Conditions[0]
}

// TargetEdge is a parent-goal reference declared by a goal.
type TargetEdge struct {
	Goal     string
	Location *CodeLocation
}

// Goal is one story file: init facts, rules and exit facts.
type Goal struct {
	Name        string
	InitSection []*Fact
	KBSection   []*Rule
	ExitSection []*Fact
	ParentEdges []TargetEdge
	Location    *CodeLocation
}

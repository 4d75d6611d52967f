package ir

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// FunctionType is the kind of a callable symbol. Values match the function
// type numbering of the story format.
type FunctionType uint8

const (
	FunctionEvent     FunctionType = 1
	FunctionQuery     FunctionType = 2
	FunctionCall      FunctionType = 3
	FunctionDatabase  FunctionType = 4
	FunctionProc      FunctionType = 5
	FunctionSysQuery  FunctionType = 6
	FunctionSysCall   FunctionType = 7
	FunctionUserQuery FunctionType = 8
)

var functionTypeNames = map[FunctionType]string{
	FunctionEvent:     "Event",
	FunctionQuery:     "Query",
	FunctionCall:      "Call",
	FunctionDatabase:  "Database",
	FunctionProc:      "Proc",
	FunctionSysQuery:  "SysQuery",
	FunctionSysCall:   "SysCall",
	FunctionUserQuery: "UserQuery",
}

// String returns the name used in diagnostics.
func (t FunctionType) String() string {
	if name, ok := functionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FunctionType(%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t FunctionType) MarshalText() ([]byte, error) {
	if _, ok := functionTypeNames[t]; !ok {
		return nil, fmt.Errorf("invalid function type %d", uint8(t))
	}
	return []byte(strings.ToLower(t.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Matching is
// case-insensitive.
func (t *FunctionType) UnmarshalText(text []byte) error {
	ft, err := ParseFunctionType(string(text))
	if err != nil {
		return err
	}
	*t = ft
	return nil
}

// ParseFunctionType parses a function type name such as "sysquery" or "Event".
func ParseFunctionType(s string) (FunctionType, error) {
	for ft, name := range functionTypeNames {
		if strings.EqualFold(name, s) {
			return ft, nil
		}
	}
	return 0, fmt.Errorf("unknown function type %q", s)
}

// ParamDirection is the data flow direction of a function parameter.
type ParamDirection uint8

const (
	DirectionIn  ParamDirection = 1
	DirectionOut ParamDirection = 2
)

// String returns "in" or "out".
func (d ParamDirection) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	default:
		return fmt.Sprintf("ParamDirection(%d)", uint8(d))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d ParamDirection) MarshalText() ([]byte, error) {
	if d != DirectionIn && d != DirectionOut {
		return nil, fmt.Errorf("invalid parameter direction %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *ParamDirection) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "in":
		*d = DirectionIn
	case "out":
		*d = DirectionOut
	default:
		return fmt.Errorf("unknown parameter direction %q", string(text))
	}
	return nil
}

// FunctionNameAndArity identifies a function by name and parameter count.
type FunctionNameAndArity struct {
	Name  string
	Arity int
}

// NameKey is the case-insensitive map key of a FunctionNameAndArity.
type NameKey struct {
	folded string
	arity  int
}

// FoldName returns the case-folded form of a symbol name. A Caser keeps
// state between calls, so each call gets its own.
func FoldName(name string) string {
	return cases.Fold().String(name)
}

// Key returns the case-insensitive lookup key.
func (n FunctionNameAndArity) Key() NameKey {
	return NameKey{folded: FoldName(n.Name), arity: n.Arity}
}

// Equal reports whether two names refer to the same function.
func (n FunctionNameAndArity) Equal(other FunctionNameAndArity) bool {
	return n.Key() == other.Key()
}

// String formats the name as Name(Arity).
func (n FunctionNameAndArity) String() string {
	return fmt.Sprintf("%s(%d)", n.Name, n.Arity)
}

// ParseFunctionNameAndArity parses the Name(Arity) form produced by String.
func ParseFunctionNameAndArity(s string) (FunctionNameAndArity, error) {
	s = strings.TrimSpace(s)
	open := strings.LastIndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return FunctionNameAndArity{}, fmt.Errorf("invalid function name %q: expected Name(Arity)", s)
	}
	var arity int
	if _, err := fmt.Sscanf(s[open+1:len(s)-1], "%d", &arity); err != nil || arity < 0 {
		return FunctionNameAndArity{}, fmt.Errorf("invalid arity in %q", s)
	}
	return FunctionNameAndArity{Name: s[:open], Arity: arity}, nil
}

// FunctionParam is one parameter of a function signature. Type is nil while
// the parameter type has not been inferred yet.
type FunctionParam struct {
	Direction ParamDirection
	Type      *ValueType
	Name      string
}

// FunctionSignature describes a callable symbol. Signatures are created once
// per name and arity and are completed in place as types are inferred.
type FunctionSignature struct {
	Type       FunctionType
	Name       string
	Params     []FunctionParam
	FullyTyped bool

	// Usage flags collected during verification.
	Inserted bool
	Deleted  bool
	Read     bool
}

// NameAndArity returns the identity of the signature.
func (s *FunctionSignature) NameAndArity() FunctionNameAndArity {
	return FunctionNameAndArity{Name: s.Name, Arity: len(s.Params)}
}

// ParamName returns the declared name of parameter i, or its 1-based
// position when the parameter is unnamed.
func (s *FunctionSignature) ParamName(i int) string {
	if s.Params[i].Name != "" {
		return s.Params[i].Name
	}
	return fmt.Sprintf("%d", i+1)
}

// BuiltinFunction carries the opaque metadata of a header-declared function.
type BuiltinFunction struct {
	Signature *FunctionSignature
	Meta1     uint32
	Meta2     uint32
	Meta3     uint32
	Meta4     uint32
}

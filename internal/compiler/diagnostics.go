package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/osiris/internal/ir"
)

// Diagnostic codes (E00-E34, W20-W35)
const (
	// Internal errors (E00)
	ErrInternal = "E00" // invariant violated by an earlier phase

	// Registry errors (E01-E07)
	ErrTypeIDAlreadyDefined      = "E01" // type ID declared twice
	ErrTypeNameAlreadyDefined    = "E02" // type name declared twice
	ErrTypeIDInvalid             = "E03" // type ID outside the alias range
	ErrIntrinsicTypeIDInvalid    = "E04" // alias of a non-intrinsic type
	ErrSignatureAlreadyDefined   = "E05" // duplicate name/arity
	ErrUnresolvedTypeInSignature = "E06" // header parameter type unknown
	ErrGoalAlreadyDefined        = "E07" // duplicate goal name

	// Resolution errors (E08-E13)
	ErrUnresolvedGoal         = "E08" // parent goal not found
	ErrUnresolvedVariableType = "E09" // rule variable type not inferred
	ErrUnresolvedSignature    = "E10" // signature not fully typed
	ErrLocalTypeMismatch      = "E11" // intrinsic type mismatch
	ErrUnresolvedType         = "E12" // unknown type name
	ErrInvalidProcDefinition  = "E13" // bad PROC/QRY declaration or kind conflict

	// Symbol kind errors (E14-E19)
	ErrInvalidSymbolInFact             = "E14" // fact target not callable
	ErrInvalidSymbolInStatement        = "E15" // action target not callable
	ErrCanOnlyDeleteFromDatabase       = "E16" // NOT action on a non-database
	ErrInvalidSymbolInInitialCondition = "E17" // wrong first condition kind
	ErrInvalidFunctionTypeInCondition  = "E18" // condition not a query or database
	ErrUnresolvedSymbol                = "E19" // unknown function name

	// Value errors and warnings (W20-E34)
	WarnStringLtGtComparison     = "W20" // ordering operator on strings
	ErrGuidAliasMismatch         = "E21" // different GUID alias supplied
	WarnGuidPrefixNotKnown       = "W22" // GUID constant with unknown prefix
	WarnRuleNamingStyle          = "W23" // PROC_/QRY_ naming
	ErrParamNotBound             = "E24" // variable read before binding
	WarnUnusedDatabase           = "W25" // database written or read only (DOS2)
	ErrUnusedDatabase            = "E25" // database written or read only
	WarnDbNamingStyle            = "W26" // DB_ naming
	WarnUnresolvedGameObject     = "W27" // GUID not in the object table
	WarnGameObjectTypeMismatch   = "W28" // GUID alias differs from object type
	WarnGameObjectNameMismatch   = "W29" // name part differs from object name
	ErrProcTypeMismatch          = "E30" // PROC/QRY redefined with other types
	ErrCastToUnrelatedType       = "E31" // cast across intrinsic families
	ErrCastToUnrelatedGuidAlias  = "E32" // cast between GUID aliases
	ErrBinaryOperationSameRhsLhs = "E33" // same variable on both sides
	ErrRiskyComparison           = "E34" // String vs GuidString
	WarnUnwrittenDatabase        = "W35" // read and deleted, never inserted
)

// WarningNames maps the user-facing switch names to diagnostic codes.
var WarningNames = map[string]string{
	"alias-mismatch":    ErrGuidAliasMismatch,
	"guid-prefix":       WarnGuidPrefixNotKnown,
	"string-lt":         WarnStringLtGtComparison,
	"rule-naming":       WarnRuleNamingStyle,
	"db-naming":         WarnDbNamingStyle,
	"unused-db":         WarnUnusedDatabase,
	"unwritten-db":      WarnUnwrittenDatabase,
	"unresolved-object": WarnUnresolvedGameObject,
	"object-name":       WarnGameObjectNameMismatch,
	"object-type":       WarnGameObjectTypeMismatch,
}

// ResolveWarningName accepts either a switch name ("rule-naming") or a code
// ("W23") and returns the code.
func ResolveWarningName(name string) (string, error) {
	if code, ok := WarningNames[strings.ToLower(name)]; ok {
		return code, nil
	}
	upper := strings.ToUpper(name)
	for _, code := range WarningNames {
		if code == upper {
			return code, nil
		}
	}
	return "", fmt.Errorf("unknown warning %q", name)
}

// Level is the severity of a diagnostic.
type Level uint8

const (
	LevelError Level = iota + 1
	LevelWarning
)

// String returns "error" or "warning".
func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Diagnostic is a single compiler finding.
type Diagnostic struct {
	Location *ir.CodeLocation `json:"location,omitempty"`
	Level    Level            `json:"level"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	if d.Location != nil {
		return fmt.Sprintf("[%s] %s: %s", d.Code, d.Location, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Code, d.Message)
}

// CompilationLog collects diagnostics in the order they are raised.
type CompilationLog struct {
	Diagnostics []Diagnostic
	// WarningSwitches enables or disables individual warning codes. Codes
	// without an entry are enabled.
	WarningSwitches map[string]bool
	HasErrors       bool
}

// NewCompilationLog returns a log with the default warning switches.
func NewCompilationLog() *CompilationLog {
	return &CompilationLog{
		Diagnostics: []Diagnostic{},
		WarningSwitches: map[string]bool{
			WarnRuleNamingStyle:   false,
			WarnUnwrittenDatabase: false,
		},
	}
}

// Error records an error diagnostic. loc may be nil.
func (l *CompilationLog) Error(loc *ir.CodeLocation, code, format string, args ...any) {
	l.add(Diagnostic{Location: loc, Level: LevelError, Code: code, Message: fmt.Sprintf(format, args...)})
	l.HasErrors = true
}

// Warn records a warning unless its code is switched off.
func (l *CompilationLog) Warn(loc *ir.CodeLocation, code, format string, args ...any) {
	if enabled, ok := l.WarningSwitches[code]; ok && !enabled {
		return
	}
	l.add(Diagnostic{Location: loc, Level: LevelWarning, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (l *CompilationLog) add(d Diagnostic) {
	slog.Debug("diagnostic", "code", d.Code, "level", d.Level.String(), "message", d.Message)
	l.Diagnostics = append(l.Diagnostics, d)
}

// Errors returns the error-level diagnostics.
func (l *CompilationLog) Errors() []Diagnostic {
	return l.filter(LevelError)
}

// Warnings returns the warning-level diagnostics.
func (l *CompilationLog) Warnings() []Diagnostic {
	return l.filter(LevelWarning)
}

func (l *CompilationLog) filter(level Level) []Diagnostic {
	out := []Diagnostic{}
	for _, d := range l.Diagnostics {
		if d.Level == level {
			out = append(out, d)
		}
	}
	return out
}

// Codes returns the codes of all diagnostics in order.
func (l *CompilationLog) Codes() []string {
	codes := make([]string, len(l.Diagnostics))
	for i, d := range l.Diagnostics {
		codes[i] = d.Code
	}
	return codes
}

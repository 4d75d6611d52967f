package compiler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Clean Compilation
// =============================================================================

func TestVerifyCleanGoal(t *testing.T) {
	c := compileGoal(t, `
init:
  - database: DB_Counter
    elements: [{string: "kills"}, {int: 0}]
kb:
  - type: if
    conditions:
      - func: CharacterDied
        params: [{var: _Char}]
      - func: DB_Counter
        params: [{var: _Name}, {var: _Count}]
      - func: IntegerSum
        params: [{var: _Count}, {int: 1}, {var: _Next}]
    actions:
      - func: DB_Counter
        not: true
        params: [{var: _Name}, {var: _Count}]
      - func: DB_Counter
        params: [{var: _Name}, {var: _Next}]
      - func: SetOnStage
        params: [{var: _Char}, {int: 0}]
`)

	assert.Empty(t, c.Context.Log.Diagnostics, "diagnostics: %v", messages(c))

	sig := signature(t, c, "DB_Counter(2)")
	assert.True(t, sig.Inserted)
	assert.True(t, sig.Deleted)
	assert.True(t, sig.Read)
}

// =============================================================================
// Type Mismatch
// =============================================================================

func TestVerifyProcCalledWithWrongType(t *testing.T) {
	c := compileGoal(t, `
kb:
  - type: proc
    conditions:
      - func: PROC_Foo
        params: [{var: _X, type: INTEGER}]
    actions:
      - func: DebugBreak
        params: [{string: "x"}]
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
    actions:
      - func: PROC_Foo
        params: [{string: "text"}]
`)

	require.Equal(t, []string{ErrLocalTypeMismatch}, c.Context.Log.Codes())
	assert.Equal(t, `Parameter _X of Proc "PROC_Foo" expects Integer; String specified`, c.Context.Log.Diagnostics[0].Message)
}

func TestVerifyProcRedefinedWithOtherType(t *testing.T) {
	c := compileGoal(t, `
kb:
  - type: proc
    conditions:
      - func: PROC_Foo
        params: [{var: _X, type: INTEGER}]
  - type: proc
    conditions:
      - func: PROC_Foo
        params: [{var: _Y, type: REAL}]
`)

	assert.Equal(t, []string{ErrProcTypeMismatch}, c.Context.Log.Codes())
}

func TestVerifyParamCompatibility(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		health string
		codes  []string
	}{
		{"real literal", TargetDOS2DE, "{float: 1.5}", []string{}},
		{"integer literal for real", TargetDOS2DE, "{int: 1}", []string{ErrLocalTypeMismatch}},
		{"integer literal for real on bg3", TargetBG3, "{int: 1}", []string{}},
		{"string literal for real", TargetBG3, `{string: "1"}`, []string{ErrLocalTypeMismatch}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := compileGoal(t, `
kb:
  - type: if
    conditions:
      - func: CharacterDied
        params: [{var: _Char}]
    actions:
      - func: SetHealth
        params: [{var: _Char}, `+tt.health+`]
`, WithTarget(tt.target))

			assert.Equal(t, tt.codes, c.Context.Log.Codes(), "diagnostics: %v", messages(c))
		})
	}
}

func TestVerifyGuidAliasMismatch(t *testing.T) {
	c := compileGoal(t, `
kb:
  - type: if
    conditions:
      - func: ItemDestroyed
        params: [{var: _Item}]
    actions:
      - func: SetHealth
        params: [{var: _Item, type: CHARACTERGUID}, {float: 0.0}]
`)

	assert.Equal(t, []string{ErrCastToUnrelatedGuidAlias}, c.Context.Log.Codes())

	c = compileGoal(t, `
kb:
  - type: if
    conditions:
      - func: ItemDestroyed
        params: [{var: _Item}]
    actions:
      - func: SetHealth
        params: [{var: _Item, type: CHARACTERGUID}, {float: 0.0}]
`, WithTypeCoercion(true))
	assert.Empty(t, c.Context.Log.Codes(), "coercion allows the cast")
}

func TestVerifyCastToUnrelatedType(t *testing.T) {
	doc := `
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
    actions:
      - func: SetOnStage
        params: [{name: "S_Door_1c4d5e6f-0000-4000-8000-00000000abcd"}, {var: _Evt, type: INTEGER}]
`
	c := compileGoal(t, doc)
	assert.Equal(t, []string{ErrCastToUnrelatedType}, c.Context.Log.Codes())
	assert.Equal(t, "Cannot cast STRING variable _Evt to unrelated type INTEGER", c.Context.Log.Diagnostics[0].Message)

	c = compileGoal(t, doc, WithTypeCoercionWhitelist(mustName(t, "SetOnStage(2)")))
	assert.Empty(t, c.Context.Log.Codes())
}

func TestVerifyRiskyCast(t *testing.T) {
	c := compileGoal(t, `
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
    actions:
      - func: SetOnStage
        params: [{var: _Evt, type: GUIDSTRING}, {int: 1}]
`)

	assert.Equal(t, []string{ErrRiskyComparison}, c.Context.Log.Codes())
}

// =============================================================================
// Comparisons
// =============================================================================

const sameVariableGoal = `
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _A}]
      - op: "=="
        lvalue: {var: _A}
        rvalue: {var: _A}
    actions:
      - func: DebugBreak
        params: [{var: _A}]
`

func TestVerifySameVariableComparison(t *testing.T) {
	c := compileGoal(t, sameVariableGoal, WithTarget(TargetDOS2))
	assert.Equal(t, []string{ErrBinaryOperationSameRhsLhs}, c.Context.Log.Codes())

	c = compileGoal(t, sameVariableGoal, WithTarget(TargetDOS2DE))
	assert.Empty(t, c.Context.Log.Codes())
}

func TestVerifySameVariableExemptGoal(t *testing.T) {
	c := newTestCompiler(t, WithTarget(TargetDOS2))
	addGoal(t, c, sameVariableExemptGoal, sameVariableGoal)
	c.Compile()

	assert.Empty(t, c.Context.Log.Codes())
}

func TestVerifyComparisons(t *testing.T) {
	tests := []struct {
		name  string
		cmp   string
		codes []string
	}{
		{"numeric families mix", `{op: "<", lvalue: {var: _Count}, rvalue: {float: 1.0}}`, []string{}},
		{"integer against string", `{op: "==", lvalue: {var: _Count}, rvalue: {string: "a"}}`, []string{ErrLocalTypeMismatch}},
		{"string ordering", `{op: "<", lvalue: {var: _Evt}, rvalue: {string: "a"}}`, []string{WarnStringLtGtComparison}},
		{"string equality", `{op: "==", lvalue: {var: _Evt}, rvalue: {string: "a"}}`, []string{}},
		{"string against guid", `{op: "==", lvalue: {var: _Evt}, rvalue: {name: "S_Hero_1c4d5e6f-0000-4000-8000-00000000abcd"}}`, []string{ErrRiskyComparison}},
		{"unbound variable", `{op: "==", lvalue: {var: _Late}, rvalue: {int: 1}}`, []string{ErrParamNotBound}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := compileGoal(t, `
init:
  - database: DB_Count
    elements: [{int: 1}]
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
      - func: DB_Count
        params: [{var: _Count}]
      - `+tt.cmp+`
      - func: IntegerSum
        params: [{var: _Count}, {int: 1}, {var: _Late}]
`)

			assert.Equal(t, tt.codes, c.Context.Log.Codes(), "diagnostics: %v", messages(c))
		})
	}
}

// =============================================================================
// Binding
// =============================================================================

func TestVerifyUnboundVariableInAction(t *testing.T) {
	c := compileGoal(t, `
kb:
  - type: proc
    conditions:
      - func: PROC_Bar
        params: [{var: _A, type: STRING}]
    actions:
      - func: DebugBreak
        params: [{var: _B}]
`)

	require.Equal(t, []string{ErrParamNotBound}, c.Context.Log.Codes())
	assert.Equal(t, `Variable _B is not bound here (when used as parameter Message of SysCall "DebugBreak")`,
		c.Context.Log.Diagnostics[0].Message)
}

func TestVerifyUnboundQueryInput(t *testing.T) {
	c := compileGoal(t, `
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
      - func: IntegerSum
        params: [{var: _A}, {int: 1}, {var: _Sum}]
      - func: DB_Sum
        params: [{var: _A}]
    actions:
      - func: DB_Sum
        params: [{var: _Sum}]
`)

	assert.Equal(t, []string{ErrParamNotBound}, c.Context.Log.Codes(), "diagnostics: %v", messages(c))
}

func TestVerifyUnusedVariableInAction(t *testing.T) {
	c := compileGoal(t, `
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _}]
    actions:
      - func: DebugBreak
        params: [{var: _}]
`)

	require.Contains(t, c.Context.Log.Codes(), ErrParamNotBound)
	assert.Contains(t, messages(c), `Parameter Message of SysCall "DebugBreak" is an unused variable`)
}

func TestVerifyNegatedConditionPlaceholder(t *testing.T) {
	c := compileGoal(t, `
init:
  - database: DB_Pair
    elements: [{string: "a"}, {int: 1}]
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
      - func: DB_Pair
        not: true
        params: [{var: _Evt}, {var: _}]
    actions:
      - func: DB_Pair
        params: [{var: _Evt}, {int: 2}]
`)

	assert.Empty(t, c.Context.Log.Codes(), "diagnostics: %v", messages(c))
}

// =============================================================================
// Symbol Kinds
// =============================================================================

func TestVerifySymbolKinds(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code string
	}{
		{"fact on event", `
init:
  - database: TextEvent
    elements: [{string: "a"}]
`, ErrInvalidSymbolInFact},
		{"action on query", `
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
    actions:
      - func: IntegerSum
        params: [{int: 1}, {int: 2}, {int: 3}]
`, ErrInvalidSymbolInStatement},
		{"delete from call", `
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
    actions:
      - func: DebugBreak
        not: true
        params: [{var: _Evt}]
`, ErrCanOnlyDeleteFromDatabase},
		{"rule starting with query", `
kb:
  - type: if
    conditions:
      - func: IntegerSum
        params: [{int: 1}, {int: 2}, {var: _Sum}]
`, ErrInvalidSymbolInInitialCondition},
		{"event in later condition", `
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
      - func: TextEvent
        params: [{var: _Evt}]
`, ErrInvalidFunctionTypeInCondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := compileGoal(t, tt.doc)
			assert.Equal(t, []string{tt.code}, c.Context.Log.Codes(), "diagnostics: %v", messages(c))
		})
	}
}

func TestVerifyInitialConditionShape(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		message string
	}{
		{"comparison first", `
kb:
  - type: if
    conditions:
      - op: "=="
        lvalue: {int: 1}
        rvalue: {int: 1}
    actions:
      - func: DebugBreak
        params: [{string: "x"}]
`, "Initial rule condition must be a function, not a comparison"},
		{"negated first", `
init:
  - database: DB_Flag
    elements: [{int: 1}]
kb:
  - type: if
    conditions:
      - func: DB_Flag
        not: true
        params: [{int: 2}]
    actions:
      - func: DebugBreak
        params: [{string: "x"}]
`, `Initial rule condition "DB_Flag" cannot be negated`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCompiler(t)
			addUncheckedGoal(t, c, "Test", tt.doc)

			assert.False(t, c.Compile())
			assert.Equal(t, []string{ErrInvalidSymbolInInitialCondition}, c.Context.Log.Codes(),
				"diagnostics: %v", messages(c))
			assert.Equal(t, tt.message, c.Context.Log.Diagnostics[0].Message)
		})
	}
}

func TestVerifyUnresolvedSymbols(t *testing.T) {
	c := compileGoal(t, `
init:
  - database: DB_Broken
    elements: [{name: "foo", type: NOSUCHTYPE}]
`)
	assert.Equal(t, []string{ErrUnresolvedType, ErrUnresolvedSymbol}, c.Context.Log.Codes())

	c = compileGoal(t, `
kb:
  - type: if
    conditions:
      - func: DB_Untyped
        params: [{var: _X}]
    actions:
      - func: DebugBreak
        params: [{string: "a"}]
`)
	assert.Equal(t, []string{ErrUnresolvedSignature, ErrUnresolvedVariableType}, c.Context.Log.Codes())
	assert.Equal(t, `Signature of "DB_Untyped(1)" could not be determined`, c.Context.Log.Diagnostics[0].Message)
}

func TestVerifyUnresolvedParentGoal(t *testing.T) {
	c := compileGoal(t, `
parents:
  - goal: Missing
`)

	require.Equal(t, []string{ErrUnresolvedGoal}, c.Context.Log.Codes())
	assert.NotNil(t, c.Context.Log.Diagnostics[0].Location)
}

// =============================================================================
// Database Usage
// =============================================================================

func TestVerifyDatabaseNeverRead(t *testing.T) {
	doc := `
init:
  - database: DB_Test
    elements: [{int: 1}]
`
	c := compileGoal(t, doc, WithTarget(TargetDOS2DE))
	require.Equal(t, []string{ErrUnusedDatabase}, c.Context.Log.Codes())
	assert.Equal(t, `Database "DB_Test(1)" is written to, but is never used in a rule`, c.Context.Log.Diagnostics[0].Message)
	assert.Nil(t, c.Context.Log.Diagnostics[0].Location)

	c = compileGoal(t, doc, WithTarget(TargetDOS2))
	assert.Equal(t, []string{WarnUnusedDatabase}, c.Context.Log.Codes())
	assert.False(t, c.Context.Log.HasErrors)

	c = compileGoal(t, doc, WithIgnoredDatabases(mustName(t, "DB_Test(1)")))
	assert.Empty(t, c.Context.Log.Codes())
}

func TestVerifyDatabaseNeverWritten(t *testing.T) {
	c := compileGoal(t, `
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
      - func: DB_Flags
        params: [{var: _Evt}]
    actions:
      - func: DebugBreak
        params: [{var: _Evt}]
`)

	assert.Equal(t, []string{ErrUnusedDatabase}, c.Context.Log.Codes())
	assert.Contains(t, messages(c), `Database "DB_Flags(1)" is used in a rule, but is never written to`)
}

func TestVerifyDatabaseOnlyDeleted(t *testing.T) {
	doc := `
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
      - func: DB_Flags
        params: [{var: _Evt}]
    actions:
      - func: DB_Flags
        not: true
        params: [{var: _Evt}]
`
	c := compileGoal(t, doc)
	assert.Empty(t, c.Context.Log.Codes(), "W35 is disabled by default")

	c = newTestCompiler(t)
	c.Context.Log.WarningSwitches[WarnUnwrittenDatabase] = true
	addGoal(t, c, "Test", doc)
	c.Compile()
	assert.Equal(t, []string{WarnUnwrittenDatabase}, c.Context.Log.Codes())
}

func TestVerifyNamingStyle(t *testing.T) {
	c := newTestCompiler(t)
	c.Context.Log.WarningSwitches[WarnRuleNamingStyle] = true
	addGoal(t, c, "Test", `
init:
  - database: Counter
    elements: [{int: 1}]
kb:
  - type: proc
    conditions:
      - func: DoThing
        params: [{var: _X, type: INTEGER}]
    actions:
      - func: Counter
        params: [{var: _X}]
  - type: if
    conditions:
      - func: Counter
        params: [{var: _X}]
    actions:
      - func: DoThing
        params: [{var: _X}]
`)
	c.Compile()

	assert.Equal(t, []string{WarnRuleNamingStyle, WarnDbNamingStyle}, c.Context.Log.Codes(), "diagnostics: %v", messages(c))
}

// =============================================================================
// GUID Constants
// =============================================================================

const guidGoal = `
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
    actions:
      - func: SetOnStage
        params: [{name: "%s"}, {int: 1}]
`

func compileGUIDConstant(t *testing.T, constant string, opts ...CompilerOption) *Compiler {
	t.Helper()

	c := newTestCompiler(t, opts...)
	require.NoError(t, c.Context.RegisterGameObject("1c4d5e6f-0000-4000-8000-00000000abcd", "S_Hero", c.Context.LookupType("CHARACTERGUID")))
	addGoal(t, c, "Test", fmt.Sprintf(guidGoal, constant))
	c.Compile()
	return c
}

func TestVerifyGUIDConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant string
		target   Target
		checks   bool
		codes    []string
	}{
		{"known object", "S_Hero_1c4d5e6f-0000-4000-8000-00000000abcd", TargetDOS2DE, true, []string{}},
		{"typed prefix", "CHARACTERGUID_S_Hero_1c4d5e6f-0000-4000-8000-00000000abcd", TargetDOS2DE, true, []string{}},
		{"null guid", "NULL_00000000-0000-0000-0000-000000000000", TargetDOS2DE, true, []string{}},
		{"unknown object", "S_Ghost_99999999-0000-4000-8000-00000000abcd", TargetDOS2DE, true, []string{WarnUnresolvedGameObject}},
		{"unknown object unchecked", "S_Ghost_99999999-0000-4000-8000-00000000abcd", TargetDOS2DE, false, []string{}},
		{"wrong name", "S_Villain_1c4d5e6f-0000-4000-8000-00000000abcd", TargetDOS2DE, true, []string{WarnGameObjectNameMismatch}},
		{"unknown guid prefix", "BOOKGUID_S_Hero_1c4d5e6f-0000-4000-8000-00000000abcd", TargetDOS2DE, false, []string{WarnGuidPrefixNotKnown}},
		{"unknown guid prefix on bg3", "BOOKGUID_S_Hero_1c4d5e6f-0000-4000-8000-00000000abcd", TargetBG3, false, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := compileGUIDConstant(t, tt.constant, WithTarget(tt.target), WithGameObjectChecks(tt.checks))
			assert.Equal(t, tt.codes, c.Context.Log.Codes(), "diagnostics: %v", messages(c))
		})
	}
}

func TestVerifyGUIDConstantTypes(t *testing.T) {
	c := newTestCompiler(t, WithGameObjectChecks(true))
	require.NoError(t, c.Context.RegisterGameObject("1c4d5e6f-0000-4000-8000-00000000abcd", "S_Hero", c.Context.LookupType("CHARACTERGUID")))
	addGoal(t, c, "Test", `
init:
  - database: DB_Items
    elements: [{name: "S_Hero_1c4d5e6f-0000-4000-8000-00000000abcd", type: ITEMGUID}]
  - database: DB_Items
    elements: [{name: "CHARACTERGUID_S_Hero_1c4d5e6f-0000-4000-8000-00000000abcd", type: ITEMGUID}]
kb:
  - type: if
    conditions:
      - func: DB_Items
        params: [{var: _Item}]
    actions:
      - func: DebugBreak
        params: [{string: "item"}]
`)
	c.Compile()

	assert.Equal(t, []string{WarnGameObjectTypeMismatch, ErrGuidAliasMismatch, WarnGameObjectTypeMismatch},
		c.Context.Log.Codes(), "diagnostics: %v", messages(c))
}

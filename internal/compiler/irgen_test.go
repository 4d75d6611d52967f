package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/osiris/internal/ir"
)

const irgenGoal = `
parents:
  - goal: Start
    line: 30
init:
  - database: DB_Counter
    elements: [{string: "kills"}, {int: 0}]
    line: 2
  - database: DB_Hero
    elements: [{name: "S_Hero_1c4d5e6f-0000-4000-8000-00000000abcd", type: CHARACTERGUID}]
kb:
  - type: if
    line: 10
    column: 1
    conditions:
      - func: CharacterDied
        params: [{var: _Char, line: 11, column: 15}]
      - op: "!="
        lvalue: {var: _Char}
        rvalue: {name: "NULL_00000000-0000-0000-0000-000000000000"}
      - func: DB_Counter
        params: [{var: _Name}, {var: _Count, type: INTEGER}]
    actions:
      - func: DB_Counter
        not: true
        params: [{var: _Name}, {var: _Count}]
      - func: SetOnStage
        params: [{var: _Char}, {var: _}]
      - goal_completed: true
exit:
  - goal_completed: true
`

func TestGenerateGoalIR(t *testing.T) {
	c := newTestCompiler(t)
	goal := addGoal(t, c, "Dragons", irgenGoal)

	assert.Equal(t, "Dragons", goal.Name)
	require.Len(t, goal.ParentEdges, 1)
	assert.Equal(t, "Start", goal.ParentEdges[0].Goal)
	assert.Equal(t, 30, goal.ParentEdges[0].Location.StartLine)

	// Facts
	require.Len(t, goal.InitSection, 2)
	counter := goal.InitSection[0]
	assert.Equal(t, ir.FunctionNameAndArity{Name: "DB_Counter", Arity: 2}, *counter.Database)
	assert.Equal(t, "goals/Dragons.yaml", counter.Location.File)
	assert.Equal(t, 2, counter.Location.StartLine)
	assert.Equal(t, ir.ConstantString, counter.Elements[0].ConstType)
	assert.Equal(t, "STRING", counter.Elements[0].Type.Name)
	assert.Equal(t, int64(0), counter.Elements[1].IntegerValue)
	assert.Equal(t, "INTEGER", counter.Elements[1].Type.Name)

	hero := goal.InitSection[1].Elements[0]
	assert.Equal(t, ir.ConstantName, hero.ConstType)
	assert.Equal(t, "CHARACTERGUID", hero.Type.Name)
	assert.True(t, hero.InferredType)

	require.Len(t, goal.ExitSection, 1)
	assert.Nil(t, goal.ExitSection[0].Database)
	assert.Same(t, goal, goal.ExitSection[0].Goal)
}

func TestGenerateRuleIR(t *testing.T) {
	c := newTestCompiler(t)
	goal := addGoal(t, c, "Dragons", irgenGoal)

	require.Len(t, goal.KBSection, 1)
	rule := goal.KBSection[0]
	assert.Equal(t, ir.RuleIf, rule.Type)
	assert.Same(t, goal, rule.Goal)

	// _Char, _Name, _Count and one anonymous slot.
	require.Len(t, rule.Variables, 4)
	assert.Equal(t, "_Char", rule.Variables[0].Name)
	assert.Equal(t, "_", rule.Variables[3].Name)
	assert.True(t, rule.Variables[3].IsUnused())
	assert.Equal(t, "INTEGER", rule.Variables[2].Type.Name, "declared type seeds the rule variable")

	require.Len(t, rule.Conditions, 3)
	died, ok := rule.Conditions[0].(*ir.FuncCondition)
	require.True(t, ok)
	assert.Equal(t, -1, died.TupleSize)
	v := died.Params[0].(*ir.Variable)
	assert.Equal(t, 0, v.Index)
	assert.Nil(t, v.Type, "occurrence types are filled by propagation")
	assert.Equal(t, 11, v.Location.StartLine)
	assert.Equal(t, 15, v.Location.StartColumn)

	cmp, ok := rule.Conditions[1].(*ir.BinaryCondition)
	require.True(t, ok)
	assert.Equal(t, ir.RelOpNotEqual, cmp.Op)
	assert.Equal(t, "GUIDSTRING", cmp.RValue.ValueType().Name)

	require.Len(t, rule.Actions, 3)
	assert.True(t, rule.Actions[0].Not)
	assert.Nil(t, rule.Actions[2].Func)
	assert.Same(t, goal, rule.Actions[2].Goal)
}

func TestGenerateIRUnknownTypeAnnotation(t *testing.T) {
	c := newTestCompiler(t)
	addGoal(t, c, "Broken", `
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt, type: NOSUCHTYPE}]
`)

	require.Equal(t, []string{ErrUnresolvedType}, c.Context.Log.Codes())
	assert.Equal(t, `Type "NOSUCHTYPE" does not exist`, c.Context.Log.Diagnostics[0].Message)
}

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrAddVariableUnifiesNamedVariables(t *testing.T) {
	rule := NewRule(&Goal{Name: "Test"}, RuleIf, nil)
	intType := &ValueType{TypeID: 1, IntrinsicTypeID: TypeInteger, Name: "INTEGER"}

	a, err := rule.FindOrAddVariable("_Foo", intType)
	require.NoError(t, err)
	b, err := rule.FindOrAddVariable("_FOO", nil)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 0, a.Index)
	assert.Same(t, intType, b.Type)
	assert.Equal(t, -1, a.FirstBindingIndex)
	assert.Len(t, rule.Variables, 1)
}

func TestFindOrAddVariableAnonymousNeverShares(t *testing.T) {
	rule := NewRule(&Goal{Name: "Test"}, RuleIf, nil)

	a, err := rule.FindOrAddVariable("_", nil)
	require.NoError(t, err)
	b, err := rule.FindOrAddVariable("_", nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.Index, b.Index)
	assert.True(t, a.IsUnused())
	assert.True(t, b.IsUnused())
	assert.Empty(t, rule.VariablesByName)
}

func TestFindOrAddVariableRejectsBadNames(t *testing.T) {
	rule := NewRule(&Goal{Name: "Test"}, RuleIf, nil)
	_, err := rule.FindOrAddVariable("Foo", nil)
	assert.Error(t, err)
	assert.Empty(t, rule.Variables)
}

func TestSealedValues(t *testing.T) {
	values := []Value{
		&Constant{ConstType: ConstantInteger, IntegerValue: 7},
		&Variable{Index: 0},
	}
	for _, v := range values {
		assert.Nil(t, v.ValueType())
	}

	str := &ValueType{TypeID: 4, IntrinsicTypeID: TypeString, Name: "STRING"}
	values[1].SetValueType(str)
	assert.Same(t, str, values[1].ValueType())
}

func TestConstantString(t *testing.T) {
	assert.Equal(t, "7", (&Constant{ConstType: ConstantInteger, IntegerValue: 7}).String())
	assert.Equal(t, `"a"`, (&Constant{ConstType: ConstantString, StringValue: "a"}).String())
	assert.Equal(t, "S_Foo", (&Constant{ConstType: ConstantName, StringValue: "S_Foo"}).String())
}

func TestRelOp(t *testing.T) {
	op, err := ParseRelOp(">=")
	require.NoError(t, err)
	assert.Equal(t, RelOpGreaterOrEqual, op)
	assert.True(t, op.IsOrdering())
	assert.False(t, RelOpEqual.IsOrdering())
	assert.False(t, RelOpNotEqual.IsOrdering())

	_, err = ParseRelOp("=<")
	assert.Error(t, err)
}

func TestConditionBase(t *testing.T) {
	var c Condition = &FuncCondition{ConditionBase: ConditionBase{TupleSize: -1}}
	c.Base().TupleSize = 3
	assert.Equal(t, 3, c.(*FuncCondition).TupleSize)
}

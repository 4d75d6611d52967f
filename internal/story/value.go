package story

// Value is a constant in its story encoding. Which field is meaningful
// depends on the intrinsic type behind TypeID.
type Value struct {
	TypeID      uint32  `json:"type_id"`
	IntValue    int32   `json:"int_value"`
	Int64Value  int64   `json:"int64_value"`
	FloatValue  float32 `json:"float_value"`
	StringValue string  `json:"string_value"`
}

// TypedValue is a call parameter. Constants have IsValid set; variable
// slots have IsAType set.
type TypedValue struct {
	Value
	IsValid  bool `json:"is_valid"`
	OutParam bool `json:"out_param"`
	IsAType  bool `json:"is_a_type"`
}

// Variable is a rule variable slot, either as a call parameter or in the
// variable list of a rule node.
type Variable struct {
	TypedValue
	Index   int8   `json:"index"`
	Unused  bool   `json:"unused"`
	Adapted bool   `json:"adapted"`
	Name    string `json:"name,omitempty"`
}

// CallParam is a sealed interface for call parameters.
// Only *TypedValue and *Variable implement it.
type CallParam interface {
	callParam() // Sealed
	Typed() *TypedValue
}

func (*TypedValue) callParam() {}

// Typed returns the typed value itself.
func (v *TypedValue) Typed() *TypedValue { return v }

func (*Variable) callParam() {}

// Typed returns the embedded typed value.
func (v *Variable) Typed() *TypedValue { return &v.TypedValue }

// Call is a THEN action, INIT/EXIT action or goal completion. Goal
// completions have an empty Name and carry the goal index in
// GoalIDOrDebugHook.
type Call struct {
	Name              string      `json:"name"`
	Params            []CallParam `json:"params"`
	Negate            bool        `json:"negate"`
	GoalIDOrDebugHook int32       `json:"goal_id_or_debug_hook"`
}

// IsGoalCompletion reports whether the call completes a goal.
func (c *Call) IsGoalCompletion() bool {
	return c.Name == ""
}

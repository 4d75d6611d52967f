package story

// DebugInfoVersion is the version of the debug side table.
const DebugInfoVersion = 2

// DatabaseDebugInfo describes an emitted database. Intermediate databases
// have an empty Name.
type DatabaseDebugInfo struct {
	ID         uint32   `json:"id"`
	Name       string   `json:"name"`
	ParamTypes []uint32 `json:"param_types"`
}

// ActionDebugInfo locates a single action.
type ActionDebugInfo struct {
	Line uint32 `json:"line"`
}

// GoalDebugInfo describes an emitted goal.
type GoalDebugInfo struct {
	ID          uint32            `json:"id"`
	Name        string            `json:"name"`
	Path        string            `json:"path"`
	InitActions []ActionDebugInfo `json:"init_actions"`
	ExitActions []ActionDebugInfo `json:"exit_actions"`
}

// RuleVariableDebugInfo describes one rule variable.
type RuleVariableDebugInfo struct {
	Index  uint32 `json:"index"`
	Name   string `json:"name"`
	Type   uint32 `json:"type"`
	Unused bool   `json:"unused"`
}

// RuleDebugInfo describes an emitted rule, keyed by its rule node index.
type RuleDebugInfo struct {
	ID                  uint32                  `json:"id"`
	GoalID              uint32                  `json:"goal_id"`
	Name                string                  `json:"name"`
	Variables           []RuleVariableDebugInfo `json:"variables"`
	Actions             []ActionDebugInfo       `json:"actions"`
	ConditionsStartLine uint32                  `json:"conditions_start_line"`
	ConditionsEndLine   uint32                  `json:"conditions_end_line"`
	ActionsStartLine    uint32                  `json:"actions_start_line"`
	ActionsEndLine      uint32                  `json:"actions_end_line"`
}

// NodeDebugInfo describes an emitted node. ColumnToVariableMaps maps each
// output column to the rule variable index it carries.
type NodeDebugInfo struct {
	ID                   uint32          `json:"id"`
	RuleID               uint32          `json:"rule_id"`
	Line                 int32           `json:"line"`
	ColumnToVariableMaps map[int32]int32 `json:"column_to_variable_maps"`
	DatabaseID           uint32          `json:"database_id"`
	Name                 string          `json:"name"`
	Type                 NodeType        `json:"type"`
	ParentNodeID         uint32          `json:"parent_node_id"`
	FunctionName         string          `json:"function_name,omitempty"`
}

// FunctionParamDebugInfo describes one function parameter.
type FunctionParamDebugInfo struct {
	TypeID uint32 `json:"type_id"`
	Name   string `json:"name"`
	Out    bool   `json:"out"`
}

// FunctionDebugInfo describes a function table entry.
type FunctionDebugInfo struct {
	Name   string                   `json:"name"`
	Params []FunctionParamDebugInfo `json:"params"`
	TypeID uint32                   `json:"type_id"`
}

// DebugInfo maps emitted entities back to their source.
type DebugInfo struct {
	Version   uint32                        `json:"version"`
	Databases map[uint32]*DatabaseDebugInfo `json:"databases"`
	Goals     map[uint32]*GoalDebugInfo     `json:"goals"`
	Rules     map[uint32]*RuleDebugInfo     `json:"rules"`
	Nodes     map[uint32]*NodeDebugInfo     `json:"nodes"`
	// Functions is keyed by Name(Arity).
	Functions map[string]*FunctionDebugInfo `json:"functions"`
}

// NewDebugInfo returns an empty debug table.
func NewDebugInfo() *DebugInfo {
	return &DebugInfo{
		Version:   DebugInfoVersion,
		Databases: make(map[uint32]*DatabaseDebugInfo),
		Goals:     make(map[uint32]*GoalDebugInfo),
		Rules:     make(map[uint32]*RuleDebugInfo),
		Nodes:     make(map[uint32]*NodeDebugInfo),
		Functions: make(map[string]*FunctionDebugInfo),
	}
}

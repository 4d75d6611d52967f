package emitter

import (
	"os"
	"path/filepath"

	"github.com/roach88/osiris/internal/ir"
	"github.com/roach88/osiris/internal/story"
)

// addNodeDebugInfo records a node. With a location, the first numColumns
// used rule variables are mapped to output columns.
func (e *Emitter) addNodeDebugInfo(n story.Node, loc *ir.CodeLocation, numColumns int, rule *ir.Rule) {
	if e.debug == nil {
		return
	}

	base := n.Base()
	info := &story.NodeDebugInfo{
		ID:                   uint32(base.Index),
		ColumnToVariableMaps: make(map[int32]int32),
		DatabaseID:           uint32(base.Database),
		Name:                 base.Name,
		Type:                 n.Type(),
	}

	switch n := n.(type) {
	case *story.JoinNode:
		info.ParentNodeID = uint32(n.Left.Parent)
	case story.RelNode:
		info.ParentNodeID = uint32(n.Rel().Parent)
	}

	if base.Name != "" {
		info.FunctionName = ir.FunctionNameAndArity{Name: base.Name, Arity: int(base.NumParams)}.String()
	}

	if loc != nil {
		info.Line = int32(loc.StartLine)
		column := 0
		for i := 0; column < numColumns && i < len(rule.Variables); i++ {
			if rule.Variables[i].IsUnused() {
				continue
			}
			info.ColumnToVariableMaps[int32(column)] = int32(i)
			column++
		}
	}

	e.debug.Nodes[info.ID] = info
}

// assignRuleDebugIDs attributes the join, comparison and rule nodes
// emitted for a rule, plus the last node, to the rule.
func (e *Emitter) assignRuleDebugIDs(first story.NodeRef, rule *story.RuleNode) {
	if e.debug == nil {
		return
	}

	last := story.NodeRef(len(e.story.Nodes))
	for ref := first; ref <= last; ref++ {
		_, isTree := e.story.Node(ref).(story.TreeNode)
		if isTree || ref == last {
			e.debug.Nodes[uint32(ref)].RuleID = uint32(rule.Index)
		}
	}
}

func (e *Emitter) addFunctionDebugInfo(f *story.Function, sig *ir.FunctionSignature) {
	if e.debug == nil {
		return
	}

	info := &story.FunctionDebugInfo{
		Name:   f.Signature.Name,
		Params: make([]story.FunctionParamDebugInfo, len(sig.Params)),
		TypeID: uint32(f.Type),
	}
	for i, p := range sig.Params {
		info.Params[i] = story.FunctionParamDebugInfo{
			TypeID: uint32(p.Type.IntrinsicTypeID),
			Name:   p.Name,
			Out:    p.Direction == ir.DirectionOut,
		}
	}
	e.debug.Functions[sig.NameAndArity().String()] = info
}

func (e *Emitter) addDatabaseDebugInfo(db *story.Database, name string) {
	if e.debug == nil {
		return
	}

	e.debug.Databases[uint32(db.Index)] = &story.DatabaseDebugInfo{
		ID:         uint32(db.Index),
		Name:       name,
		ParamTypes: append([]uint32(nil), db.ParamTypes...),
	}
}

func (e *Emitter) addGoalDebugInfo(osiGoal *story.Goal, goal *ir.Goal) {
	if e.debug == nil {
		return
	}

	info := &story.GoalDebugInfo{
		ID:          uint32(osiGoal.Index),
		Name:        goal.Name,
		InitActions: make([]story.ActionDebugInfo, 0, len(goal.InitSection)),
		ExitActions: make([]story.ActionDebugInfo, 0, len(goal.ExitSection)),
	}
	if goal.Location != nil {
		info.Path = goalPath(goal.Location.File)
	}
	for _, f := range goal.InitSection {
		info.InitActions = append(info.InitActions, story.ActionDebugInfo{Line: startLine(f.Location)})
	}
	for _, f := range goal.ExitSection {
		info.ExitActions = append(info.ExitActions, story.ActionDebugInfo{Line: startLine(f.Location)})
	}
	e.debug.Goals[info.ID] = info
}

// goalPath returns the absolute path of an existing goal file, or file
// unchanged.
func goalPath(file string) string {
	if _, err := os.Stat(file); err != nil {
		return file
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return file
	}
	return abs
}

func (e *Emitter) addRuleDebugInfo(node *story.RuleNode, rule *ir.Rule, initial *ir.FuncCondition) {
	if e.debug == nil {
		return
	}

	info := &story.RuleDebugInfo{
		ID:                  uint32(node.Index),
		GoalID:              uint32(len(e.story.Goals)),
		Name:                initial.Func.String(),
		Variables:           make([]story.RuleVariableDebugInfo, len(rule.Variables)),
		Actions:             make([]story.ActionDebugInfo, len(rule.Actions)),
		ConditionsStartLine: startLine(rule.Location),
		ConditionsEndLine:   endLine(rule.Conditions[len(rule.Conditions)-1].Base().Location),
		ActionsEndLine:      endLine(rule.Location),
	}
	if len(rule.Actions) > 0 {
		info.ActionsStartLine = startLine(rule.Actions[0].Location)
	}

	for i, v := range rule.Variables {
		info.Variables[i] = story.RuleVariableDebugInfo{
			Index:  uint32(v.Index),
			Name:   v.Name,
			Type:   uint32(v.Type.IntrinsicTypeID),
			Unused: v.IsUnused(),
		}
	}
	for i, a := range rule.Actions {
		info.Actions[i] = story.ActionDebugInfo{Line: startLine(a.Location)}
	}

	e.debug.Rules[info.ID] = info
}

func startLine(loc *ir.CodeLocation) uint32 {
	if loc == nil {
		return 0
	}
	return uint32(loc.StartLine)
}

func endLine(loc *ir.CodeLocation) uint32 {
	if loc == nil {
		return 0
	}
	return uint32(loc.EndLine)
}

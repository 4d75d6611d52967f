package emitter

import (
	"fmt"
	"sort"

	"github.com/roach88/osiris/internal/ir"
	"github.com/roach88/osiris/internal/story"
)

// referencedDatabase tracks the database a rule chain reads from and how
// many nodes away it is.
type referencedDatabase struct {
	node        story.NodeRef
	indirection uint8
	join        story.NodeEntryItem
}

func (r *referencedDatabase) isValid() bool {
	return r.node.IsValid()
}

func (e *Emitter) addNode(n story.Node) {
	e.story.AddNode(n)
	e.addNodeDebugInfo(n, nil, 0, nil)
}

func hasDatabase(n story.Node) bool {
	return n.Base().Database.IsValid()
}

// addJoinTarget links node to its successor target.
func (e *Emitter) addJoinTarget(node, target story.Node, entry story.EntryPoint, goal *story.Goal) {
	item := story.NodeEntryItem{
		Node:       target.Base().Index,
		EntryPoint: entry,
		Goal:       goal.Index,
	}

	switch n := node.(type) {
	case story.TreeNode:
		n.Tree().Next = item
	case *story.DataNode:
		n.ReferencedBy = append(n.ReferencedBy, item)
	}

	switch t := target.(type) {
	case story.RelNode:
		t.Rel().Parent = node.Base().Index
	case *story.JoinNode:
		if entry == story.EntryLeft {
			t.Left.Parent = node.Base().Index
		} else {
			t.Right.Parent = node.Base().Index
		}
	}
}

// =============================================================================
// Adapters
// =============================================================================

// emitIdentityAdapter maps the first tupleSize rule columns onto
// themselves. With allowPartial unused columns are dropped from the
// physical row instead of being mapped to -1.
func (e *Emitter) emitIdentityAdapter(rule *ir.Rule, tupleSize int, allowPartial bool) *story.Adapter {
	a := e.story.AddAdapter()
	tupleSize = min(tupleSize, len(rule.Variables))

	for i := 0; i < tupleSize; i++ {
		if rule.Variables[i].IsUnused() {
			if !allowPartial {
				a.LogicalIndices = append(a.LogicalIndices, -1)
			}
			continue
		}
		a.LogicalIndices = append(a.LogicalIndices, int8(i))
		a.LogicalToPhysical = append(a.LogicalToPhysical, story.ColumnMapping{
			Logical:  uint8(i),
			Physical: uint8(len(a.LogicalIndices) - 1),
		})
	}
	return a
}

// emitJoinAdapter maps the parameters of a function condition onto rule
// columns. Constants become adapter constants.
func (e *Emitter) emitJoinAdapter(cond *ir.FuncCondition, rule *ir.Rule) (*story.Adapter, error) {
	a := e.story.AddAdapter()

	for i, p := range cond.Params {
		switch p := p.(type) {
		case *ir.Constant:
			v, err := emitValue(p)
			if err != nil {
				return nil, err
			}
			a.Constants.Physical = append(a.Constants.Physical, v)
			a.Constants.Logical = append(a.Constants.Logical, story.LogicalValue{Index: i, Value: v})
			a.LogicalIndices = append(a.LogicalIndices, -1)
		case *ir.Variable:
			if rule.Variable(p).IsUnused() {
				a.LogicalIndices = append(a.LogicalIndices, -1)
				continue
			}
			a.LogicalIndices = append(a.LogicalIndices, int8(p.Index))
			if !a.HasLogical(uint8(p.Index)) {
				a.LogicalToPhysical = append(a.LogicalToPhysical, story.ColumnMapping{
					Logical:  uint8(p.Index),
					Physical: uint8(len(a.LogicalIndices) - 1),
				})
			}
		}
	}

	sort.SliceStable(a.LogicalToPhysical, func(i, j int) bool {
		return a.LogicalToPhysical[i].Logical < a.LogicalToPhysical[j].Logical
	})
	return a, nil
}

// emitNodeAdapter emits the adapter reading the output of node, which was
// produced for cond.
func (e *Emitter) emitNodeAdapter(rule *ir.Rule, cond ir.Condition, node story.Node) (*story.Adapter, error) {
	switch node.(type) {
	case *story.DataNode, *story.QueryNode:
		fc, ok := cond.(*ir.FuncCondition)
		if !ok {
			return nil, fmt.Errorf("function node %s emitted for a comparison", node.Base().Name)
		}
		return e.emitJoinAdapter(fc, rule)
	case *story.RelOpNode, *story.JoinNode:
		return e.emitIdentityAdapter(rule, cond.Base().TupleSize, true), nil
	default:
		return nil, fmt.Errorf("cannot emit an adapter for a %s node", node.Type())
	}
}

// =============================================================================
// Rule nodes
// =============================================================================

func (e *Emitter) emitJoin(left story.Node, leftCond ir.Condition, rightCond *ir.FuncCondition, rule *ir.Rule, goal *story.Goal, refDB *referencedDatabase) (*story.JoinNode, error) {
	if refDB.isValid() {
		refDB.indirection++
	}

	right, err := e.emitName(rightCond.Func, refCondition)
	if err != nil {
		return nil, err
	}
	join := &story.JoinNode{Negated: rightCond.Not}

	leftAdapter, err := e.emitNodeAdapter(rule, leftCond, left)
	if err != nil {
		return nil, err
	}
	rightAdapter, err := e.emitNodeAdapter(rule, rightCond, right)
	if err != nil {
		return nil, err
	}

	var db *story.Database
	if hasDatabase(left) && hasDatabase(right) {
		db, err = e.emitIntermediateDatabase(rule, rightCond.TupleSize)
		if err != nil {
			return nil, err
		}
		if db != nil {
			join.Database = db.Index
		}
	}

	join.Left.Adapter = leftAdapter.Index
	join.Right.Adapter = rightAdapter.Index
	if db == nil {
		join.Left.Database = refDB.node
		join.Left.Indirection = refDB.indirection
		join.Left.Join = refDB.join
	}

	columns := make(map[uint8]bool)
	for _, m := range leftAdapter.LogicalToPhysical {
		columns[m.Logical] = true
	}
	for _, m := range rightAdapter.LogicalToPhysical {
		columns[m.Logical] = true
	}

	e.story.AddNode(join)

	if db != nil {
		refDB.node = join.Index
		refDB.indirection = 0
		refDB.join = story.NodeEntryItem{Node: join.Index, EntryPoint: story.EntryNone, Goal: goal.Index}
	} else if refDB.isValid() && hasDatabase(left) {
		refDB.join = story.NodeEntryItem{Node: join.Index, EntryPoint: story.EntryLeft, Goal: goal.Index}
		join.Left.Join = refDB.join
	}

	if dn, ok := right.(*story.DataNode); ok && dn.Kind == story.NodeDatabase && db == nil {
		join.Right.Database = right.Base().Index
		join.Right.Indirection = 1
		join.Right.Join = story.NodeEntryItem{Node: join.Index, EntryPoint: story.EntryRight, Goal: goal.Index}
	}

	e.addJoinTarget(left, join, story.EntryLeft, goal)
	e.addJoinTarget(right, join, story.EntryRight, goal)
	e.addNodeDebugInfo(join, rightCond.Location, len(columns), rule)

	if join.Right.Indirection != 0 && join.Left.Indirection != 0 && join.Right.Indirection < join.Left.Indirection {
		refDB.node = join.Right.Database
		refDB.indirection = join.Right.Indirection
		refDB.join = join.Right.Join
	}

	return join, nil
}

func (e *Emitter) emitRelOp(rule *ir.Rule, cond *ir.BinaryCondition, refDB *referencedDatabase, prevCond ir.Condition, prev story.Node) (*story.RelOpNode, error) {
	if refDB.isValid() {
		refDB.indirection++
	}

	var db *story.Database
	if hasDatabase(prev) {
		var err error
		if db, err = e.emitIntermediateDatabase(rule, cond.TupleSize); err != nil {
			return nil, err
		}
	}

	adapter, err := e.emitNodeAdapter(rule, prevCond, prev)
	if err != nil {
		return nil, err
	}

	relOp := &story.RelOpNode{Op: cond.Op}
	relOp.Adapter = adapter.Index
	if relOp.LeftValue, relOp.LeftValueIndex, err = relOpOperand(cond.LValue); err != nil {
		return nil, err
	}
	if relOp.RightValue, relOp.RightValueIndex, err = relOpOperand(cond.RValue); err != nil {
		return nil, err
	}

	if db != nil {
		relOp.Database = db.Index
	} else {
		relOp.RelDatabase = refDB.node
		relOp.RelJoin = refDB.join
		relOp.RelDatabaseIndirection = refDB.indirection
	}

	e.story.AddNode(relOp)

	if db != nil {
		db.OwnerNode = relOp.Index
		refDB.node = relOp.Index
		refDB.indirection = 0
		refDB.join = story.NodeEntryItem{}
	}

	return relOp, nil
}

// relOpOperand returns the constant and column index of a comparison
// operand. Variables carry a None-typed value; constants use index -1.
func relOpOperand(v ir.Value) (story.Value, int8, error) {
	switch v := v.(type) {
	case *ir.Constant:
		val, err := emitValue(v)
		return val, -1, err
	case *ir.Variable:
		return story.Value{TypeID: uint32(ir.TypeUnknown)}, int8(v.Index), nil
	default:
		return story.Value{}, 0, fmt.Errorf("unexpected operand %T", v)
	}
}

func (e *Emitter) emitRuleNode(rule *ir.Rule, goal *story.Goal, refDB *referencedDatabase, lastCond ir.Condition, prev story.Node) (*story.RuleNode, error) {
	if refDB.isValid() {
		refDB.indirection++
	}

	var db *story.Database
	if hasDatabase(prev) {
		var err error
		if db, err = e.emitIntermediateDatabase(rule, len(rule.Variables)); err != nil {
			return nil, err
		}
		if db != nil {
			// The rule reads its own database from here on.
			refDB = &referencedDatabase{}
		}
	}

	adapter, err := e.emitNodeAdapter(rule, lastCond, prev)
	if err != nil {
		return nil, err
	}

	node := &story.RuleNode{
		Calls:       make([]story.Call, 0, len(rule.Actions)),
		Variables:   make([]story.Variable, 0, len(rule.Variables)),
		DerivedGoal: goal.Index,
		IsQuery:     rule.Type == ir.RuleQuery,
	}
	node.Adapter = adapter.Index
	node.RelDatabase = refDB.node
	node.RelJoin = refDB.join
	node.RelDatabaseIndirection = refDB.indirection
	if db != nil {
		node.Database = db.Index
	}

	for _, v := range rule.Variables {
		osiVar, err := emitVariable(v)
		if err != nil {
			return nil, err
		}
		node.Variables = append(node.Variables, osiVar)
	}

	e.story.AddNode(node)
	if db != nil {
		db.OwnerNode = node.Index
	}

	if refDB.isValid() && refDB.indirection == 1 {
		node.RelJoin = story.NodeEntryItem{Node: node.Index, EntryPoint: story.EntryNone, Goal: goal.Index}
	}

	return node, nil
}

// emitUserQueryInitialFunc returns the definition node of a QRY, emitting
// it under the Name__DEF__ function entry on first use.
func (e *Emitter) emitUserQueryInitialFunc(cond *ir.FuncCondition) (story.Node, error) {
	sig := e.ctx.LookupSignature(cond.Func)
	if sig == nil {
		return nil, fmt.Errorf("function %s is not registered", cond.Func)
	}

	defName := ir.FunctionNameAndArity{Name: sig.Name + userQueryDefinitionSuffix, Arity: len(sig.Params)}
	if node, ok := e.funcs[defName.Key()]; ok {
		return node, nil
	}

	node := &story.DataNode{Kind: story.NodeProc, ReferencedBy: []story.NodeEntryItem{}}
	e.addFunctionNode(node, sig)

	defSig := *sig
	defSig.Name = defName.Name
	f, err := e.emitFunction(ir.FunctionUserQuery, &defSig, node, nil)
	if err != nil {
		return nil, err
	}
	if query, ok := e.funcEntries[sig.NameAndArity().Key()]; ok {
		f.ConditionReferences = query.ConditionReferences
		f.ActionReferences = query.ActionReferences
	}

	e.funcs[defName.Key()] = node
	return node, nil
}

func (e *Emitter) emitRule(rule *ir.Rule, goal *story.Goal) (*story.RuleNode, error) {
	refDB := &referencedDatabase{}

	initial, ok := rule.InitialCondition().(*ir.FuncCondition)
	if !ok {
		return nil, fmt.Errorf("rule at %s does not start with a function condition", rule.Location)
	}
	if initial.Not {
		return nil, fmt.Errorf("rule at %s starts with a negated condition", rule.Location)
	}

	var initialNode story.Node
	var err error
	if rule.Type == ir.RuleQuery {
		initialNode, err = e.emitUserQueryInitialFunc(initial)
	} else {
		initialNode, err = e.emitName(initial.Func, refCondition)
		if dn, ok := initialNode.(*story.DataNode); ok && dn.Kind == story.NodeDatabase {
			refDB.node = dn.Index
		}
	}
	if err != nil {
		return nil, err
	}

	lastNode := initialNode
	var lastCond ir.Condition = initial
	for _, cond := range rule.Conditions[1:] {
		switch cond := cond.(type) {
		case *ir.BinaryCondition:
			relOp, err := e.emitRelOp(rule, cond, refDB, lastCond, lastNode)
			if err != nil {
				return nil, err
			}
			e.addJoinTarget(lastNode, relOp, story.EntryNone, goal)
			e.addNodeDebugInfo(relOp, cond.Location, len(e.story.Adapter(relOp.Adapter).LogicalToPhysical), rule)
			lastNode = relOp
		case *ir.FuncCondition:
			join, err := e.emitJoin(lastNode, lastCond, cond, rule, goal, refDB)
			if err != nil {
				return nil, err
			}
			lastNode = join
		}
		lastCond = cond
	}

	node, err := e.emitRuleNode(rule, goal, refDB, lastCond, lastNode)
	if err != nil {
		return nil, err
	}
	e.addJoinTarget(lastNode, node, story.EntryNone, goal)
	e.rules = append(e.rules, emittedRule{rule: rule, node: node})

	used := 0
	for _, v := range rule.Variables {
		if !v.IsUnused() {
			used++
		}
	}
	e.addNodeDebugInfo(node, rule.Location, used, rule)
	e.addRuleDebugInfo(node, rule, initial)

	return node, nil
}

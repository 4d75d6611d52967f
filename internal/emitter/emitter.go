package emitter

import (
	"fmt"
	"log/slog"

	"github.com/roach88/osiris/internal/compiler"
	"github.com/roach88/osiris/internal/ir"
	"github.com/roach88/osiris/internal/story"
)

// userQueryDefinitionSuffix names the function entry of a QRY definition.
const userQueryDefinitionSuffix = "__DEF__"

// nameRefType is the kind of reference made to a function.
type nameRefType uint8

const (
	refNone      nameRefType = iota // emitted, not referenced
	refCondition                    // referenced from an IF part
	refAction                       // referenced from a THEN part or INIT/EXIT
)

// Emitter lowers the goals of a compilation context into a story.
type Emitter struct {
	ctx       *compiler.CompilationContext
	withDebug bool

	story *story.Story
	debug *story.DebugInfo

	goals       map[*ir.Goal]*story.Goal
	funcs       map[ir.NameKey]story.Node
	funcEntries map[ir.NameKey]*story.Function
	rules       []emittedRule
}

type emittedRule struct {
	rule *ir.Rule
	node *story.RuleNode
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithDebugInfo makes EmitStory collect debug info.
func WithDebugInfo(enabled bool) Option {
	return func(e *Emitter) {
		e.withDebug = enabled
	}
}

// New returns an emitter over ctx. The context must hold goals that
// compiled without errors.
func New(ctx *compiler.CompilationContext, opts ...Option) *Emitter {
	e := &Emitter{ctx: ctx}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DebugInfo returns the debug info of the last EmitStory call, nil unless
// enabled with WithDebugInfo.
func (e *Emitter) DebugInfo() *story.DebugInfo {
	return e.debug
}

// EmitStory builds the story graph. Each call starts from an empty story.
func (e *Emitter) EmitStory() (*story.Story, error) {
	e.story = story.New()
	e.debug = nil
	if e.withDebug {
		e.debug = story.NewDebugInfo()
	}
	e.goals = make(map[*ir.Goal]*story.Goal)
	e.funcs = make(map[ir.NameKey]story.Node)
	e.funcEntries = make(map[ir.NameKey]*story.Function)
	e.rules = nil

	e.addStoryTypes()
	if err := e.emitGoals(); err != nil {
		return nil, err
	}
	if err := e.emitHeaderFunctions(); err != nil {
		return nil, err
	}
	if err := e.emitParentGoals(); err != nil {
		return nil, err
	}

	slog.Debug("story emitted",
		"goals", len(e.story.Goals),
		"functions", len(e.story.Functions),
		"nodes", len(e.story.Nodes),
		"adapters", len(e.story.Adapters),
		"databases", len(e.story.Databases))
	return e.story, nil
}

func (e *Emitter) addStoryTypes() {
	for _, t := range e.ctx.Types() {
		osiType := story.OsirisType{
			Index: uint8(t.TypeID),
			Name:  t.Name,
		}
		if t.IsAlias() {
			osiType.Alias = uint8(t.IntrinsicTypeID)
		} else {
			osiType.IsBuiltin = true
		}
		e.story.Types = append(e.story.Types, osiType)
	}
}

// =============================================================================
// Values
// =============================================================================

func emitValue(c *ir.Constant) (story.Value, error) {
	if c.Type == nil {
		return story.Value{}, fmt.Errorf("constant %s has no type", c)
	}
	return story.Value{
		TypeID:      c.Type.TypeID,
		IntValue:    int32(c.IntegerValue),
		Int64Value:  c.IntegerValue,
		FloatValue:  c.FloatValue,
		StringValue: c.StringValue,
	}, nil
}

func emitConstant(c *ir.Constant) (*story.TypedValue, error) {
	v, err := emitValue(c)
	if err != nil {
		return nil, err
	}
	return &story.TypedValue{Value: v, IsValid: true}, nil
}

func emitTypedValue(v ir.Value) (story.CallParam, error) {
	switch v := v.(type) {
	case *ir.Variable:
		if v.Type == nil {
			return nil, fmt.Errorf("variable #%d has no type", v.Index)
		}
		return &story.Variable{
			TypedValue: story.TypedValue{Value: story.Value{TypeID: v.Type.TypeID}, IsAType: true},
			Index:      int8(v.Index),
			Adapted:    true,
		}, nil
	case *ir.Constant:
		return emitConstant(v)
	default:
		return nil, fmt.Errorf("unexpected value %T", v)
	}
}

func emitVariable(v *ir.RuleVariable) (story.Variable, error) {
	if v.Type == nil {
		return story.Variable{}, fmt.Errorf("rule variable %s has no type", v.Name)
	}
	return story.Variable{
		TypedValue: story.TypedValue{Value: story.Value{TypeID: v.Type.TypeID}, IsAType: true},
		Index:      int8(v.Index),
		Unused:     v.IsUnused(),
		Adapted:    !v.IsUnused(),
		Name:       v.Name,
	}, nil
}

// =============================================================================
// Functions
// =============================================================================

func emitFunctionSignature(sig *ir.FunctionSignature) (story.FunctionSignature, error) {
	n := len(sig.Params)
	osiSig := story.FunctionSignature{
		Name:         sig.Name,
		OutParamMask: make([]byte, ((n+7)&^7)>>3),
		ParamTypes:   make([]uint32, n),
	}

	for i, p := range sig.Params {
		if p.Type == nil {
			return story.FunctionSignature{}, fmt.Errorf("parameter %d of %s has no type", i+1, sig.NameAndArity())
		}
		if p.Direction == ir.DirectionOut {
			osiSig.OutParamMask[i>>3] |= byte(0x80 >> (i & 7))
		}
		osiSig.ParamTypes[i] = p.Type.TypeID
	}
	return osiSig, nil
}

// emitFunction adds a function entry. builtin carries the header metadata
// and may be nil.
func (e *Emitter) emitFunction(kind ir.FunctionType, sig *ir.FunctionSignature, node story.Node, builtin *ir.BuiltinFunction) (*story.Function, error) {
	osiSig, err := emitFunctionSignature(sig)
	if err != nil {
		return nil, err
	}

	f := &story.Function{
		Type:      kind,
		Signature: osiSig,
	}
	if node != nil {
		f.Node = node.Base().Index
	}
	if builtin != nil {
		f.Meta1, f.Meta2, f.Meta3, f.Meta4 = builtin.Meta1, builtin.Meta2, builtin.Meta3, builtin.Meta4
	}

	name := sig.NameAndArity()
	e.funcEntries[name.Key()] = f
	e.story.AddFunction(f)
	e.addFunctionDebugInfo(f, sig)
	return f, nil
}

// emitName returns the node of a function, emitting it on first use, and
// counts the reference. Functions without a node return nil.
func (e *Emitter) emitName(name ir.FunctionNameAndArity, refType nameRefType) (story.Node, error) {
	key := name.Key()
	node, ok := e.funcs[key]
	if !ok {
		sig := e.ctx.LookupSignature(name)
		if sig == nil {
			return nil, fmt.Errorf("function %s is not registered", name)
		}

		var err error
		node, err = e.emitSignature(sig, refType)
		if err != nil {
			return nil, err
		}
		e.funcs[key] = node
	}

	f := e.funcEntries[key]
	switch refType {
	case refCondition:
		if node == nil {
			return nil, fmt.Errorf("condition reference to %s after it was emitted without a node", name)
		}
		f.ConditionReferences++
	case refAction:
		f.ActionReferences++
	}

	if q, ok := node.(*story.QueryNode); ok && q.Kind == story.NodeUserQuery {
		defKey := ir.FunctionNameAndArity{Name: name.Name + userQueryDefinitionSuffix, Arity: name.Arity}.Key()
		if def, ok := e.funcEntries[defKey]; ok {
			switch refType {
			case refCondition:
				def.ConditionReferences++
			case refAction:
				def.ActionReferences++
			}
		}
	}

	return node, nil
}

func (e *Emitter) emitSignature(sig *ir.FunctionSignature, refType nameRefType) (story.Node, error) {
	builtin := e.ctx.LookupName(sig.NameAndArity())

	switch sig.Type {
	case ir.FunctionSysQuery:
		return e.emitBuiltin(sig, builtin, refType, func() story.Node {
			return &story.QueryNode{Kind: story.NodeInternalQuery}
		})
	case ir.FunctionSysCall:
		_, err := e.emitFunction(ir.FunctionSysCall, sig, nil, builtin)
		return nil, err
	case ir.FunctionEvent, ir.FunctionCall:
		return e.emitBuiltin(sig, builtin, refType, func() story.Node {
			return &story.DataNode{Kind: story.NodeProc, ReferencedBy: []story.NodeEntryItem{}}
		})
	case ir.FunctionQuery:
		return e.emitBuiltin(sig, builtin, refType, func() story.Node {
			return &story.QueryNode{Kind: story.NodeDivQuery}
		})
	case ir.FunctionDatabase:
		return e.emitDatabase(sig)
	case ir.FunctionProc:
		node := &story.DataNode{Kind: story.NodeProc, ReferencedBy: []story.NodeEntryItem{}}
		return e.emitFunctionNode(ir.FunctionProc, sig, node)
	case ir.FunctionUserQuery:
		node := &story.QueryNode{Kind: story.NodeUserQuery}
		return e.emitFunctionNode(ir.FunctionDatabase, sig, node)
	default:
		return nil, fmt.Errorf("function %s has invalid type %s", sig.NameAndArity(), sig.Type)
	}
}

// emitBuiltin emits a header function. A node is only created for
// condition references.
func (e *Emitter) emitBuiltin(sig *ir.FunctionSignature, builtin *ir.BuiltinFunction, refType nameRefType, newNode func() story.Node) (story.Node, error) {
	var node story.Node
	if refType == refCondition {
		node = newNode()
		e.addFunctionNode(node, sig)
	}

	if _, err := e.emitFunction(sig.Type, sig, node, builtin); err != nil {
		return nil, err
	}
	return node, nil
}

func (e *Emitter) emitFunctionNode(kind ir.FunctionType, sig *ir.FunctionSignature, node story.Node) (story.Node, error) {
	e.addFunctionNode(node, sig)
	if _, err := e.emitFunction(kind, sig, node, nil); err != nil {
		return nil, err
	}
	return node, nil
}

func (e *Emitter) addFunctionNode(node story.Node, sig *ir.FunctionSignature) {
	base := node.Base()
	base.Name = sig.Name
	base.NumParams = uint8(len(sig.Params))
	e.addNode(node)
}

func (e *Emitter) emitDatabase(sig *ir.FunctionSignature) (story.Node, error) {
	paramTypes := make([]uint32, len(sig.Params))
	for i, p := range sig.Params {
		if p.Type == nil {
			return nil, fmt.Errorf("parameter %d of %s has no type", i+1, sig.NameAndArity())
		}
		paramTypes[i] = p.Type.TypeID
	}

	db := e.story.AddDatabase(paramTypes, 0)
	node := &story.DataNode{Kind: story.NodeDatabase, ReferencedBy: []story.NodeEntryItem{}}
	node.Database = db.Index
	e.addFunctionNode(node, sig)
	db.OwnerNode = node.Index

	if _, err := e.emitFunction(ir.FunctionDatabase, sig, node, nil); err != nil {
		return nil, err
	}
	e.addDatabaseDebugInfo(db, sig.Name)
	return node, nil
}

// emitIntermediateDatabase creates the database materializing the first
// tupleSize rule columns. It returns nil when every column is unused.
func (e *Emitter) emitIntermediateDatabase(rule *ir.Rule, tupleSize int) (*story.Database, error) {
	var paramTypes []uint32
	for i := 0; i < tupleSize && i < len(rule.Variables); i++ {
		v := rule.Variables[i]
		if v.IsUnused() {
			continue
		}
		if v.Type == nil {
			return nil, fmt.Errorf("rule variable %s has no type", v.Name)
		}
		paramTypes = append(paramTypes, v.Type.TypeID)
	}

	if len(paramTypes) == 0 {
		return nil, nil
	}

	db := e.story.AddDatabase(paramTypes, 0)
	e.addDatabaseDebugInfo(db, "")
	return db, nil
}

// =============================================================================
// Calls
// =============================================================================

func (e *Emitter) emitFactCall(fact *ir.Fact) (story.Call, error) {
	if fact.Database == nil {
		return e.goalCompletionCall(fact.Goal)
	}

	if _, err := e.emitName(*fact.Database, refAction); err != nil {
		return story.Call{}, err
	}

	call := story.Call{
		Name:   fact.Database.Name,
		Params: make([]story.CallParam, 0, len(fact.Elements)),
		Negate: fact.Not,
	}
	for _, c := range fact.Elements {
		p, err := emitConstant(c)
		if err != nil {
			return story.Call{}, err
		}
		call.Params = append(call.Params, p)
	}
	return call, nil
}

func (e *Emitter) emitStatementCall(stmt *ir.Statement) (story.Call, error) {
	if stmt.Func == nil {
		return e.goalCompletionCall(stmt.Goal)
	}

	if _, err := e.emitName(*stmt.Func, refAction); err != nil {
		return story.Call{}, err
	}

	call := story.Call{
		Name:   stmt.Func.Name,
		Params: make([]story.CallParam, 0, len(stmt.Params)),
		Negate: stmt.Not,
	}
	for _, v := range stmt.Params {
		p, err := emitTypedValue(v)
		if err != nil {
			return story.Call{}, err
		}
		call.Params = append(call.Params, p)
	}
	return call, nil
}

func (e *Emitter) goalCompletionCall(goal *ir.Goal) (story.Call, error) {
	osiGoal, ok := e.goals[goal]
	if !ok {
		return story.Call{}, fmt.Errorf("goal completion refers to a goal that was not emitted")
	}
	return story.Call{
		Params:            []story.CallParam{},
		GoalIDOrDebugHook: int32(osiGoal.Index),
	}, nil
}

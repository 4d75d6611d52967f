package compiler

import (
	"github.com/roach88/osiris/internal/ast"
	"github.com/roach88/osiris/internal/ir"
)

// IRGenerator translates goal trees into IR. It performs no semantic
// checks beyond resolving type annotations.
type IRGenerator struct {
	Context *CompilationContext
	file    string
}

// NewIRGenerator returns a generator resolving types against ctx.
func NewIRGenerator(ctx *CompilationContext) *IRGenerator {
	return &IRGenerator{Context: ctx}
}

// GenerateGoalIR converts one goal tree.
func (g *IRGenerator) GenerateGoalIR(astGoal *ast.Goal) *ir.Goal {
	g.file = astGoal.File

	goal := &ir.Goal{
		Name:        astGoal.Name,
		InitSection: make([]*ir.Fact, 0, len(astGoal.Init)),
		KBSection:   make([]*ir.Rule, 0, len(astGoal.KB)),
		ExitSection: make([]*ir.Fact, 0, len(astGoal.Exit)),
		ParentEdges: make([]ir.TargetEdge, 0, len(astGoal.Parents)),
		Location:    g.loc(astGoal.Position),
	}

	for i := range astGoal.Init {
		goal.InitSection = append(goal.InitSection, g.factToIR(goal, &astGoal.Init[i]))
	}
	for i := range astGoal.KB {
		goal.KBSection = append(goal.KBSection, g.ruleToIR(goal, &astGoal.KB[i]))
	}
	for i := range astGoal.Exit {
		goal.ExitSection = append(goal.ExitSection, g.factToIR(goal, &astGoal.Exit[i]))
	}
	for _, p := range astGoal.Parents {
		goal.ParentEdges = append(goal.ParentEdges, ir.TargetEdge{
			Goal:     p.Goal,
			Location: g.loc(p.Position),
		})
	}

	return goal
}

func (g *IRGenerator) loc(p ast.Position) *ir.CodeLocation {
	return p.Location(g.file)
}

var ruleTypes = map[string]ir.RuleType{
	ast.RuleIf:    ir.RuleIf,
	ast.RuleProc:  ir.RuleProc,
	ast.RuleQuery: ir.RuleQuery,
}

func (g *IRGenerator) ruleToIR(goal *ir.Goal, astRule *ast.Rule) *ir.Rule {
	rule := ir.NewRule(goal, ruleTypes[astRule.Type], g.loc(astRule.Position))
	rule.Conditions = make([]ir.Condition, 0, len(astRule.Conditions))
	rule.Actions = make([]*ir.Statement, 0, len(astRule.Actions))

	for i := range astRule.Conditions {
		rule.Conditions = append(rule.Conditions, g.conditionToIR(rule, &astRule.Conditions[i]))
	}
	for i := range astRule.Actions {
		rule.Actions = append(rule.Actions, g.actionToIR(rule, &astRule.Actions[i]))
	}

	return rule
}

func (g *IRGenerator) actionToIR(rule *ir.Rule, a *ast.Action) *ir.Statement {
	if a.GoalCompleted {
		return &ir.Statement{
			Goal:     rule.Goal,
			Params:   []ir.Value{},
			Location: g.loc(a.Position),
		}
	}

	stmt := &ir.Statement{
		Func:     &ir.FunctionNameAndArity{Name: a.Func, Arity: len(a.Params)},
		Not:      a.Not,
		Params:   make([]ir.Value, 0, len(a.Params)),
		Location: g.loc(a.Position),
	}
	for i := range a.Params {
		stmt.Params = append(stmt.Params, g.valueToIR(rule, &a.Params[i]))
	}
	return stmt
}

func (g *IRGenerator) conditionToIR(rule *ir.Rule, c *ast.Condition) ir.Condition {
	base := ir.ConditionBase{TupleSize: -1, Location: g.loc(c.Position)}

	if c.IsBinary() {
		op, _ := ir.ParseRelOp(c.Op)
		return &ir.BinaryCondition{
			ConditionBase: base,
			LValue:        g.valueToIR(rule, c.LValue),
			Op:            op,
			RValue:        g.valueToIR(rule, c.RValue),
		}
	}

	cond := &ir.FuncCondition{
		ConditionBase: base,
		Func:          ir.FunctionNameAndArity{Name: c.Func, Arity: len(c.Params)},
		Not:           c.Not,
		Params:        make([]ir.Value, 0, len(c.Params)),
	}
	for i := range c.Params {
		cond.Params = append(cond.Params, g.valueToIR(rule, &c.Params[i]))
	}
	return cond
}

func (g *IRGenerator) valueToIR(rule *ir.Rule, v *ast.Value) ir.Value {
	if !v.IsVariable() {
		return g.constantToIR(v)
	}

	var typ *ir.ValueType
	if v.Type != "" {
		typ = g.lookupType(v.Type, v.Position)
	}

	loc := g.loc(v.Position)
	ruleVar, err := rule.FindOrAddVariable(v.Var, typ)
	if err != nil {
		g.Context.Log.Error(loc, ErrInternal, "%v", err)
		ruleVar, _ = rule.FindOrAddVariable("_", typ)
	}

	return &ir.Variable{
		Index:    ruleVar.Index,
		Type:     typ,
		Location: loc,
	}
}

func (g *IRGenerator) lookupType(name string, pos ast.Position) *ir.ValueType {
	typ := g.Context.LookupType(name)
	if typ == nil {
		g.Context.Log.Error(g.loc(pos), ErrUnresolvedType, "Type \"%s\" does not exist", name)
	}
	return typ
}

func (g *IRGenerator) factToIR(goal *ir.Goal, f *ast.Fact) *ir.Fact {
	if f.GoalCompleted {
		return &ir.Fact{
			Goal:     goal,
			Elements: []*ir.Constant{},
			Location: g.loc(f.Position),
		}
	}

	fact := &ir.Fact{
		Database: &ir.FunctionNameAndArity{Name: f.Database, Arity: len(f.Elements)},
		Not:      f.Not,
		Elements: make([]*ir.Constant, 0, len(f.Elements)),
		Location: g.loc(f.Position),
	}
	for i := range f.Elements {
		fact.Elements = append(fact.Elements, g.constantToIR(&f.Elements[i]))
	}
	return fact
}

// literalType maps the lexical kind of a literal to its intrinsic type.
func (g *IRGenerator) literalType(kind ir.ConstantType) *ir.ValueType {
	switch kind {
	case ir.ConstantInteger:
		return g.Context.IntrinsicType(ir.TypeInteger)
	case ir.ConstantFloat:
		return g.Context.IntrinsicType(ir.TypeFloat)
	case ir.ConstantString:
		return g.Context.IntrinsicType(ir.TypeString)
	case ir.ConstantName:
		return g.Context.IntrinsicType(ir.TypeGuidString)
	default:
		return nil
	}
}

func (g *IRGenerator) constantToIR(v *ast.Value) *ir.Constant {
	c := &ir.Constant{Location: g.loc(v.Position)}

	switch {
	case v.Int != nil:
		c.ConstType = ir.ConstantInteger
		c.IntegerValue = *v.Int
	case v.Float != nil:
		c.ConstType = ir.ConstantFloat
		c.FloatValue = float32(*v.Float)
	case v.String != nil:
		c.ConstType = ir.ConstantString
		c.StringValue = *v.String
	case v.Name != "":
		c.ConstType = ir.ConstantName
		c.StringValue = v.Name
	default:
		c.ConstType = ir.ConstantUnknown
	}

	if v.Type != "" {
		c.Type = g.lookupType(v.Type, v.Position)
		c.InferredType = true
	} else {
		c.Type = g.literalType(c.ConstType)
	}

	return c
}

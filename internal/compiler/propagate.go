package compiler

import (
	"log/slog"

	"github.com/roach88/osiris/internal/ir"
)

// PropagateTypes runs propagation passes until a pass changes nothing. It
// returns the number of passes run. Exceeding the pass limit is reported as
// an internal error.
func (c *Compiler) PropagateTypes() int {
	for pass := 1; pass <= c.maxPasses; pass++ {
		if !c.PropagateRuleTypes() {
			slog.Debug("type propagation converged", "passes", pass)
			return pass
		}
	}

	c.log().Error(nil, ErrInternal, "Type propagation did not converge after %d passes", c.maxPasses)
	return c.maxPasses
}

// PropagateRuleTypes runs one propagation pass over every registered goal
// and reports whether any signature, variable or tuple size changed.
func (c *Compiler) PropagateRuleTypes() bool {
	updated := false
	for _, goal := range c.Context.Goals() {
		for _, fact := range goal.InitSection {
			updated = c.propagateFactTypes(fact) || updated
		}
		for _, rule := range goal.KBSection {
			updated = c.propagateRuleTypes(rule) || updated
		}
		for _, fact := range goal.ExitSection {
			updated = c.propagateFactTypes(fact) || updated
		}
	}
	return updated
}

func (c *Compiler) propagateFactTypes(fact *ir.Fact) bool {
	if fact.Database == nil {
		return false
	}

	params := make([]ir.Value, len(fact.Elements))
	for i, e := range fact.Elements {
		params[i] = e
	}
	kind := ir.FunctionDatabase
	return c.propagateSignatureIfRequired(nil, *fact.Database, &kind, params, false)
}

func (c *Compiler) propagateRuleTypes(rule *ir.Rule) bool {
	updated := false
	lastTupleSize := 0

	for i, cond := range rule.Conditions {
		switch cond := cond.(type) {
		case *ir.FuncCondition:
			var hint *ir.FunctionType
			allowPartial := true
			if i == 0 && (rule.Type == ir.RuleProc || rule.Type == ir.RuleQuery) {
				kind := ir.FunctionProc
				if rule.Type == ir.RuleQuery {
					kind = ir.FunctionUserQuery
				}
				hint = &kind
				allowPartial = false
			}
			updated = c.propagateSignatureIfRequired(rule, cond.Func, hint, cond.Params, allowPartial) || updated

		case *ir.BinaryCondition:
			updated = c.propagateBinaryOperand(rule, cond.LValue) || updated
			updated = c.propagateBinaryOperand(rule, cond.RValue) || updated
		}

		base := cond.Base()
		if base.TupleSize == -1 {
			base.TupleSize = max(lastTupleSize, maxVariableIndex(cond)+1)
			updated = true
		}
		lastTupleSize = base.TupleSize
	}

	for _, action := range rule.Actions {
		if action.Func != nil {
			updated = c.propagateSignatureIfRequired(rule, *action.Func, nil, action.Params, true) || updated
		}
	}

	return updated
}

// propagateBinaryOperand copies the rule variable's type onto an untyped
// variable occurrence.
func (c *Compiler) propagateBinaryOperand(rule *ir.Rule, v ir.Value) bool {
	variable, ok := v.(*ir.Variable)
	if !ok || variable.Type != nil {
		return false
	}

	ruleVar := rule.Variable(variable)
	if ruleVar.Type == nil {
		return false
	}
	variable.Type = ruleVar.Type
	return true
}

// maxVariableIndex returns the highest variable index referenced by the
// condition, -1 if there is none.
func maxVariableIndex(cond ir.Condition) int {
	highest := -1
	visit := func(v ir.Value) {
		if variable, ok := v.(*ir.Variable); ok && variable.Index > highest {
			highest = variable.Index
		}
	}

	switch cond := cond.(type) {
	case *ir.FuncCondition:
		for _, p := range cond.Params {
			visit(p)
		}
	case *ir.BinaryCondition:
		visit(cond.LValue)
		visit(cond.RValue)
	}
	return highest
}

// propagateSignatureIfRequired completes the signature of name from the
// argument types if it is not fully typed yet, then pushes the signature
// types back onto untyped variables. rule is nil for facts.
func (c *Compiler) propagateSignatureIfRequired(rule *ir.Rule, name ir.FunctionNameAndArity, hint *ir.FunctionType, params []ir.Value, allowPartial bool) bool {
	updated := false

	sig := c.Context.LookupSignature(name)
	if sig != nil && hint != nil {
		updated = c.reconcileKind(sig, name, *hint)
	}

	if sig == nil || !sig.FullyTyped {
		if types, ok := c.determineSignature(rule, params, allowPartial); ok {
			updated = c.applySignature(name, hint, types, paramNames(rule, hint, params)) || updated
		}
		sig = c.Context.LookupSignature(name)
	}

	if rule != nil && sig != nil && sig.FullyTyped {
		updated = c.propagateRuleTypesFromParamList(rule, params, sig) || updated
	}

	return updated
}

// isExplicitKind reports whether a kind hint comes from a declaration.
// Databases are never declared, so a Database hint is only a default.
func isExplicitKind(hint *ir.FunctionType) bool {
	return hint != nil && *hint != ir.FunctionDatabase
}

// reconcileKind checks an explicit kind against an existing signature. A
// kind that was only inferred from use sites is replaced; a conflict between
// two explicit kinds is reported once.
func (c *Compiler) reconcileKind(sig *ir.FunctionSignature, name ir.FunctionNameAndArity, hint ir.FunctionType) bool {
	if sig.Type == hint || !isExplicitKind(&hint) {
		return false
	}

	key := name.Key()
	if c.inferredKinds[key] {
		sig.Type = hint
		delete(c.inferredKinds, key)
		return true
	}

	conflict := kindConflict{key: key, kind: hint}
	if !c.kindConflicts[conflict] {
		c.kindConflicts[conflict] = true
		c.log().Error(nil, ErrInvalidProcDefinition,
			"Auto-typing name %s: first seen as %s, now seen as %s", name, sig.Type, hint)
	}
	return false
}

// determineSignature collects the argument types. In all-or-nothing mode a
// single unknown type rejects the whole list; in partial mode unknown types
// are left nil.
func (c *Compiler) determineSignature(rule *ir.Rule, params []ir.Value, allowPartial bool) ([]*ir.ValueType, bool) {
	types := make([]*ir.ValueType, len(params))
	for i, p := range params {
		typ := c.valueTypeForSignature(rule, p)
		if typ == nil && !allowPartial {
			return nil, false
		}
		types[i] = typ
	}
	return types, true
}

func (c *Compiler) valueTypeForSignature(rule *ir.Rule, v ir.Value) *ir.ValueType {
	switch v := v.(type) {
	case *ir.Constant:
		return v.Type
	case *ir.Variable:
		if v.Type != nil {
			return v.Type
		}
		if rule != nil {
			return rule.Variable(v).Type
		}
	}
	return nil
}

// paramNames returns declared variable names for PROC/QRY declarations, so
// that diagnostics can name their parameters.
func paramNames(rule *ir.Rule, hint *ir.FunctionType, params []ir.Value) []string {
	names := make([]string, len(params))
	if rule == nil || hint == nil || (*hint != ir.FunctionProc && *hint != ir.FunctionUserQuery) {
		return names
	}
	for i, p := range params {
		if v, ok := p.(*ir.Variable); ok {
			if ruleVar := rule.Variable(v); !ruleVar.IsUnused() {
				names[i] = ruleVar.Name
			}
		}
	}
	return names
}

// applySignature creates or completes a signature. Only unknown parameter
// slots are filled; known slots are never overwritten.
func (c *Compiler) applySignature(name ir.FunctionNameAndArity, hint *ir.FunctionType, types []*ir.ValueType, names []string) bool {
	sig := c.Context.LookupSignature(name)

	if sig == nil {
		kind := ir.FunctionDatabase
		if hint != nil {
			kind = *hint
		}
		sig = &ir.FunctionSignature{
			Type:   kind,
			Name:   name.Name,
			Params: make([]ir.FunctionParam, len(types)),
		}
		for i, t := range types {
			sig.Params[i] = ir.FunctionParam{Direction: ir.DirectionIn, Type: t, Name: names[i]}
		}
		sig.FullyTyped = allTyped(sig.Params)
		if !c.Context.RegisterFunction(sig, nil) {
			return false
		}
		if !isExplicitKind(hint) {
			c.inferredKinds[name.Key()] = true
		}
		return true
	}

	updated := false
	for i, t := range types {
		if sig.Params[i].Type == nil && t != nil {
			sig.Params[i].Type = t
			updated = true
		}
		if sig.Params[i].Name == "" && names[i] != "" {
			sig.Params[i].Name = names[i]
		}
	}

	if !sig.FullyTyped && allTyped(sig.Params) {
		sig.FullyTyped = true
		updated = true
	}

	return updated
}

func allTyped(params []ir.FunctionParam) bool {
	for _, p := range params {
		if p.Type == nil {
			return false
		}
	}
	return true
}

func (c *Compiler) propagateRuleTypesFromParamList(rule *ir.Rule, params []ir.Value, sig *ir.FunctionSignature) bool {
	updated := false
	for i, p := range params {
		if v, ok := p.(*ir.Variable); ok {
			updated = c.propagateIRVariableType(rule, v, sig.Params[i].Type) || updated
		}
	}
	return updated
}

// propagateIRVariableType assigns typ to an untyped rule variable and
// occurrence. An occurrence keeps the rule variable's alias type when that
// alias is a more specific form of typ.
func (c *Compiler) propagateIRVariableType(rule *ir.Rule, v *ir.Variable, typ *ir.ValueType) bool {
	updated := false
	ruleVar := rule.Variable(v)

	if ruleVar.Type == nil {
		ruleVar.Type = typ
		updated = true
	}

	if v.Type == nil {
		if ruleVar.Type.IsAliasOf(typ) {
			v.Type = ruleVar.Type
		} else {
			v.Type = typ
		}
		updated = true
	}

	return updated
}

package compiler

import (
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/osiris/internal/ir"
)

// guidLength is the length of the textual GUID suffix of a name constant.
const guidLength = 36

// sameVariableExemptGoal is a shipped goal that compares a variable with
// itself and is known to work despite the runtime bug.
const sameVariableExemptGoal = "EndGame_PrisonersDilemma"

// VerifyIR checks every registered goal and then the database usage
// collected while checking them. Findings go to the compilation log.
func (c *Compiler) VerifyIR() {
	for _, goal := range c.Context.Goals() {
		c.verifyGoal(goal)
	}
	c.verifyDatabases()
}

func (c *Compiler) verifyGoal(goal *ir.Goal) {
	for _, fact := range goal.InitSection {
		c.verifyFact(fact)
	}
	for _, rule := range goal.KBSection {
		c.verifyRule(rule)
	}
	for _, fact := range goal.ExitSection {
		c.verifyFact(fact)
	}

	for _, edge := range goal.ParentEdges {
		if c.Context.LookupGoal(edge.Goal) == nil {
			c.log().Error(edge.Location, ErrUnresolvedGoal,
				"Parent goal \"%s\" of goal \"%s\" could not be resolved", edge.Goal, goal.Name)
		}
	}
}

// resolveSignature looks up a referenced function and reports unknown or
// incompletely typed signatures.
func (c *Compiler) resolveSignature(name ir.FunctionNameAndArity, loc *ir.CodeLocation) *ir.FunctionSignature {
	sig := c.Context.LookupSignature(name)
	if sig == nil {
		c.log().Error(loc, ErrUnresolvedSymbol, "Symbol \"%s\" could not be resolved", name)
		return nil
	}
	if !sig.FullyTyped {
		c.log().Error(loc, ErrUnresolvedSignature, "Signature of \"%s\" could not be determined", name)
		return nil
	}
	return sig
}

func isCallable(t ir.FunctionType) bool {
	switch t {
	case ir.FunctionDatabase, ir.FunctionCall, ir.FunctionSysCall, ir.FunctionProc:
		return true
	default:
		return false
	}
}

func markWrite(sig *ir.FunctionSignature, not bool) {
	if sig.Type != ir.FunctionDatabase {
		return
	}
	if not {
		sig.Deleted = true
	} else {
		sig.Inserted = true
	}
}

func (c *Compiler) verifyFact(fact *ir.Fact) {
	if fact.Database == nil {
		return
	}

	sig := c.resolveSignature(*fact.Database, fact.Location)
	if sig == nil {
		return
	}

	if !isCallable(sig.Type) {
		c.log().Error(fact.Location, ErrInvalidSymbolInFact,
			"Init/Exit actions can only reference databases, calls and PROCs; \"%s\" is a %s", sig.Name, sig.Type)
		return
	}
	markWrite(sig, fact.Not)

	for i, e := range fact.Elements {
		if e.Type == nil {
			c.reportMissingConstantType(e, sig, i)
			continue
		}
		c.verifyIRConstant(e)
		c.verifyParamCompatibility(sig, i, e)
	}
}

// reportMissingConstantType raises an internal error for an untyped
// constant unless its type annotation was already reported as unknown.
func (c *Compiler) reportMissingConstantType(k *ir.Constant, sig *ir.FunctionSignature, i int) {
	if k.InferredType {
		return
	}
	c.log().Error(k.Location, ErrInternal,
		"No type information available for parameter %s of %s \"%s\"", sig.ParamName(i), sig.Type, sig.Name)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func (c *Compiler) verifyRule(rule *ir.Rule) {
	switch initial := rule.InitialCondition().(type) {
	case nil:
		c.log().Error(rule.Location, ErrInvalidSymbolInInitialCondition, "Rule has no conditions")
	case *ir.BinaryCondition:
		c.log().Error(initial.Location, ErrInvalidSymbolInInitialCondition,
			"Initial rule condition must be a function, not a comparison")
	case *ir.FuncCondition:
		switch {
		case rule.Type == ir.RuleProc && !hasPrefixFold(initial.Func.Name, "PROC"):
			c.log().Warn(rule.Location, WarnRuleNamingStyle,
				"Name of PROC \"%s\" should start with the prefix \"PROC\"", initial.Func.Name)
		case rule.Type == ir.RuleQuery && !hasPrefixFold(initial.Func.Name, "QRY"):
			c.log().Warn(rule.Location, WarnRuleNamingStyle,
				"Name of Query \"%s\" should start with the prefix \"QRY\"", initial.Func.Name)
		}
	}

	for i, cond := range rule.Conditions {
		switch cond := cond.(type) {
		case *ir.FuncCondition:
			c.verifyFuncCondition(rule, cond, i)
		case *ir.BinaryCondition:
			c.verifyBinaryCondition(rule, cond, i)
		}
	}

	for _, action := range rule.Actions {
		c.verifyStatement(rule, action)
	}

	for _, v := range rule.Variables {
		if v.Type == nil {
			c.log().Error(rule.Location, ErrUnresolvedVariableType, "Type of variable %s could not be determined", v.Name)
		}
	}
}

func (c *Compiler) verifyFuncCondition(rule *ir.Rule, cond *ir.FuncCondition, index int) {
	sig := c.resolveSignature(cond.Func, cond.Location)
	if sig == nil {
		return
	}

	if sig.Type == ir.FunctionDatabase {
		sig.Read = true
	}

	if index == 0 {
		if cond.Not {
			c.log().Error(cond.Location, ErrInvalidSymbolInInitialCondition,
				"Initial rule condition \"%s\" cannot be negated", sig.Name)
			return
		}
		if !c.verifyInitialConditionKind(rule, cond, sig) {
			return
		}
	} else {
		switch sig.Type {
		case ir.FunctionSysQuery, ir.FunctionQuery, ir.FunctionDatabase, ir.FunctionUserQuery:
		default:
			c.log().Error(cond.Location, ErrInvalidFunctionTypeInCondition,
				"Subsequent rule conditions can only be queries or DBs; \"%s\" is a %s", sig.Name, sig.Type)
			return
		}
	}

	definition := index == 0 && (rule.Type == ir.RuleProc || rule.Type == ir.RuleQuery)
	for i, p := range cond.Params {
		c.verifyParam(rule, sig, i, p, index, cond.Not, definition)
	}
}

func (c *Compiler) verifyInitialConditionKind(rule *ir.Rule, cond *ir.FuncCondition, sig *ir.FunctionSignature) bool {
	switch rule.Type {
	case ir.RuleProc:
		if sig.Type != ir.FunctionProc {
			c.log().Error(cond.Location, ErrInvalidSymbolInInitialCondition,
				"Initial function of a PROC must be a PROC; \"%s\" is a %s", sig.Name, sig.Type)
			return false
		}
	case ir.RuleQuery:
		if sig.Type != ir.FunctionUserQuery {
			c.log().Error(cond.Location, ErrInvalidSymbolInInitialCondition,
				"Initial function of a QRY must be a QRY; \"%s\" is a %s", sig.Name, sig.Type)
			return false
		}
	default:
		if sig.Type != ir.FunctionEvent && sig.Type != ir.FunctionDatabase {
			c.log().Error(cond.Location, ErrInvalidSymbolInInitialCondition,
				"Initial rule condition can only be an event or a DB; \"%s\" is a %s", sig.Name, sig.Type)
			return false
		}
	}
	return true
}

func (c *Compiler) verifyStatement(rule *ir.Rule, stmt *ir.Statement) {
	if stmt.Func == nil {
		return
	}

	sig := c.resolveSignature(*stmt.Func, stmt.Location)
	if sig == nil {
		return
	}

	if !isCallable(sig.Type) {
		c.log().Error(stmt.Location, ErrInvalidSymbolInStatement,
			"KB rule actions can only reference databases, calls and PROCs; \"%s\" is a %s", sig.Name, sig.Type)
		return
	}

	if stmt.Not && sig.Type != ir.FunctionDatabase {
		c.log().Error(stmt.Location, ErrCanOnlyDeleteFromDatabase,
			"KB rule NOT actions can only reference databases; \"%s\" is a %s", sig.Name, sig.Type)
		return
	}
	markWrite(sig, stmt.Not)

	for i, p := range stmt.Params {
		c.verifyParam(rule, sig, i, p, -1, stmt.Not, false)
	}
}

// verifyParam checks one argument of a condition (conditionIndex >= 0) or
// action (conditionIndex == -1). definition marks the head of a PROC or QRY.
func (c *Compiler) verifyParam(rule *ir.Rule, sig *ir.FunctionSignature, i int, value ir.Value, conditionIndex int, not, definition bool) {
	if value.ValueType() == nil {
		switch v := value.(type) {
		case *ir.Constant:
			c.reportMissingConstantType(v, sig, i)
		case *ir.Variable:
			c.log().Error(v.Location, ErrInternal,
				"No type information available for parameter %s of %s \"%s\"", sig.ParamName(i), sig.Type, sig.Name)
		}
		return
	}

	switch v := value.(type) {
	case *ir.Constant:
		c.verifyIRConstant(v)
	case *ir.Variable:
		c.verifyIRVariable(rule, v, sig)
		c.verifyIRVariableCall(rule, v, sig, i, conditionIndex, not)
	}

	if definition {
		c.verifyDefinitionParam(rule, sig, i, value)
		return
	}
	c.verifyParamCompatibility(sig, i, value)
}

// verifyDefinitionParam checks that a PROC/QRY head uses the parameter
// types established by the first definition.
func (c *Compiler) verifyDefinitionParam(rule *ir.Rule, sig *ir.FunctionSignature, i int, value ir.Value) {
	v, ok := value.(*ir.Variable)
	if !ok {
		c.verifyParamCompatibility(sig, i, value)
		return
	}

	param := sig.Params[i]
	if v.Type.TypeID != param.Type.TypeID {
		c.log().Error(v.Location, ErrProcTypeMismatch,
			"Parameter %s of %s \"%s\" is declared as %s; a previous definition declared %s",
			rule.Variable(v).Name, sig.Type, sig.Name, v.Type.Name, param.Type.Name)
	}
}

// verifyParamCompatibility checks a value against the parameter type.
func (c *Compiler) verifyParamCompatibility(sig *ir.FunctionSignature, i int, value ir.Value) {
	param := sig.Params[i]
	vt := value.ValueType()
	if param.Type == nil || vt == nil {
		return
	}

	if param.Type.IntrinsicTypeID != vt.IntrinsicTypeID {
		if c.allowsConstantCoercion(value, param.Type) {
			return
		}
		c.log().Error(value.Loc(), ErrLocalTypeMismatch,
			"Parameter %s of %s \"%s\" expects %s; %s specified",
			sig.ParamName(i), sig.Type, sig.Name, param.Type.IntrinsicTypeID, vt.IntrinsicTypeID)
		return
	}

	if ir.IsGuidAliasToAliasCast(vt, param.Type) {
		c.log().Error(value.Loc(), ErrGuidAliasMismatch,
			"Parameter %s of %s \"%s\" expects %s; %s specified",
			sig.ParamName(i), sig.Type, sig.Name, param.Type.Name, vt.Name)
	}
}

// allowsConstantCoercion implements the BG3 rule that integer literals may
// be passed where a Float or Integer64 is expected.
func (c *Compiler) allowsConstantCoercion(value ir.Value, to *ir.ValueType) bool {
	k, ok := value.(*ir.Constant)
	if !ok || c.Game != TargetBG3 {
		return false
	}
	return k.Type.IntrinsicTypeID == ir.TypeInteger &&
		(to.IntrinsicTypeID == ir.TypeFloat || to.IntrinsicTypeID == ir.TypeInteger64)
}

func (c *Compiler) coercionAllowed(sig *ir.FunctionSignature) bool {
	if c.AllowTypeCoercion {
		return true
	}
	return sig != nil && c.typeCoercionWhitelist[sig.NameAndArity().Key()]
}

// verifyIRVariable checks the cast from the rule variable's type to the
// type of this occurrence. sig is nil inside comparisons.
func (c *Compiler) verifyIRVariable(rule *ir.Rule, v *ir.Variable, sig *ir.FunctionSignature) {
	ruleVar := rule.Variable(v)
	if ruleVar.Type == nil || v.Type == nil || c.coercionAllowed(sig) {
		return
	}

	from, to := ruleVar.Type, v.Type
	switch {
	case !ir.AreIntrinsicTypesCompatible(from.IntrinsicTypeID, to.IntrinsicTypeID):
		c.log().Error(v.Location, ErrCastToUnrelatedType,
			"Cannot cast %s variable %s to unrelated type %s", from.Name, ruleVar.Name, to.Name)
	case ir.IsRiskyComparison(from.IntrinsicTypeID, to.IntrinsicTypeID):
		c.log().Error(v.Location, ErrRiskyComparison,
			"Cannot cast %s variable %s to %s; this may trigger incorrect behavior", from.Name, ruleVar.Name, to.Name)
	case ir.IsGuidAliasToAliasCast(from, to):
		c.log().Error(v.Location, ErrCastToUnrelatedGuidAlias,
			"Cannot cast %s variable %s to unrelated GUID alias %s", from.Name, ruleVar.Name, to.Name)
	}
}

// verifyIRVariableCall performs binding-time analysis for a variable used
// as parameter i of sig. Out parameters, initial conditions and database
// conditions bind; every other position requires an earlier binding.
func (c *Compiler) verifyIRVariableCall(rule *ir.Rule, v *ir.Variable, sig *ir.FunctionSignature, i, conditionIndex int, not bool) {
	ruleVar := rule.Variable(v)
	param := sig.Params[i]

	binds := conditionIndex >= 0 && !not &&
		(param.Direction == ir.DirectionOut || conditionIndex == 0 || sig.Type == ir.FunctionDatabase)
	if binds {
		if ruleVar.FirstBindingIndex == -1 {
			ruleVar.FirstBindingIndex = conditionIndex
		}
		return
	}

	// Placeholders in negated conditions match anything.
	if not && conditionIndex >= 0 && ruleVar.IsUnused() {
		return
	}

	if isBound(ruleVar, conditionIndex) {
		return
	}

	if ruleVar.IsUnused() {
		c.log().Error(v.Location, ErrParamNotBound,
			"Parameter %s of %s \"%s\" is an unused variable", sig.ParamName(i), sig.Type, sig.Name)
		return
	}
	c.log().Error(v.Location, ErrParamNotBound,
		"Variable %s is not bound here (when used as parameter %s of %s \"%s\")",
		ruleVar.Name, sig.ParamName(i), sig.Type, sig.Name)
}

// isBound reports whether the variable was bound before the condition at
// conditionIndex; -1 stands for the action list.
func isBound(ruleVar *ir.RuleVariable, conditionIndex int) bool {
	if ruleVar.FirstBindingIndex == -1 {
		return false
	}
	return conditionIndex == -1 || ruleVar.FirstBindingIndex < conditionIndex
}

func (c *Compiler) verifyBinaryCondition(rule *ir.Rule, cond *ir.BinaryCondition, index int) {
	lt, rt := cond.LValue.ValueType(), cond.RValue.ValueType()
	if lt == nil || rt == nil {
		// Untyped variables are reported once per rule.
		for _, side := range []ir.Value{cond.LValue, cond.RValue} {
			if k, ok := side.(*ir.Constant); ok && k.Type == nil && !k.InferredType {
				c.log().Error(k.Location, ErrInternal, "No type information available for comparison operand %s", k)
			}
		}
		return
	}

	lv, lok := cond.LValue.(*ir.Variable)
	rv, rok := cond.RValue.(*ir.Variable)
	if lok && rok && lv.Index == rv.Index && c.Game == TargetDOS2 && rule.Goal.Name != sameVariableExemptGoal {
		c.log().Error(cond.Location, ErrBinaryOperationSameRhsLhs,
			"Same variable used on both sides of a binary expression; this will result in an invalid compare in runtime")
	}

	c.verifyBinaryOperand(rule, cond.LValue, index)
	c.verifyBinaryOperand(rule, cond.RValue, index)

	switch {
	case !ir.AreIntrinsicTypesCompatible(lt.IntrinsicTypeID, rt.IntrinsicTypeID):
		c.log().Error(cond.Location, ErrLocalTypeMismatch,
			"Type of left expression (%s) differs from type of right expression (%s)", lt.IntrinsicTypeID, rt.IntrinsicTypeID)
		return
	case ir.IsRiskyComparison(lt.IntrinsicTypeID, rt.IntrinsicTypeID):
		c.log().Error(cond.Location, ErrRiskyComparison,
			"Comparison between %s and %s may trigger incorrect behavior", lt.IntrinsicTypeID, rt.IntrinsicTypeID)
		return
	case ir.IsGuidAliasToAliasCast(lt, rt):
		c.log().Error(cond.Location, ErrGuidAliasMismatch,
			"GUID alias type of left expression (%s) differs from type of right expression (%s)", lt.Name, rt.Name)
		return
	}

	if cond.Op.IsOrdering() && lt.IntrinsicTypeID.IsStringLike() {
		c.log().Warn(cond.Location, WarnStringLtGtComparison,
			"String comparison using operator %s - probably a mistake?", cond.Op)
	}
}

func (c *Compiler) verifyBinaryOperand(rule *ir.Rule, value ir.Value, index int) {
	switch v := value.(type) {
	case *ir.Constant:
		c.verifyIRConstant(v)
	case *ir.Variable:
		c.verifyIRVariable(rule, v, nil)

		ruleVar := rule.Variable(v)
		if ruleVar.IsUnused() {
			c.log().Error(v.Location, ErrParamNotBound, "Unused variable cannot be used in a comparison")
		} else if !isBound(ruleVar, index) {
			c.log().Error(v.Location, ErrParamNotBound, "Variable %s is not bound here", ruleVar.Name)
		}
	}
}

// verifyIRConstant checks a GUIDSTRING constant of the form
// [TYPE_]Name_<guid> against its type prefix and the game-object table.
func (c *Compiler) verifyIRConstant(k *ir.Constant) {
	if k.Type == nil || k.Type.IntrinsicTypeID != ir.TypeGuidString {
		return
	}

	name := k.StringValue
	objectName := ""
	if len(name) > guidLength {
		objectName = strings.TrimSuffix(name[:len(name)-guidLength], "_")
	}

	if sep := strings.IndexByte(name, '_'); sep > 0 {
		prefix := name[:sep]
		if prefixType := c.Context.LookupType(prefix); prefixType != nil {
			objectName = strings.TrimPrefix(objectName, prefix+"_")
			if k.Type.IsAlias() && prefixType.TypeID != k.Type.TypeID {
				c.log().Error(k.Location, ErrGuidAliasMismatch,
					"GUID constant \"%s\" has inferred type %s, but its prefix refers to type %s", name, k.Type.Name, prefixType.Name)
			}
		} else if strings.Contains(prefix, "GUID") && c.Game != TargetBG3 {
			c.log().Warn(k.Location, WarnGuidPrefixNotKnown,
				"GUID constant \"%s\" is prefixed with unknown type %s", name, prefix)
		}
	}

	if c.CheckGameObjects && len(name) >= guidLength {
		c.verifyGameObject(k, name, objectName)
	}
}

func (c *Compiler) verifyGameObject(k *ir.Constant, name, objectName string) {
	guid := name[len(name)-guidLength:]
	if id, err := uuid.Parse(guid); err == nil && id == uuid.Nil {
		return
	}

	obj, ok := c.Context.LookupGameObject(guid)
	if !ok {
		c.log().Warn(k.Location, WarnUnresolvedGameObject, "Object \"%s\" could not be resolved", name)
		return
	}

	if objectName != "" && objectName != obj.Name {
		c.log().Warn(k.Location, WarnGameObjectNameMismatch,
			"Constant \"%s\" references game object with different name (\"%s\")", name, obj.Name)
	}

	if k.Type.IsAlias() && obj.Type != nil && obj.Type.TypeID != k.Type.TypeID {
		c.log().Warn(k.Location, WarnGameObjectTypeMismatch,
			"Constant \"%s\" of type %s references game object of type %s", name, k.Type.Name, obj.Type.Name)
	}
}

// verifyDatabases reports databases that are written but never read and
// vice versa.
func (c *Compiler) verifyDatabases() {
	for _, sig := range c.Context.Signatures() {
		if sig.Type != ir.FunctionDatabase {
			continue
		}

		name := sig.NameAndArity()
		if c.ignoreUnusedDatabases[name.Key()] {
			continue
		}

		if !hasPrefixFold(sig.Name, "DB") {
			c.log().Warn(nil, WarnDbNamingStyle, "Database \"%s\" should start with the prefix \"DB\"", name)
		}

		switch {
		case sig.Inserted && !sig.Read:
			c.unusedDatabase("Database \"%s\" is written to, but is never used in a rule", name)
		case sig.Read && !sig.Inserted && !sig.Deleted:
			c.unusedDatabase("Database \"%s\" is used in a rule, but is never written to", name)
		case sig.Read && sig.Deleted && !sig.Inserted:
			c.log().Warn(nil, WarnUnwrittenDatabase,
				"Database \"%s\" is used in a rule and deleted from, but is never written to", name)
		}
	}
}

func (c *Compiler) unusedDatabase(format string, name ir.FunctionNameAndArity) {
	if c.Game == TargetDOS2 {
		c.log().Warn(nil, WarnUnusedDatabase, format, name)
	} else {
		c.log().Error(nil, ErrUnusedDatabase, format, name)
	}
}

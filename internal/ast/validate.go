package ast

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/osiris/internal/ir"
)

// ValidateHeader checks structural constraints of a header tree.
// All problems are reported, joined into one error.
func ValidateHeader(file string, h *Header) error {
	var errs []error
	fail := func(path, format string, args ...any) {
		errs = append(errs, &DecodeError{File: file, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	for i, a := range h.Aliases {
		if strings.TrimSpace(a.TypeName) == "" {
			fail(fmt.Sprintf("aliases[%d].type_name", i), "type name is required")
		}
	}

	for i, f := range h.Functions {
		path := fmt.Sprintf("functions[%d]", i)
		if strings.TrimSpace(f.Name) == "" {
			fail(path+".name", "function name is required")
		}
		switch f.Type {
		case ir.FunctionSysQuery, ir.FunctionSysCall, ir.FunctionQuery, ir.FunctionCall, ir.FunctionEvent:
		default:
			fail(path+".type", "builtin function type must be sysquery, syscall, query, call or event")
		}
		for j, p := range f.Params {
			if p.Type == "" {
				fail(fmt.Sprintf("%s.params[%d].type", path, j), "parameter type is required")
			}
			if p.Direction == 0 {
				fail(fmt.Sprintf("%s.params[%d].direction", path, j), "parameter direction must be in or out")
			}
		}
	}

	return stderrors.Join(errs...)
}

// ValidateGoal checks structural constraints of a goal tree.
// All problems are reported, joined into one error.
func ValidateGoal(g *Goal) error {
	var errs []error
	fail := func(path, format string, args ...any) {
		errs = append(errs, &DecodeError{File: g.File, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(g.Name) == "" {
		fail("name", "goal name is required")
	}

	validateFacts := func(section string, facts []Fact) {
		for i, f := range facts {
			path := fmt.Sprintf("%s[%d]", section, i)
			if f.GoalCompleted {
				if f.Database != "" || len(f.Elements) > 0 {
					fail(path, "goal_completed fact cannot name a database")
				}
				continue
			}
			if f.Database == "" {
				fail(path+".database", "database name is required")
			}
			for j, v := range f.Elements {
				if v.IsVariable() {
					fail(fmt.Sprintf("%s.elements[%d]", path, j), "facts may only contain constants")
					continue
				}
				validateValue(fmt.Sprintf("%s.elements[%d]", path, j), &v, fail)
			}
		}
	}
	validateFacts("init", g.Init)
	validateFacts("exit", g.Exit)

	for i, r := range g.KB {
		path := fmt.Sprintf("kb[%d]", i)
		switch r.Type {
		case RuleIf, RuleProc, RuleQuery:
		default:
			fail(path+".type", "rule type must be if, proc or query")
		}
		if len(r.Conditions) == 0 {
			fail(path+".conditions", "at least one condition is required")
		}
		for j := range r.Conditions {
			validateCondition(fmt.Sprintf("%s.conditions[%d]", path, j), &r.Conditions[j], fail)
		}
		if len(r.Conditions) > 0 {
			first := &r.Conditions[0]
			switch {
			case first.IsBinary():
				fail(path+".conditions[0]", "initial condition must be a function, not a comparison")
			case first.Not:
				fail(path+".conditions[0].not", "initial condition cannot be negated")
			}
		}
		for j, a := range r.Actions {
			apath := fmt.Sprintf("%s.actions[%d]", path, j)
			if a.GoalCompleted {
				if a.Func != "" || len(a.Params) > 0 {
					fail(apath, "goal_completed action cannot name a function")
				}
				continue
			}
			if a.Func == "" {
				fail(apath+".func", "function name is required")
			}
			for k := range a.Params {
				validateValue(fmt.Sprintf("%s.params[%d]", apath, k), &a.Params[k], fail)
			}
		}
	}

	for i, p := range g.Parents {
		if p.Goal == "" {
			fail(fmt.Sprintf("parents[%d].goal", i), "parent goal name is required")
		}
	}

	return stderrors.Join(errs...)
}

func validateCondition(path string, c *Condition, fail func(string, string, ...any)) {
	if c.IsBinary() {
		if c.Func != "" || len(c.Params) > 0 || c.Not {
			fail(path, "a condition is either a function or a comparison")
		}
		if _, err := ir.ParseRelOp(c.Op); err != nil {
			fail(path+".op", "%v", err)
		}
		if c.LValue == nil || c.RValue == nil {
			fail(path, "comparison requires lvalue and rvalue")
			return
		}
		validateValue(path+".lvalue", c.LValue, fail)
		validateValue(path+".rvalue", c.RValue, fail)
		return
	}

	if c.Func == "" {
		fail(path+".func", "function name is required")
	}
	if c.LValue != nil || c.RValue != nil {
		fail(path, "function condition cannot have lvalue or rvalue")
	}
	for i := range c.Params {
		validateValue(fmt.Sprintf("%s.params[%d]", path, i), &c.Params[i], fail)
	}
}

func validateValue(path string, v *Value, fail func(string, string, ...any)) {
	set := 0
	if v.Var != "" {
		set++
		if !strings.HasPrefix(v.Var, "_") {
			fail(path+".var", "variable name %q must start with an underscore", v.Var)
		}
	}
	if v.Int != nil {
		set++
	}
	if v.Float != nil {
		set++
	}
	if v.String != nil {
		set++
	}
	if v.Name != "" {
		set++
	}
	if set > 1 {
		fail(path, "value must set exactly one of var, int, float, string or name")
	}
}

// ValidateObjects checks that every object has a valid GUID and a name.
func ValidateObjects(file string, t *ObjectTable) error {
	var errs []error
	for i, obj := range t.Objects {
		path := fmt.Sprintf("objects[%d]", i)
		if _, err := uuid.Parse(obj.GUID); err != nil {
			errs = append(errs, &DecodeError{File: file, Path: path + ".guid", Message: fmt.Sprintf("invalid GUID %q", obj.GUID)})
		}
		if obj.Name == "" {
			errs = append(errs, &DecodeError{File: file, Path: path + ".name", Message: "object name is required"})
		}
	}
	return stderrors.Join(errs...)
}

package story

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/osiris/internal/ir"
)

// Dump writes a line-oriented listing of s. The output only depends on the
// story contents and is used for golden tests and fingerprints.
func Dump(w io.Writer, s *Story) error {
	d := &dumper{w: bufio.NewWriter(w), s: s}

	d.printf("story %d.%d\n", s.MajorVersion, s.MinorVersion)

	d.printf("types\n")
	for _, t := range s.Types {
		if t.IsBuiltin {
			d.printf("  %d %s builtin\n", t.Index, t.Name)
		} else {
			d.printf("  %d %s alias=%d\n", t.Index, t.Name, t.Alias)
		}
	}

	d.printf("functions\n")
	for _, f := range s.Functions {
		d.printf("  %s %s node=%s cond=%d act=%d params=%s out=%x\n",
			f.Key(), f.Type, nodeRef(f.Node), f.ConditionReferences, f.ActionReferences,
			uintList(f.Signature.ParamTypes), f.Signature.OutParamMask)
	}

	d.printf("nodes\n")
	for _, n := range s.Nodes {
		d.node(n)
	}

	d.printf("adapters\n")
	for _, a := range s.Adapters {
		d.adapter(a)
	}

	d.printf("databases\n")
	for _, db := range s.Databases {
		d.printf("  %d types=%s owner=%s\n", db.Index, uintList(db.ParamTypes), nodeRef(db.OwnerNode))
	}

	d.printf("goals\n")
	for _, g := range s.Goals {
		d.printf("  %d %s combination=%d flags=%d parents=%s subs=%s\n",
			g.Index, g.Name, g.SubGoalCombination, g.Flags, goalList(g.ParentGoals), goalList(g.SubGoals))
		for i := range g.InitCalls {
			d.printf("    init %s\n", d.call(&g.InitCalls[i]))
		}
		for i := range g.ExitCalls {
			d.printf("    exit %s\n", d.call(&g.ExitCalls[i]))
		}
	}

	if d.err != nil {
		return d.err
	}
	return d.w.Flush()
}

type dumper struct {
	w   *bufio.Writer
	s   *Story
	err error
}

func (d *dumper) printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

func (d *dumper) node(n Node) {
	b := n.Base()
	head := fmt.Sprintf("  #%d %s", b.Index, n.Type())
	if b.Name != "" {
		head += fmt.Sprintf(" %s/%d", b.Name, b.NumParams)
	}
	if b.Database.IsValid() {
		head += fmt.Sprintf(" db=%d", b.Database)
	}

	switch n := n.(type) {
	case *DataNode:
		refs := make([]string, len(n.ReferencedBy))
		for i, e := range n.ReferencedBy {
			refs[i] = entry(e)
		}
		d.printf("%s refs=[%s]\n", head, strings.Join(refs, " "))
	case *QueryNode:
		d.printf("%s\n", head)
	case *JoinNode:
		d.printf("%s next=%s\n", head, entry(n.Next))
		d.printf("    left %s\n", joinSide(n.Left))
		d.printf("    right %s\n", joinSide(n.Right))
	case *RelOpNode:
		d.printf("%s next=%s\n", head, entry(n.Next))
		d.printf("    %s\n", relBase(&n.RelNodeBase))
		d.printf("    %s %s %s\n", d.operand(n.LeftValueIndex, n.LeftValue), n.Op, d.operand(n.RightValueIndex, n.RightValue))
	case *RuleNode:
		d.printf("%s next=%s goal=%d query=%t\n", head, entry(n.Next), n.DerivedGoal, n.IsQuery)
		d.printf("    %s\n", relBase(&n.RelNodeBase))
		vars := make([]string, len(n.Variables))
		for i := range n.Variables {
			vars[i] = d.variable(&n.Variables[i])
		}
		d.printf("    vars [%s]\n", strings.Join(vars, ", "))
		for i := range n.Calls {
			d.printf("    call %s\n", d.call(&n.Calls[i]))
		}
	}
}

func (d *dumper) adapter(a *Adapter) {
	indices := make([]string, len(a.LogicalIndices))
	for i, idx := range a.LogicalIndices {
		indices[i] = strconv.Itoa(int(idx))
	}
	mappings := make([]string, len(a.LogicalToPhysical))
	for i, m := range a.LogicalToPhysical {
		mappings[i] = fmt.Sprintf("%d:%d", m.Logical, m.Physical)
	}
	d.printf("  %d logical=[%s] map=[%s]", a.Index, strings.Join(indices, " "), strings.Join(mappings, " "))
	if len(a.Constants.Logical) > 0 {
		consts := make([]string, len(a.Constants.Logical))
		for i, c := range a.Constants.Logical {
			consts[i] = fmt.Sprintf("%d=%s", c.Index, d.value(c.Value))
		}
		d.printf(" consts=[%s]", strings.Join(consts, " "))
	}
	d.printf("\n")
}

func (d *dumper) call(c *Call) string {
	if c.IsGoalCompletion() {
		return fmt.Sprintf("GoalCompleted(%d)", c.GoalIDOrDebugHook)
	}
	params := make([]string, len(c.Params))
	for i, p := range c.Params {
		switch p := p.(type) {
		case *Variable:
			params[i] = d.variable(p)
		case *TypedValue:
			params[i] = d.value(p.Value)
		}
	}
	prefix := ""
	if c.Negate {
		prefix = "NOT "
	}
	return fmt.Sprintf("%s%s(%s)", prefix, c.Name, strings.Join(params, ", "))
}

func (d *dumper) variable(v *Variable) string {
	out := fmt.Sprintf("#%d", v.Index)
	if v.Name != "" {
		out += " " + v.Name
	}
	if v.TypeID != 0 {
		out += ":" + strconv.FormatUint(uint64(v.TypeID), 10)
	}
	if v.Unused {
		out += " unused"
	}
	return out
}

func (d *dumper) operand(index int8, v Value) string {
	if index >= 0 {
		return fmt.Sprintf("#%d", index)
	}
	return d.value(v)
}

// value formats a constant according to the intrinsic type behind TypeID.
func (d *dumper) value(v Value) string {
	switch d.s.IntrinsicTypeOf(v.TypeID) {
	case ir.TypeInteger:
		return strconv.FormatInt(int64(v.IntValue), 10)
	case ir.TypeInteger64:
		return strconv.FormatInt(v.Int64Value, 10) + "L"
	case ir.TypeFloat:
		return strconv.FormatFloat(float64(v.FloatValue), 'g', -1, 32)
	case ir.TypeString, ir.TypeGuidString:
		return "'" + v.StringValue + "'"
	default:
		return "?"
	}
}

func nodeRef(r NodeRef) string {
	if !r.IsValid() {
		return "-"
	}
	return fmt.Sprintf("#%d", r)
}

func entry(e NodeEntryItem) string {
	if !e.Node.IsValid() {
		return "-"
	}
	return fmt.Sprintf("#%d/%s/%d", e.Node, e.EntryPoint, e.Goal)
}

func joinSide(s JoinSide) string {
	return fmt.Sprintf("parent=%s adapter=%d db=%s ind=%d join=%s",
		nodeRef(s.Parent), s.Adapter, nodeRef(s.Database), s.Indirection, entry(s.Join))
}

func relBase(r *RelNodeBase) string {
	return fmt.Sprintf("parent=%s adapter=%d db=%s ind=%d join=%s",
		nodeRef(r.Parent), r.Adapter, nodeRef(r.RelDatabase), r.RelDatabaseIndirection, entry(r.RelJoin))
}

func uintList(vs []uint32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func goalList(gs []GoalRef) string {
	parts := make([]string, len(gs))
	for i, g := range gs {
		parts[i] = strconv.FormatUint(uint64(g), 10)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

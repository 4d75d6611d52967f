package emitter

import (
	"fmt"

	"github.com/roach88/osiris/internal/ir"
	"github.com/roach88/osiris/internal/story"
)

func (e *Emitter) emitGoal(goal *ir.Goal) *story.Goal {
	osiGoal := &story.Goal{
		Name:        goal.Name,
		InitCalls:   make([]story.Call, 0, len(goal.InitSection)),
		ExitCalls:   make([]story.Call, 0, len(goal.ExitSection)),
		ParentGoals: []story.GoalRef{},
		SubGoals:    []story.GoalRef{},
	}

	if len(goal.ParentEdges) > 0 {
		osiGoal.SubGoalCombination = 1
		osiGoal.Flags = 2
	}

	e.story.AddGoal(osiGoal)
	e.goals[goal] = osiGoal
	e.addGoalDebugInfo(osiGoal, goal)
	return osiGoal
}

// emitGoals emits goals and their rules in registration order, then the
// goal and rule calls.
func (e *Emitter) emitGoals() error {
	goals := e.ctx.Goals()

	for _, goal := range goals {
		osiGoal := e.emitGoal(goal)

		for _, rule := range goal.KBSection {
			first := story.NodeRef(len(e.story.Nodes) + 1)
			node, err := e.emitRule(rule, osiGoal)
			if err != nil {
				return fmt.Errorf("goal %s: %w", goal.Name, err)
			}
			e.assignRuleDebugIDs(first, node)
		}
	}

	for _, goal := range goals {
		osiGoal := e.goals[goal]
		for _, fact := range goal.InitSection {
			call, err := e.emitFactCall(fact)
			if err != nil {
				return fmt.Errorf("goal %s: %w", goal.Name, err)
			}
			osiGoal.InitCalls = append(osiGoal.InitCalls, call)
		}
		for _, fact := range goal.ExitSection {
			call, err := e.emitFactCall(fact)
			if err != nil {
				return fmt.Errorf("goal %s: %w", goal.Name, err)
			}
			osiGoal.ExitCalls = append(osiGoal.ExitCalls, call)
		}
	}

	for _, r := range e.rules {
		for _, action := range r.rule.Actions {
			call, err := e.emitStatementCall(action)
			if err != nil {
				return fmt.Errorf("goal %s: %w", r.rule.Goal.Name, err)
			}
			r.node.Calls = append(r.node.Calls, call)
		}
	}

	return nil
}

// emitHeaderFunctions emits function entries for header functions no goal
// referenced. The runtime expects every header function in the story.
func (e *Emitter) emitHeaderFunctions() error {
	for _, sig := range e.ctx.Signatures() {
		switch sig.Type {
		case ir.FunctionSysCall, ir.FunctionSysQuery, ir.FunctionCall, ir.FunctionQuery, ir.FunctionEvent:
		default:
			continue
		}

		name := sig.NameAndArity()
		if _, ok := e.funcs[name.Key()]; ok {
			continue
		}
		if _, err := e.emitName(name, refNone); err != nil {
			return err
		}
	}
	return nil
}

// emitParentGoals links every goal to its parents. Runs after all goals
// have indices.
func (e *Emitter) emitParentGoals() error {
	for _, goal := range e.ctx.Goals() {
		osiGoal := e.goals[goal]
		for _, edge := range goal.ParentEdges {
			parent := e.ctx.LookupGoal(edge.Goal)
			if parent == nil {
				return fmt.Errorf("goal %s: parent goal %s is not registered", goal.Name, edge.Goal)
			}
			osiParent := e.goals[parent]
			osiGoal.ParentGoals = append(osiGoal.ParentGoals, osiParent.Index)
			osiParent.SubGoals = append(osiParent.SubGoals, osiGoal.Index)
		}
	}
	return nil
}

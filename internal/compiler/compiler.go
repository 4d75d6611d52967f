package compiler

import (
	"log/slog"

	"github.com/roach88/osiris/internal/ir"
)

// DefaultMaxPropagationPasses bounds the type propagation loop.
// Propagation on real stories settles in a handful of passes.
const DefaultMaxPropagationPasses = 100

// Compiler runs goal registration, type propagation and verification
// against a shared compilation context.
//
// Phases must run in order: AddGoal for every goal, PropagateTypes, VerifyIR.
// Diagnostics from every phase go to Context.Log.
type Compiler struct {
	Context *CompilationContext
	Game    Target

	// AllowTypeCoercion disables cast checks on variables.
	AllowTypeCoercion bool
	// CheckGameObjects enables GUID checks against the game-object table.
	CheckGameObjects bool

	maxPasses             int
	typeCoercionWhitelist map[ir.NameKey]bool
	ignoreUnusedDatabases map[ir.NameKey]bool

	// inferredKinds holds signatures whose kind was guessed from a use site
	// and may still be replaced by an explicit PROC/QRY declaration.
	inferredKinds map[ir.NameKey]bool
	// kindConflicts records reported auto-typing conflicts.
	kindConflicts map[kindConflict]bool
}

type kindConflict struct {
	key  ir.NameKey
	kind ir.FunctionType
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithTarget selects the target game.
func WithTarget(game Target) CompilerOption {
	return func(c *Compiler) {
		c.Game = game
	}
}

// WithTypeCoercion allows casts between unrelated types.
func WithTypeCoercion(allow bool) CompilerOption {
	return func(c *Compiler) {
		c.AllowTypeCoercion = allow
	}
}

// WithTypeCoercionWhitelist allows casts on the parameters of the named
// functions only.
func WithTypeCoercionWhitelist(names ...ir.FunctionNameAndArity) CompilerOption {
	return func(c *Compiler) {
		for _, n := range names {
			c.typeCoercionWhitelist[n.Key()] = true
		}
	}
}

// WithIgnoredDatabases excludes databases from unused-database analysis.
func WithIgnoredDatabases(names ...ir.FunctionNameAndArity) CompilerOption {
	return func(c *Compiler) {
		for _, n := range names {
			c.ignoreUnusedDatabases[n.Key()] = true
		}
	}
}

// WithGameObjectChecks enables GUID checks against the game-object table.
func WithGameObjectChecks(enabled bool) CompilerOption {
	return func(c *Compiler) {
		c.CheckGameObjects = enabled
	}
}

// WithMaxPropagationPasses bounds the propagation loop.
//
// Default: 100 passes (DefaultMaxPropagationPasses)
func WithMaxPropagationPasses(n int) CompilerOption {
	return func(c *Compiler) {
		if n > 0 {
			c.maxPasses = n
		}
	}
}

// New creates a Compiler over ctx.
func New(ctx *CompilationContext, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		Context:               ctx,
		Game:                  TargetDOS2DE,
		maxPasses:             DefaultMaxPropagationPasses,
		typeCoercionWhitelist: make(map[ir.NameKey]bool),
		ignoreUnusedDatabases: make(map[ir.NameKey]bool),
		inferredKinds:         make(map[ir.NameKey]bool),
		kindConflicts:         make(map[kindConflict]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Compiler) log() *CompilationLog {
	return c.Context.Log
}

// AddGoal registers a goal and pre-declares the PROC and QRY signatures it
// defines. It returns false if the goal name is already taken.
func (c *Compiler) AddGoal(goal *ir.Goal) bool {
	if !c.Context.RegisterGoal(goal) {
		return false
	}

	for _, rule := range goal.KBSection {
		switch rule.Type {
		case ir.RuleProc:
			c.addQueryOrProc(rule, ir.FunctionProc)
		case ir.RuleQuery:
			c.addQueryOrProc(rule, ir.FunctionUserQuery)
		}
	}

	slog.Debug("goal added", "goal", goal.Name, "rules", len(goal.KBSection))
	return true
}

func (c *Compiler) addQueryOrProc(rule *ir.Rule, kind ir.FunctionType) {
	initial, ok := rule.InitialCondition().(*ir.FuncCondition)
	if !ok {
		c.log().Error(rule.Location, ErrInvalidProcDefinition,
			"Declaration of a %s must start with a %s name and signature.", kind, kind)
		return
	}

	c.propagateSignatureIfRequired(rule, initial.Func, &kind, initial.Params, false)
}

// Compile runs type propagation and verification over all registered goals.
// It reports whether compilation produced no errors.
func (c *Compiler) Compile() bool {
	c.PropagateTypes()
	c.VerifyIR()
	return !c.log().HasErrors
}

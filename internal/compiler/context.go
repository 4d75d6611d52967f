package compiler

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/osiris/internal/ir"
)

// GameObject is an entry of the game-object table used to check GUIDSTRING
// constants.
type GameObject struct {
	Name string
	Type *ir.ValueType
}

// CompilationContext is the symbol registry shared by all compiler phases:
// types, function signatures, goals and game objects.
//
// Iteration order is part of the emitted output: types iterate in
// registration order (intrinsics first), signatures and goals in
// registration order.
type CompilationContext struct {
	Log *CompilationLog

	types       []*ir.ValueType
	typesByID   map[uint32]*ir.ValueType
	typesByName map[string]*ir.ValueType

	signatures     []*ir.FunctionSignature
	signaturesByID map[ir.NameKey]*ir.FunctionSignature
	builtins       map[ir.NameKey]*ir.BuiltinFunction

	goals       []*ir.Goal
	goalsByName map[string]*ir.Goal

	gameObjects map[string]GameObject
}

// NewCompilationContext returns a registry holding the intrinsic types.
func NewCompilationContext(log *CompilationLog) *CompilationContext {
	ctx := &CompilationContext{
		Log:            log,
		typesByID:      make(map[uint32]*ir.ValueType),
		typesByName:    make(map[string]*ir.ValueType),
		signaturesByID: make(map[ir.NameKey]*ir.FunctionSignature),
		builtins:       make(map[ir.NameKey]*ir.BuiltinFunction),
		goalsByName:    make(map[string]*ir.Goal),
		gameObjects:    make(map[string]GameObject),
	}
	ctx.registerIntrinsicTypes()
	return ctx
}

var intrinsicTypeNames = []string{"NONE", "INTEGER", "INTEGER64", "REAL", "STRING", "GUIDSTRING"}

func (c *CompilationContext) registerIntrinsicTypes() {
	for id, name := range intrinsicTypeNames {
		t := &ir.ValueType{
			TypeID:          uint32(id),
			IntrinsicTypeID: ir.IntrinsicType(id),
			Name:            name,
		}
		c.addType(t)
	}
}

func (c *CompilationContext) addType(t *ir.ValueType) {
	c.types = append(c.types, t)
	c.typesByID[t.TypeID] = t
	c.typesByName[t.Name] = t
}

// RegisterType registers an alias type. It returns false and logs a
// diagnostic when the ID or name is taken or out of range.
func (c *CompilationContext) RegisterType(t *ir.ValueType) bool {
	if _, ok := c.typesByID[t.TypeID]; ok {
		c.Log.Error(nil, ErrTypeIDAlreadyDefined, "Type ID already in use")
		return false
	}

	if _, ok := c.typesByName[t.Name]; ok {
		c.Log.Error(nil, ErrTypeNameAlreadyDefined, "Type name already in use")
		return false
	}

	if t.TypeID <= ir.MaxIntrinsicTypeID || t.TypeID > ir.MaxTypeID {
		c.Log.Error(nil, ErrTypeIDInvalid, "Type ID must be in the range %d..%d", ir.MaxIntrinsicTypeID+1, ir.MaxTypeID)
		return false
	}

	if !t.IntrinsicTypeID.IsValid() {
		c.Log.Error(nil, ErrIntrinsicTypeIDInvalid, "Alias type ID must refer to an intrinsic type")
		return false
	}

	c.addType(t)
	return true
}

// RegisterFunction registers a signature, with builtin metadata for header
// functions (nil otherwise). It returns false if the name and arity are taken.
func (c *CompilationContext) RegisterFunction(sig *ir.FunctionSignature, builtin *ir.BuiltinFunction) bool {
	key := sig.NameAndArity().Key()
	if _, ok := c.signaturesByID[key]; ok {
		c.Log.Error(nil, ErrSignatureAlreadyDefined, "Signature already registered: %s", sig.NameAndArity())
		return false
	}

	c.signatures = append(c.signatures, sig)
	c.signaturesByID[key] = sig
	if builtin != nil {
		c.builtins[key] = builtin
	}
	return true
}

// RegisterGoal registers a goal by name. It returns false for duplicates.
func (c *CompilationContext) RegisterGoal(goal *ir.Goal) bool {
	if _, ok := c.goalsByName[goal.Name]; ok {
		c.Log.Error(nil, ErrGoalAlreadyDefined, "Goal already registered: %s", goal.Name)
		return false
	}

	c.goals = append(c.goals, goal)
	c.goalsByName[goal.Name] = goal
	return true
}

// RegisterGameObject adds an entry to the game-object table. The GUID must
// be a valid UUID; lookups are case-insensitive.
func (c *CompilationContext) RegisterGameObject(guid, name string, typ *ir.ValueType) error {
	id, err := uuid.Parse(guid)
	if err != nil {
		return fmt.Errorf("game object %q: invalid GUID %q: %w", name, guid, err)
	}
	c.gameObjects[id.String()] = GameObject{Name: name, Type: typ}
	return nil
}

// LookupGameObject finds a game object by GUID.
func (c *CompilationContext) LookupGameObject(guid string) (GameObject, bool) {
	id, err := uuid.Parse(guid)
	if err != nil {
		return GameObject{}, false
	}
	obj, ok := c.gameObjects[id.String()]
	return obj, ok
}

// HasGameObjects reports whether a game-object table was loaded.
func (c *CompilationContext) HasGameObjects() bool {
	return len(c.gameObjects) > 0
}

// LookupType returns the type with the given name. Names are case-sensitive.
func (c *CompilationContext) LookupType(name string) *ir.ValueType {
	return c.typesByName[name]
}

// LookupTypeByID returns the type with the given ID.
func (c *CompilationContext) LookupTypeByID(id uint32) *ir.ValueType {
	return c.typesByID[id]
}

// IntrinsicType returns the base type for an intrinsic type ID.
func (c *CompilationContext) IntrinsicType(t ir.IntrinsicType) *ir.ValueType {
	return c.typesByID[uint32(t)]
}

// LookupSignature returns the signature for a name and arity.
func (c *CompilationContext) LookupSignature(name ir.FunctionNameAndArity) *ir.FunctionSignature {
	return c.signaturesByID[name.Key()]
}

// LookupName returns the builtin metadata for a header function.
func (c *CompilationContext) LookupName(name ir.FunctionNameAndArity) *ir.BuiltinFunction {
	return c.builtins[name.Key()]
}

// LookupGoal returns the goal with the given name. Names are case-sensitive.
func (c *CompilationContext) LookupGoal(name string) *ir.Goal {
	return c.goalsByName[name]
}

// Types returns all types in registration order.
func (c *CompilationContext) Types() []*ir.ValueType {
	return c.types
}

// Signatures returns all signatures in registration order.
func (c *CompilationContext) Signatures() []*ir.FunctionSignature {
	return c.signatures
}

// Goals returns all goals in registration order.
func (c *CompilationContext) Goals() []*ir.Goal {
	return c.goals
}

// Target is the game a story is compiled for.
type Target uint8

const (
	TargetDOS2 Target = iota
	TargetDOS2DE
	TargetBG3
)

// String returns the target name as accepted by ParseTarget.
func (t Target) String() string {
	switch t {
	case TargetDOS2:
		return "dos2"
	case TargetDOS2DE:
		return "dos2de"
	case TargetBG3:
		return "bg3"
	default:
		return fmt.Sprintf("Target(%d)", uint8(t))
	}
}

// ParseTarget parses dos2, dos2de or bg3.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(s) {
	case "dos2":
		return TargetDOS2, nil
	case "dos2de":
		return TargetDOS2DE, nil
	case "bg3":
		return TargetBG3, nil
	default:
		return 0, fmt.Errorf("unknown target %q: must be dos2, dos2de or bg3", s)
	}
}

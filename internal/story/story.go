package story

import (
	"fmt"

	"github.com/roach88/osiris/internal/ir"
)

// Header values written into every emitted story.
const (
	HeaderVersion        = "Osiris save file dd. 03/30/17 07:28:20. Version 1.8."
	DebugFlags    uint32 = 0x000C10A0

	MajorVersion = uint8(ir.StoryFormatVersion >> 8)
	MinorVersion = uint8(ir.StoryFormatVersion & 0xff)
)

// NodeRef references a node by index. 0 is invalid.
type NodeRef uint32

// IsValid reports whether the reference points at a node.
func (r NodeRef) IsValid() bool { return r != 0 }

// AdapterRef references an adapter by index. 0 is invalid.
type AdapterRef uint32

// IsValid reports whether the reference points at an adapter.
func (r AdapterRef) IsValid() bool { return r != 0 }

// DatabaseRef references a database by index. 0 is invalid.
type DatabaseRef uint32

// IsValid reports whether the reference points at a database.
func (r DatabaseRef) IsValid() bool { return r != 0 }

// GoalRef references a goal by index. 0 is invalid.
type GoalRef uint32

// IsValid reports whether the reference points at a goal.
func (r GoalRef) IsValid() bool { return r != 0 }

// EntryPoint is the side of a join a successor edge enters.
type EntryPoint uint8

const (
	EntryNone  EntryPoint = 0
	EntryLeft  EntryPoint = 1
	EntryRight EntryPoint = 2
)

func (e EntryPoint) String() string {
	switch e {
	case EntryNone:
		return "None"
	case EntryLeft:
		return "Left"
	case EntryRight:
		return "Right"
	default:
		return fmt.Sprintf("EntryPoint(%d)", uint8(e))
	}
}

// NodeEntryItem is a successor edge: the target node, the side it is
// entered from and the goal owning the edge.
type NodeEntryItem struct {
	Node       NodeRef    `json:"node"`
	EntryPoint EntryPoint `json:"entry_point"`
	Goal       GoalRef    `json:"goal"`
}

// Header is the save file header of a story.
type Header struct {
	Version      string `json:"version"`
	BigEndian    bool   `json:"big_endian"`
	DebugFlags   uint32 `json:"debug_flags"`
	MajorVersion uint8  `json:"major_version"`
	MinorVersion uint8  `json:"minor_version"`
}

// OsirisType is a story type entry. Builtin types have Alias 0; aliases
// point at their intrinsic type.
type OsirisType struct {
	Index     uint8  `json:"index"`
	Alias     uint8  `json:"alias"`
	Name      string `json:"name"`
	IsBuiltin bool   `json:"is_builtin"`
}

// FunctionSignature is the story form of a signature. Bit 0x80>>(i&7) of
// byte i/8 of OutParamMask marks parameter i as an out parameter.
type FunctionSignature struct {
	Name         string   `json:"name"`
	OutParamMask []byte   `json:"out_param_mask"`
	ParamTypes   []uint32 `json:"param_types"`
}

// Function is a function table entry.
type Function struct {
	Line                uint32            `json:"line"`
	ConditionReferences uint32            `json:"condition_references"`
	ActionReferences    uint32            `json:"action_references"`
	Node                NodeRef           `json:"node"`
	Type                ir.FunctionType   `json:"type"`
	Meta1               uint32            `json:"meta1"`
	Meta2               uint32            `json:"meta2"`
	Meta3               uint32            `json:"meta3"`
	Meta4               uint32            `json:"meta4"`
	Signature           FunctionSignature `json:"signature"`
}

// Key returns the Name/Arity key used by Story.FunctionSignatureMap.
func (f *Function) Key() string {
	return fmt.Sprintf("%s/%d", f.Signature.Name, len(f.Signature.ParamTypes))
}

// ColumnMapping maps a logical (rule tuple) column to a physical one.
type ColumnMapping struct {
	Logical  uint8 `json:"logical"`
	Physical uint8 `json:"physical"`
}

// LogicalValue is a constant bound to a logical column.
type LogicalValue struct {
	Index int   `json:"index"`
	Value Value `json:"value"`
}

// Tuple holds adapter constants in physical and logical order.
type Tuple struct {
	Physical []Value        `json:"physical"`
	Logical  []LogicalValue `json:"logical"`
}

// Adapter maps the columns of a node output onto rule variable slots.
// LogicalIndices has one entry per physical column, -1 for columns that
// carry no variable. LogicalToPhysical is sorted by logical column.
type Adapter struct {
	Index             AdapterRef      `json:"index"`
	Constants         Tuple           `json:"constants"`
	LogicalIndices    []int8          `json:"logical_indices"`
	LogicalToPhysical []ColumnMapping `json:"logical_to_physical"`
}

// HasLogical reports whether logical column i is already mapped.
func (a *Adapter) HasLogical(i uint8) bool {
	for _, m := range a.LogicalToPhysical {
		if m.Logical == i {
			return true
		}
	}
	return false
}

// Database is a fact table. OwnerNode is the node that owns it, 0 while
// unassigned.
type Database struct {
	Index      DatabaseRef `json:"index"`
	ParamTypes []uint32    `json:"param_types"`
	OwnerNode  NodeRef     `json:"owner_node"`
}

// Goal is an emitted goal.
type Goal struct {
	Index              GoalRef   `json:"index"`
	Name               string    `json:"name"`
	SubGoalCombination uint8     `json:"sub_goal_combination"`
	Flags              uint8     `json:"flags"`
	InitCalls          []Call    `json:"init_calls"`
	ExitCalls          []Call    `json:"exit_calls"`
	ParentGoals        []GoalRef `json:"parent_goals"`
	SubGoals           []GoalRef `json:"sub_goals"`
}

// Story is the complete emitted graph. Nodes, adapters, databases and goals
// are stored in index order: entity i lives at slice position i-1.
type Story struct {
	MajorVersion uint8
	MinorVersion uint8
	Header       Header

	Types     []OsirisType
	Functions []*Function
	Nodes     []Node
	Adapters  []*Adapter
	Databases []*Database
	Goals     []*Goal

	// FunctionSignatureMap indexes Functions by "Name/Arity".
	FunctionSignatureMap map[string]*Function
}

// New returns an empty story carrying the current format header.
func New() *Story {
	return &Story{
		MajorVersion: MajorVersion,
		MinorVersion: MinorVersion,
		Header: Header{
			Version:      HeaderVersion,
			BigEndian:    false,
			DebugFlags:   DebugFlags,
			MajorVersion: MajorVersion,
			MinorVersion: MinorVersion,
		},
		Types:                []OsirisType{},
		Functions:            []*Function{},
		Nodes:                []Node{},
		Adapters:             []*Adapter{},
		Databases:            []*Database{},
		Goals:                []*Goal{},
		FunctionSignatureMap: make(map[string]*Function),
	}
}

// AddNode assigns the next node index to n and appends it.
func (s *Story) AddNode(n Node) NodeRef {
	ref := NodeRef(len(s.Nodes) + 1)
	n.Base().Index = ref
	s.Nodes = append(s.Nodes, n)
	return ref
}

// AddAdapter appends a new empty adapter.
func (s *Story) AddAdapter() *Adapter {
	a := &Adapter{
		Index:             AdapterRef(len(s.Adapters) + 1),
		Constants:         Tuple{Physical: []Value{}, Logical: []LogicalValue{}},
		LogicalIndices:    []int8{},
		LogicalToPhysical: []ColumnMapping{},
	}
	s.Adapters = append(s.Adapters, a)
	return a
}

// AddDatabase appends a new database with the given column types.
func (s *Story) AddDatabase(paramTypes []uint32, owner NodeRef) *Database {
	db := &Database{
		Index:      DatabaseRef(len(s.Databases) + 1),
		ParamTypes: paramTypes,
		OwnerNode:  owner,
	}
	s.Databases = append(s.Databases, db)
	return db
}

// AddGoal assigns the next goal index to g and appends it.
func (s *Story) AddGoal(g *Goal) GoalRef {
	g.Index = GoalRef(len(s.Goals) + 1)
	s.Goals = append(s.Goals, g)
	return g.Index
}

// AddFunction appends a function table entry.
func (s *Story) AddFunction(f *Function) {
	s.Functions = append(s.Functions, f)
	s.FunctionSignatureMap[f.Key()] = f
}

// Node resolves a node reference, nil if invalid.
func (s *Story) Node(ref NodeRef) Node {
	if !ref.IsValid() || int(ref) > len(s.Nodes) {
		return nil
	}
	return s.Nodes[ref-1]
}

// Adapter resolves an adapter reference, nil if invalid.
func (s *Story) Adapter(ref AdapterRef) *Adapter {
	if !ref.IsValid() || int(ref) > len(s.Adapters) {
		return nil
	}
	return s.Adapters[ref-1]
}

// Database resolves a database reference, nil if invalid.
func (s *Story) Database(ref DatabaseRef) *Database {
	if !ref.IsValid() || int(ref) > len(s.Databases) {
		return nil
	}
	return s.Databases[ref-1]
}

// Goal resolves a goal reference, nil if invalid.
func (s *Story) Goal(ref GoalRef) *Goal {
	if !ref.IsValid() || int(ref) > len(s.Goals) {
		return nil
	}
	return s.Goals[ref-1]
}

// Type returns the type entry with the given ID.
func (s *Story) Type(id uint32) (OsirisType, bool) {
	for _, t := range s.Types {
		if uint32(t.Index) == id {
			return t, true
		}
	}
	return OsirisType{}, false
}

// IntrinsicTypeOf resolves a type ID to its intrinsic type.
func (s *Story) IntrinsicTypeOf(id uint32) ir.IntrinsicType {
	t, ok := s.Type(id)
	if !ok {
		return ir.TypeUnknown
	}
	if t.IsBuiltin {
		return ir.IntrinsicType(t.Index)
	}
	return ir.IntrinsicType(t.Alias)
}

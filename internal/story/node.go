package story

import (
	"fmt"

	"github.com/roach88/osiris/internal/ir"
)

// NodeType is the story node type code.
type NodeType uint8

const (
	NodeDatabase      NodeType = 1
	NodeProc          NodeType = 2
	NodeDivQuery      NodeType = 3
	NodeAnd           NodeType = 4
	NodeNotAnd        NodeType = 5
	NodeRelOp         NodeType = 6
	NodeRule          NodeType = 7
	NodeInternalQuery NodeType = 8
	NodeUserQuery     NodeType = 9
)

var nodeTypeNames = map[NodeType]string{
	NodeDatabase:      "Database",
	NodeProc:          "Proc",
	NodeDivQuery:      "DivQuery",
	NodeAnd:           "And",
	NodeNotAnd:        "NotAnd",
	NodeRelOp:         "RelOp",
	NodeRule:          "Rule",
	NodeInternalQuery: "InternalQuery",
	NodeUserQuery:     "UserQuery",
}

func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("NodeType(%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t NodeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Node is a sealed interface for story nodes.
type Node interface {
	node() // Sealed
	Base() *NodeBase
	Type() NodeType
}

// NodeBase holds the fields shared by every node. Name and NumParams are
// only set on nodes backing a function.
type NodeBase struct {
	Index     NodeRef     `json:"index"`
	Database  DatabaseRef `json:"database"`
	Name      string      `json:"name"`
	NumParams uint8       `json:"num_params"`
}

// Base returns the shared node fields.
func (b *NodeBase) Base() *NodeBase { return b }

// DataNode is a Database or Proc node. Its successors are listed in
// ReferencedBy.
type DataNode struct {
	NodeBase
	Kind         NodeType        `json:"kind"`
	ReferencedBy []NodeEntryItem `json:"referenced_by"`
}

func (*DataNode) node() {}

// Type returns NodeDatabase or NodeProc.
func (n *DataNode) Type() NodeType { return n.Kind }

// QueryNode is a DivQuery, InternalQuery or UserQuery node.
type QueryNode struct {
	NodeBase
	Kind NodeType `json:"kind"`
}

func (*QueryNode) node() {}

// Type returns the query kind.
func (n *QueryNode) Type() NodeType { return n.Kind }

// TreeNodeBase holds the single successor of a tree node.
type TreeNodeBase struct {
	Next NodeEntryItem `json:"next"`
}

// Tree returns the tree node fields.
func (t *TreeNodeBase) Tree() *TreeNodeBase { return t }

// TreeNode is implemented by join, comparison and rule nodes.
type TreeNode interface {
	Node
	Tree() *TreeNodeBase
}

// JoinSide is one input of a join node.
type JoinSide struct {
	Parent      NodeRef       `json:"parent"`
	Adapter     AdapterRef    `json:"adapter"`
	Database    NodeRef       `json:"database_node"`
	Indirection uint8         `json:"indirection"`
	Join        NodeEntryItem `json:"join"`
}

// JoinNode is an And node, or a NotAnd node when Negated is set.
type JoinNode struct {
	NodeBase
	TreeNodeBase
	Negated bool     `json:"negated"`
	Left    JoinSide `json:"left"`
	Right   JoinSide `json:"right"`
}

func (*JoinNode) node() {}

// Type returns NodeAnd or NodeNotAnd.
func (n *JoinNode) Type() NodeType {
	if n.Negated {
		return NodeNotAnd
	}
	return NodeAnd
}

// RelNodeBase holds the fields shared by comparison and rule nodes.
type RelNodeBase struct {
	TreeNodeBase
	Parent                 NodeRef       `json:"parent"`
	Adapter                AdapterRef    `json:"adapter"`
	RelDatabase            NodeRef       `json:"rel_database_node"`
	RelDatabaseIndirection uint8         `json:"rel_database_indirection"`
	RelJoin                NodeEntryItem `json:"rel_join"`
}

// Rel returns the shared fields.
func (r *RelNodeBase) Rel() *RelNodeBase { return r }

// RelNode is implemented by comparison and rule nodes.
type RelNode interface {
	TreeNode
	Rel() *RelNodeBase
}

// RelOpNode filters tuples with a comparison. A value index of -1 means
// the side is the constant in LeftValue/RightValue.
type RelOpNode struct {
	NodeBase
	RelNodeBase
	LeftValueIndex  int8         `json:"left_value_index"`
	RightValueIndex int8         `json:"right_value_index"`
	LeftValue       Value        `json:"left_value"`
	RightValue      Value        `json:"right_value"`
	Op              ir.RelOpType `json:"op"`
}

func (*RelOpNode) node() {}

// Type returns NodeRelOp.
func (*RelOpNode) Type() NodeType { return NodeRelOp }

// RuleNode terminates a rule and carries its THEN calls.
type RuleNode struct {
	NodeBase
	RelNodeBase
	Calls       []Call     `json:"calls"`
	Variables   []Variable `json:"variables"`
	Line        uint32     `json:"line"`
	DerivedGoal GoalRef    `json:"derived_goal"`
	IsQuery     bool       `json:"is_query"`
}

func (*RuleNode) node() {}

// Type returns NodeRule.
func (*RuleNode) Type() NodeType { return NodeRule }

package store

import "time"

// Build is a recorded compile run.
type Build struct {
	ID          string
	Seq         int64
	ProjectDir  string
	Target      string
	CreatedAt   time.Time
	Fingerprint string
	Goals       int
	Errors      int
	Warnings    int
	Passes      int
	Succeeded   bool
	Duration    time.Duration
}

// DiagnosticRecord is a stored compiler finding. File is empty and Line
// and Column are zero for diagnostics without a location.
type DiagnosticRecord struct {
	Index   int
	Level   string
	Code    string
	Message string
	File    string
	Line    int
	Column  int
}

// GoalRecord summarizes an emitted goal.
type GoalRecord struct {
	Index     uint32
	Name      string
	Parents   []uint32
	InitCalls int
	ExitCalls int
}

// FunctionRecord summarizes a function table entry. Node is zero for
// functions without a node.
type FunctionRecord struct {
	Name          string
	Arity         int
	Type          string
	Node          uint32
	ConditionRefs uint32
	ActionRefs    uint32
}

// NodeRecord summarizes an emitted node.
type NodeRecord struct {
	Index    uint32
	Type     string
	Name     string
	Arity    int
	Database uint32
}

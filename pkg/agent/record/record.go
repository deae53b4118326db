// Package record holds the pure in-memory data model shared by pkg/agent
// and pkg/agent/transport: VariableNode, StackFrame, ExceptionRecord,
// SnapshotRecord, BreakpointEntry, BreakpointHit and User. It has no
// dependencies of its own so both the capture side (pkg/agent) and the
// wire side (pkg/agent/transport) can depend on it without a cycle.
package record

// Severity indicates the severity level of a capture.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// VariableNode is a size-bounded, depth-bounded, redacted representation of
// a single reflected value.
type VariableNode struct {
	Name        string
	Type        string
	Value       string
	HasValue    bool
	IsNull      bool
	IsTruncated bool
	Children    map[string]VariableNode
	HasChildren bool
}

// StackFrame is one frame of a captured call stack.
type StackFrame struct {
	ClassName      string
	MethodName     string
	FilePath       string
	FileName       string
	LineNumber     int
	ColumnNumber   int
	IsNative       bool
	LocalVariables map[string]VariableNode
}

// ExceptionRecord is built per capture and handed once to the transport;
// it is never retained after that.
type ExceptionRecord struct {
	ExceptionType  string
	Message        string
	FilePath       string
	LineNumber     int
	MethodName     string
	ClassName      string
	Severity       Severity
	Runtime        string
	RuntimeVersion string
	StackTrace     []StackFrame
	LocalVariables map[string]VariableNode
	RequestContext map[string]any
}

// SnapshotRecord is a point-in-time capture not caused by an exception
// (breakpoint hit or manual snapshot).
type SnapshotRecord struct {
	BreakpointID   string
	ExceptionID    string
	FilePath       string
	LineNumber     int
	StackTrace     []StackFrame
	LocalVariables map[string]VariableNode
	RequestContext map[string]any
}

// BreakpointEntry is a single registered remote breakpoint.
type BreakpointEntry struct {
	ID        string
	FilePath  string
	Line      int
	Condition string
	MaxHits   int
	HitCount  int
	CreatedAt int64 // ms since epoch
}

// BreakpointHit is a single observed hit of a registered breakpoint, built
// by BreakpointRegistry.Hit and handed to the transport as a breakpoint_hit
// envelope payload.
type BreakpointHit struct {
	BreakpointID   string
	CapturedAtMs   int64
	FilePath       string
	LineNumber     int
	StackTrace     []StackFrame
	LocalVariables map[string]VariableNode
	HitCount       int
}

// User identifies the end user associated with captured exceptions, set via
// Agent.SetUser.
type User struct {
	ID       string
	Email    string
	Username string
}

// Package wire holds the JSON-tagged wire types exchanged with the
// collector. These are kept separate from the in-memory domain types in
// pkg/agent/record (record.VariableNode, record.StackFrame, ...) so struct tags and
// marshaling concerns never leak into the domain model — only
// pkg/agent/transport converts between the two.
//
// Field names are exactly the spec's snake_case wire vocabulary
// (exception_type, file_path, is_native, is_null, is_truncated, ...).
package wire

import "encoding/json"

// Envelope is the outer message exchanged over the transport:
// {"type": ..., "payload": ..., "timestamp": ...}.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// Outbound envelope types.
const (
	TypeRegister      = "register"
	TypeException     = "exception"
	TypeSnapshot      = "snapshot"
	TypeBreakpointHit = "breakpoint_hit"
	TypeHeartbeat     = "heartbeat"
)

// Inbound envelope types.
const (
	TypeRegistered       = "registered"
	TypeError            = "error"
	TypeSetBreakpoint    = "set_breakpoint"
	TypeRemoveBreakpoint = "remove_breakpoint"
)

// VariableNode mirrors record.VariableNode for the wire.
type VariableNode struct {
	Name        string                  `json:"name"`
	Type        string                  `json:"type"`
	Value       *string                 `json:"value,omitempty"`
	IsNull      bool                    `json:"is_null"`
	IsTruncated bool                    `json:"is_truncated"`
	Children    map[string]VariableNode `json:"children,omitempty"`
}

// StackFrame mirrors record.StackFrame for the wire.
type StackFrame struct {
	ClassName      string                  `json:"class_name,omitempty"`
	MethodName     string                  `json:"method_name,omitempty"`
	FilePath       string                  `json:"file_path,omitempty"`
	FileName       string                  `json:"file_name,omitempty"`
	LineNumber     int                     `json:"line_number"`
	ColumnNumber   int                     `json:"column_number"`
	IsNative       bool                    `json:"is_native"`
	LocalVariables map[string]VariableNode `json:"local_variables,omitempty"`
}

// ExceptionPayload is the "exception" envelope's payload, before the
// transport layer merges in agent_id/environment/hostname via sjson.
type ExceptionPayload struct {
	ExceptionType  string                  `json:"exception_type"`
	Message        string                  `json:"message,omitempty"`
	FilePath       string                  `json:"file_path,omitempty"`
	LineNumber     int                     `json:"line_number"`
	MethodName     string                  `json:"method_name,omitempty"`
	ClassName      string                  `json:"class_name,omitempty"`
	Severity       string                  `json:"severity"`
	Runtime        string                  `json:"runtime"`
	RuntimeVersion string                  `json:"runtime_version"`
	StackTrace     []StackFrame            `json:"stack_trace"`
	LocalVariables map[string]VariableNode `json:"local_variables,omitempty"`
	RequestContext map[string]any          `json:"request_context,omitempty"`
}

// SnapshotPayload is the "snapshot" envelope's payload.
type SnapshotPayload struct {
	BreakpointID   string                  `json:"breakpoint_id,omitempty"`
	ExceptionID    string                  `json:"exception_id,omitempty"`
	FilePath       string                  `json:"file_path,omitempty"`
	LineNumber     int                     `json:"line_number"`
	StackTrace     []StackFrame            `json:"stack_trace"`
	LocalVariables map[string]VariableNode `json:"local_variables,omitempty"`
	RequestContext map[string]any          `json:"request_context,omitempty"`
}

// BreakpointHitPayload is the "breakpoint_hit" envelope's payload.
type BreakpointHitPayload struct {
	CapturedAt     int64                   `json:"captured_at"`
	FilePath       string                  `json:"file_path,omitempty"`
	LineNumber     int                     `json:"line_number"`
	StackTrace     []StackFrame            `json:"stack_trace"`
	LocalVariables map[string]VariableNode `json:"local_variables,omitempty"`
	HitCount       int                     `json:"hit_count"`
}

// RegisterPayload is the "register" envelope's payload.
type RegisterPayload struct {
	APIKey          string `json:"api_key"`
	AgentID         string `json:"agent_id"`
	Hostname        string `json:"hostname"`
	Environment     string `json:"environment"`
	Runtime         string `json:"runtime"`
	RuntimeVersion  string `json:"runtime_version"`
	AgentVersion    string `json:"agent_version"`
	ApplicationName string `json:"application_name,omitempty"`
}

// HeartbeatMetrics is the nested metrics object in a heartbeat payload.
type HeartbeatMetrics struct {
	MemoryMB     float64 `json:"memory_mb"`
	PeakMemoryMB float64 `json:"peak_memory_mb"`
}

// HeartbeatPayload is the "heartbeat" envelope's payload.
type HeartbeatPayload struct {
	Timestamp int64            `json:"timestamp"`
	AgentID   string           `json:"agent_id"`
	Metrics   HeartbeatMetrics `json:"metrics"`
}

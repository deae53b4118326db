// payload.go converts agent domain records into wire payloads and merges in
// the per-envelope-type fields (agent_id, environment, hostname) that the
// spec requires on exception/snapshot/breakpoint_hit payloads. Top-level
// dynamic fields are merged with tidwall/sjson rather than added as extra
// struct fields, since which fields apply varies by envelope type and this
// keeps the wire.*Payload structs focused on their own shape, matching the
// teacher's transitive tidwall/sjson dependency for incrementally building
// loosely-typed JSON documents.
package transport

import (
	"encoding/json"

	"github.com/tidwall/sjson"

	"github.com/aivorynet/agent-php/pkg/agent/record"
	"github.com/aivorynet/agent-php/pkg/agent/wire"
)

func toWireVariableNode(n record.VariableNode) wire.VariableNode {
	out := wire.VariableNode{
		Name:        n.Name,
		Type:        n.Type,
		IsNull:      n.IsNull,
		IsTruncated: n.IsTruncated,
	}
	if n.HasValue {
		v := n.Value
		out.Value = &v
	}
	if len(n.Children) > 0 {
		out.Children = make(map[string]wire.VariableNode, len(n.Children))
		for k, c := range n.Children {
			out.Children[k] = toWireVariableNode(c)
		}
	}
	return out
}

func toWireVariables(m map[string]record.VariableNode) map[string]wire.VariableNode {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]wire.VariableNode, len(m))
	for k, v := range m {
		out[k] = toWireVariableNode(v)
	}
	return out
}

func toWireStackFrame(f record.StackFrame) wire.StackFrame {
	return wire.StackFrame{
		ClassName:      f.ClassName,
		MethodName:     f.MethodName,
		FilePath:       f.FilePath,
		FileName:       f.FileName,
		LineNumber:     f.LineNumber,
		ColumnNumber:   f.ColumnNumber,
		IsNative:       f.IsNative,
		LocalVariables: toWireVariables(f.LocalVariables),
	}
}

func toWireStackTrace(frames []record.StackFrame) []wire.StackFrame {
	out := make([]wire.StackFrame, len(frames))
	for i, f := range frames {
		out[i] = toWireStackFrame(f)
	}
	return out
}

// buildExceptionPayload encodes rec as the "exception" envelope payload,
// with agent_id/environment/hostname merged in.
func buildExceptionPayload(rec record.ExceptionRecord, agentID, environment, hostname string) ([]byte, error) {
	p := wire.ExceptionPayload{
		ExceptionType:  rec.ExceptionType,
		Message:        rec.Message,
		FilePath:       rec.FilePath,
		LineNumber:     rec.LineNumber,
		MethodName:     rec.MethodName,
		ClassName:      rec.ClassName,
		Severity:       string(rec.Severity),
		Runtime:        rec.Runtime,
		RuntimeVersion: rec.RuntimeVersion,
		StackTrace:     toWireStackTrace(rec.StackTrace),
		LocalVariables: toWireVariables(rec.LocalVariables),
		RequestContext: rec.RequestContext,
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return mergeIdentityFields(body, agentID, environment, hostname)
}

// buildSnapshotPayload encodes rec as the "snapshot" envelope payload.
func buildSnapshotPayload(rec record.SnapshotRecord, agentID string) ([]byte, error) {
	p := wire.SnapshotPayload{
		BreakpointID:   rec.BreakpointID,
		ExceptionID:    rec.ExceptionID,
		FilePath:       rec.FilePath,
		LineNumber:     rec.LineNumber,
		StackTrace:     toWireStackTrace(rec.StackTrace),
		LocalVariables: toWireVariables(rec.LocalVariables),
		RequestContext: rec.RequestContext,
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "agent_id", agentID)
}

// buildBreakpointHitPayload encodes hit as the "breakpoint_hit" envelope
// payload.
func buildBreakpointHitPayload(hit record.BreakpointHit, agentID string) ([]byte, error) {
	p := wire.BreakpointHitPayload{
		CapturedAt:     hit.CapturedAtMs,
		FilePath:       hit.FilePath,
		LineNumber:     hit.LineNumber,
		StackTrace:     toWireStackTrace(hit.StackTrace),
		LocalVariables: toWireVariables(hit.LocalVariables),
		HitCount:       hit.HitCount,
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "agent_id", agentID)
}

func mergeIdentityFields(body []byte, agentID, environment, hostname string) ([]byte, error) {
	body, err := sjson.SetBytes(body, "agent_id", agentID)
	if err != nil {
		return nil, err
	}
	body, err = sjson.SetBytes(body, "environment", environment)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "hostname", hostname)
}

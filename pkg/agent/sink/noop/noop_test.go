package noop

import (
	"context"
	"testing"

	"github.com/aivorynet/agent-php/pkg/agent/record"
	"github.com/aivorynet/agent-php/pkg/agent/sink"
)

func TestNoopSink_ImplementsSinkInterface(t *testing.T) {
	var _ sink.Sink = New()
}

func TestNoopSink_SendException_ReturnsNil(t *testing.T) {
	s := New()
	err := s.SendException(context.Background(), record.ExceptionRecord{ExceptionType: "boom"})
	if err != nil {
		t.Errorf("SendException returned error: %v", err)
	}
}

func TestNoopSink_SendSnapshot_ReturnsNil(t *testing.T) {
	s := New()
	err := s.SendSnapshot(context.Background(), record.SnapshotRecord{BreakpointID: "bp-1"})
	if err != nil {
		t.Errorf("SendSnapshot returned error: %v", err)
	}
}

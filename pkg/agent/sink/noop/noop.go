// Package noop provides a sink that discards all records. Useful for
// testing and for disabling capture delivery without touching call sites.
package noop

import (
	"context"

	"github.com/aivorynet/agent-php/pkg/agent/record"
	"github.com/aivorynet/agent-php/pkg/agent/sink"
)

type noopSink struct{}

// New returns a sink that discards every record it receives.
func New() sink.Sink {
	return &noopSink{}
}

func (s *noopSink) SendException(ctx context.Context, rec record.ExceptionRecord) error {
	return nil
}

func (s *noopSink) SendSnapshot(ctx context.Context, rec record.SnapshotRecord) error {
	return nil
}

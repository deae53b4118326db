// Package multi provides a sink that fans out to multiple sinks, used by
// the façade to send every capture both to the remote Transport and to a
// local stderr sink when Config.Debug is set. Grounded on the teacher's
// sinks/multi package.
package multi

import (
	"context"
	"errors"

	"github.com/aivorynet/agent-php/pkg/agent/record"
	"github.com/aivorynet/agent-php/pkg/agent/sink"
)

type multiSink struct {
	sinks []sink.Sink
}

// New creates a sink that writes to every sink in sinks. All sinks are
// called even if some return errors; the errors are joined.
func New(sinks ...sink.Sink) sink.Sink {
	return &multiSink{sinks: sinks}
}

func (s *multiSink) SendException(ctx context.Context, rec record.ExceptionRecord) error {
	var errs []error
	for _, s := range s.sinks {
		if err := s.SendException(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *multiSink) SendSnapshot(ctx context.Context, rec record.SnapshotRecord) error {
	var errs []error
	for _, s := range s.sinks {
		if err := s.SendSnapshot(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

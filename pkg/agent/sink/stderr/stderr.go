// Package stderr provides a sink that logs captured records to stderr in
// human-readable form. Grounded on the teacher's sinks/stderr package,
// adapted from a single flat ErrorEvent line to the spec's exception and
// snapshot record shapes.
package stderr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aivorynet/agent-php/pkg/agent/record"
	"github.com/aivorynet/agent-php/pkg/agent/sink"
)

// Option configures the stderr sink.
type Option func(*config)

type config struct {
	verbose bool
}

// WithVerbose enables full stack-trace output alongside the summary line.
func WithVerbose() Option {
	return func(c *config) {
		c.verbose = true
	}
}

type stderrSink struct {
	verbose bool
}

// New creates a sink that writes human-readable lines to stderr.
func New(opts ...Option) sink.Sink {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrSink{verbose: cfg.verbose}
}

func (s *stderrSink) SendException(ctx context.Context, rec record.ExceptionRecord) error {
	severity := strings.ToUpper(string(rec.Severity))

	var parts []string
	parts = append(parts, fmt.Sprintf("[aivory] %s %s", severity, rec.ExceptionType))
	if rec.ClassName != "" || rec.MethodName != "" {
		parts = append(parts, fmt.Sprintf("in %s::%s", rec.ClassName, rec.MethodName))
	}
	if rec.FilePath != "" {
		parts = append(parts, fmt.Sprintf("(%s:%d)", rec.FilePath, rec.LineNumber))
	}
	fmt.Fprintln(os.Stderr, strings.Join(parts, " "))

	if rec.Message != "" {
		fmt.Fprintf(os.Stderr, "        message: %s\n", rec.Message)
	}

	if s.verbose {
		for i, f := range rec.StackTrace {
			fmt.Fprintf(os.Stderr, "        #%d %s::%s %s:%d\n", i, f.ClassName, f.MethodName, f.FileName, f.LineNumber)
		}
	}
	return nil
}

func (s *stderrSink) SendSnapshot(ctx context.Context, rec record.SnapshotRecord) error {
	fmt.Fprintf(os.Stderr, "[aivory] snapshot breakpoint=%s (%s:%d)\n", rec.BreakpointID, rec.FilePath, rec.LineNumber)
	if s.verbose {
		for i, f := range rec.StackTrace {
			fmt.Fprintf(os.Stderr, "        #%d %s::%s %s:%d\n", i, f.ClassName, f.MethodName, f.FileName, f.LineNumber)
		}
	}
	return nil
}

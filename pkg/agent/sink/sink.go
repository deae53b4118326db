// Package sink defines the destination interface for finished capture
// records and the ambient debug fan-out built on top of it. ExceptionCapture
// (pkg/agent) writes to whatever implements this interface; Transport
// (pkg/agent/transport) satisfies it directly for the remote-collector path,
// while sink/{multi,stderr,noop} let the façade additionally fan captures
// out to the host's own console when Config.Debug is set. Grounded on the
// teacher's aisen.Sink (pkg/aisen/sink.go), generalized from one flat
// ErrorEvent to the spec's two record shapes.
package sink

import (
	"context"

	"github.com/aivorynet/agent-php/pkg/agent/record"
)

// Sink is the minimal destination interface for finished capture records.
type Sink interface {
	SendException(ctx context.Context, rec record.ExceptionRecord) error
	SendSnapshot(ctx context.Context, rec record.SnapshotRecord) error
}

// requestcontext.go gathers environment-provided request metadata when the
// process is serving a request. Grounded on the teacher's context.go
// (WithRunID/RunIDFromContext propagation pattern), generalized from "run
// ID propagation" to "full request metadata propagation", since Go has no
// ambient global request object the way a PHP SAPI does.

package agent

import "context"

type requestContextKey struct{}

// RequestContext carries HTTP request metadata the host wants attached to
// captures made while handling it.
type RequestContext struct {
	Method     string
	Path       string
	Host       string
	UserAgent  string
	RemoteAddr string
	RequestID  string

	// Query, Form and Session are attached as $GET/$POST/$SESSION on
	// exception-as-variables captures (see ExceptionCapture), each only
	// when their size is within the spec's per-container bound.
	Query   map[string]any
	Form    map[string]any
	Session map[string]any
}

// WithRequestContext attaches rc to ctx so RequestContextProbe.Gather can
// retrieve it later in the call chain.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextProbe gathers request metadata attached to a context.Context.
type RequestContextProbe struct{}

// NewRequestContextProbe returns a RequestContextProbe.
func NewRequestContextProbe() *RequestContextProbe {
	return &RequestContextProbe{}
}

// Gather returns the RequestContext attached to ctx as a generic map, or nil
// if the process is not currently serving a request (no context attached).
func (p *RequestContextProbe) Gather(ctx context.Context) map[string]any {
	v := ctx.Value(requestContextKey{})
	rc, ok := v.(RequestContext)
	if !ok {
		return nil
	}

	out := map[string]any{
		"method":      rc.Method,
		"path":        rc.Path,
		"host":        rc.Host,
		"user_agent":  rc.UserAgent,
		"remote_addr": rc.RemoteAddr,
		"request_id":  rc.RequestID,
	}
	return out
}

// GatherTyped is like Gather but returns the typed RequestContext directly,
// for callers (ExceptionCapture) that need access to Query/Form/Session.
func (p *RequestContextProbe) GatherTyped(ctx context.Context) (RequestContext, bool) {
	v := ctx.Value(requestContextKey{})
	rc, ok := v.(RequestContext)
	return rc, ok
}

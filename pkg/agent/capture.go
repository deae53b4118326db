// capture.go builds ExceptionRecords from panics and errors, deduplicates
// them by fingerprint, and hands them to a sink. Grounded on the teacher's
// Recover (recover.go) for the panic-capture shape and defaultCollector.Record
// (collector.go) for the "assign identity, scrub, fingerprint, write" pipeline
// — generalized here from a flat ErrorEvent to the spec's full
// stack/variable/request-context tree, and from "always record" to
// "dedup by fingerprint, clear at 1000".
//
// All capture paths are wrapped in a catch-all that never lets an agent
// failure propagate into the host application; failures are only logged,
// and only in debug mode — matching wrapper.go's safeRecord discipline.

package agent

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"reflect"
	"sync"

	"github.com/aivorynet/agent-php/pkg/agent/record"
	"github.com/aivorynet/agent-php/pkg/agent/sink"
)

const maxFingerprintSetSize = 1000

// maxCaptureStackFrames caps the stack trace attached to a captured
// exception, innermost first.
const maxCaptureStackFrames = 20

var reservedExceptionFieldNames = map[string]struct{}{
	"message": {}, "code": {}, "file": {}, "line": {}, "trace": {}, "previous": {},
}

// Sink is the minimal destination interface ExceptionCapture writes
// finished records to. Transport satisfies this interface, as does any
// pkg/agent/sink implementation.
type Sink = sink.Sink

// CaptureErrorOptions configures a single CaptureError call's severity
// classification.
type CaptureErrorOptions struct {
	WarningClassifier func(error) bool
	NoticeClassifier  func(error) bool
}

// ExceptionCapture builds and deduplicates capture records and hands them
// to a Sink.
type ExceptionCapture struct {
	mu           sync.Mutex
	fingerprints map[string]struct{}

	reflector *VariableReflector
	walker    *StackWalker
	redactor  *Redactor
	probe     *RequestContextProbe

	samplingRate   float64
	runtimeName    string
	runtimeVersion string

	sink   Sink
	logger *log.Logger
	debug  bool

	randFloat func() float64
}

// NewExceptionCapture wires together the reflector, stack walker, redactor
// and request probe, all bounded by cfg.
func NewExceptionCapture(cfg *Config, sink Sink, logger *log.Logger) *ExceptionCapture {
	reflector := NewVariableReflector(cfg.MaxVariableDepth)
	return &ExceptionCapture{
		fingerprints:   make(map[string]struct{}),
		reflector:      reflector,
		walker:         NewStackWalker(reflector, cfg.MaxVariableDepth),
		redactor:       NewRedactor(RedactorConfig{}),
		probe:          NewRequestContextProbe(),
		samplingRate:   cfg.SamplingRate,
		runtimeName:    "go",
		runtimeVersion: goRuntimeVersion(),
		sink:           sink,
		logger:         logger,
		debug:          cfg.Debug,
		randFloat:      rand.Float64,
	}
}

// CaptureException builds a record from a recovered panic or returned
// error, deduplicates it by fingerprint, and hands it to the sink. It is
// never sampled. frames carries the native call stack (may be nil when the
// caller does not have one, e.g. a manual capture). severity is the
// caller's classification: SeverityCritical for a recovered panic,
// SeverityError for a manual error capture.
func (c *ExceptionCapture) CaptureException(ctx context.Context, exceptionType, message string, severity record.Severity, frames []RawFrame, cause error, extra map[string]any) {
	c.safely(func() {
		c.captureBuilt(ctx, exceptionType, message, severity, frames, cause, extra)
	})
}

// CaptureError builds a record from a host-classified error-hook event
// (warning/notice/deprecation/etc). Sampling is applied: the record is
// dropped with probability (1 - samplingRate).
func (c *ExceptionCapture) CaptureError(ctx context.Context, err error, frames []RawFrame, opts CaptureErrorOptions, extra map[string]any) {
	if c.randFloat() > c.samplingRate {
		return
	}
	c.safely(func() {
		severity := classifySeverity(err, opts)
		c.captureBuilt(ctx, "error", err.Error(), severity, frames, err, extra)
	})
}

func classifySeverity(err error, opts CaptureErrorOptions) record.Severity {
	if opts.WarningClassifier != nil && opts.WarningClassifier(err) {
		return record.SeverityWarning
	}
	if opts.NoticeClassifier != nil && opts.NoticeClassifier(err) {
		return record.SeverityInfo
	}
	return record.SeverityError
}

func (c *ExceptionCapture) captureBuilt(ctx context.Context, exceptionType, message string, severity record.Severity, frames []RawFrame, cause error, extra map[string]any) {
	stack := c.walker.Walk(frames, WalkOptions{MaxFrames: maxCaptureStackFrames})

	rec := record.ExceptionRecord{
		ExceptionType:  exceptionType,
		Message:        message,
		Severity:       severity,
		Runtime:        c.runtimeName,
		RuntimeVersion: c.runtimeVersion,
		StackTrace:     stack,
	}
	if len(stack) > 0 {
		rec.ClassName = stack[0].ClassName
		rec.MethodName = stack[0].MethodName
		rec.FilePath = stack[0].FilePath
		rec.LineNumber = stack[0].LineNumber
	}

	fp := Fingerprint(rec)
	if c.seen(fp) {
		return
	}

	if rc, ok := c.probe.GatherTyped(ctx); ok {
		rec.RequestContext = c.redactor.Redact(c.probe.Gather(ctx))
		rec.LocalVariables = c.exceptionAsVariables(message, cause, extra, &rc)
	} else {
		rec.LocalVariables = c.exceptionAsVariables(message, cause, extra, nil)
	}

	if err := c.sink.SendException(ctx, rec); err != nil {
		c.logDebug("send exception failed: %v", err)
	}
}

// seen reports whether fp has already been captured this agent lifetime,
// recording it if not. The set is cleared once it grows past 1000 entries.
func (c *ExceptionCapture) seen(fp string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.fingerprints[fp]; ok {
		return true
	}
	if len(c.fingerprints) > maxFingerprintSetSize {
		c.fingerprints = make(map[string]struct{})
	}
	c.fingerprints[fp] = struct{}{}
	return false
}

// exceptionAsVariables builds the exception-as-variables tree: keyed
// message/code/file/line entries, reflected exported struct fields of
// cause (skipping the reserved names), a recursive previous/cause chain,
// and sanitized $GET/$POST/$SESSION views when rc is non-nil.
func (c *ExceptionCapture) exceptionAsVariables(message string, cause error, extra map[string]any, rc *RequestContext) map[string]record.VariableNode {
	vars := make(map[string]record.VariableNode)
	vars["message"] = c.reflector.ReflectExceptionField("message", message, 0)
	vars["code"] = c.reflector.Reflect("code", 0, 0)
	vars["file"] = c.reflector.Reflect("file", "", 0)
	vars["line"] = c.reflector.Reflect("line", 0, 0)

	if cause != nil {
		c.reflectStructFields(vars, cause)

		if inner := errors.Unwrap(cause); inner != nil {
			prevType := reflect.TypeOf(inner).String()
			innerVars := c.exceptionAsVariables(inner.Error(), inner, nil, nil)
			vars["previous"] = record.VariableNode{
				Name:        "previous",
				Type:        prevType,
				Value:       truncate(inner.Error(), maxScalarValueBytes),
				HasValue:    true,
				Children:    innerVars,
				HasChildren: true,
			}
		}
	}

	for k, v := range extra {
		vars["prop:"+k] = c.reflector.Reflect(k, v, 0)
	}

	if rc != nil {
		if len(rc.Query) > 0 && len(rc.Query) <= 20 {
			vars["$GET"] = c.reflectContainer("$GET", rc.Query)
		}
		if len(rc.Form) > 0 && len(rc.Form) <= 20 {
			vars["$POST"] = c.reflectContainer("$POST", rc.Form)
		}
		if len(rc.Session) > 0 && len(rc.Session) <= 10 {
			vars["$SESSION"] = c.reflectContainer("$SESSION", rc.Session)
		}
	}

	return vars
}

func (c *ExceptionCapture) reflectContainer(name string, m map[string]any) record.VariableNode {
	sanitized := c.redactor.Redact(m)
	children := make(map[string]record.VariableNode, len(sanitized))
	for k, v := range sanitized {
		children[k] = c.reflector.Reflect(k, v, 1)
	}
	return record.VariableNode{
		Name:        name,
		Type:        "array",
		Value:       "Array",
		HasValue:    true,
		Children:    children,
		HasChildren: true,
	}
}

// reflectStructFields walks cause's exported struct fields (Go's analogue
// of "public declared fields"), skipping the reserved names, and attaches
// each remaining value under "prop:<name>".
func (c *ExceptionCapture) reflectStructFields(vars map[string]record.VariableNode, cause error) {
	rv := reflect.ValueOf(cause)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		lowerName := lowerASCII(field.Name)
		if _, reserved := reservedExceptionFieldNames[lowerName]; reserved {
			continue
		}
		vars["prop:"+field.Name] = c.reflector.Reflect(field.Name, rv.Field(i).Interface(), 1)
	}
}

// safely wraps fn in a panic recovery so that agent-internal capture
// failures never propagate into the host application.
func (c *ExceptionCapture) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logDebug("capture pipeline panic recovered: %v", r)
		}
	}()
	fn()
}

func (c *ExceptionCapture) logDebug(format string, args ...any) {
	if c.debug && c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

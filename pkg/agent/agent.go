// agent.go implements the process-wide façade: Init/CaptureException/Recover/
// SetContext/SetUser/Heartbeat/ProcessMessages/Breakpoint/Shutdown and the
// IsInitialized/IsConnected probes. Grounded on the teacher's NewCollector/
// CollectorOption constructor (collector.go), generalized from "build and
// return a Collector value the caller holds" to "build and install a single
// process-wide instance", since the spec's hooks are ambient (installed once,
// addressed by package-level functions) rather than passed around explicitly.
//
// The singleton is guarded by a plain sync.Mutex rather than sync.Once: the
// spec's Shutdown clears the singleton so a later Init can re-arm it, which
// sync.Once cannot do once fired.
package agent

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aivorynet/agent-php/pkg/agent/record"
	"github.com/aivorynet/agent-php/pkg/agent/sink/multi"
	"github.com/aivorynet/agent-php/pkg/agent/sink/stderr"
	"github.com/aivorynet/agent-php/pkg/agent/transport"
)

const agentVersion = "1.0.0"

var (
	singletonMu sync.Mutex
	current     *Agent
)

// User identifies the end user associated with captured exceptions.
type User = record.User

// Agent bundles one configured instance of the capture pipeline and its
// transport. Agent exclusively owns Config, Transport, ExceptionCapture and
// BreakpointRegistry; ExceptionCapture only weakly references Transport
// (through the Sink interface).
type Agent struct {
	cfg *Config

	transport *transport.Transport
	capture   *ExceptionCapture
	registry  *BreakpointRegistry

	mu            sync.Mutex
	customContext map[string]any
	user          User

	reconnectMu     sync.Mutex
	nextReconnectAt time.Time
	authFailLogged  bool

	logger *log.Logger
}

// Init builds and installs the process-wide Agent from opts merged over the
// AIVORY_* environment. A second call is idempotent: it logs a warning and
// returns nil without rebuilding anything.
func Init(opts ...ConfigOption) error {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if current != nil {
		log.Println("agent: Init called while already initialized, ignoring")
		return nil
	}

	cfg, err := ConfigFromEnv(opts...)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "[aivory] ", log.LstdFlags)

	hostname, _ := os.Hostname()
	agentID := newAgentID(hostname)

	a := &Agent{
		cfg:           cfg,
		customContext: make(map[string]any),
		logger:        logger,
	}

	a.transport = transport.New(transport.Config{
		Identity: transport.Identity{
			APIKey:          cfg.APIKey,
			AgentID:         agentID,
			Hostname:        hostname,
			Environment:     cfg.Environment,
			Runtime:         "go",
			RuntimeVersion:  runtime.Version(),
			AgentVersion:    agentVersion,
			ApplicationName: cfg.ApplicationName,
		},
		BackendURL:           cfg.BackendURL,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		Logger:               logger,
		Debug:                cfg.Debug,
		OnSetBreakpoint:      a.handleSetBreakpoint,
		OnRemoveBreakpoint:   a.handleRemoveBreakpoint,
	})

	captureSink := Sink(a.transport)
	if cfg.Debug {
		captureSink = multi.New(a.transport, stderr.New(stderr.WithVerbose()))
	}
	a.capture = NewExceptionCapture(cfg, captureSink, logger)

	if cfg.EnableBreakpoints {
		walker := NewStackWalker(NewVariableReflector(cfg.MaxVariableDepth), cfg.MaxVariableDepth)
		a.registry = NewBreakpointRegistry(walker, a.handleBreakpointHit)
	}

	if connErr := a.transport.Connect(context.Background()); connErr != nil {
		a.logDebug("initial connect failed: %v", wrapTransportError(connErr))
	}

	current = a
	return nil
}

// newAgentID builds <hostname>-<8hexRandom>-<pid>, grounded on the teacher's
// uuid.NewString() use for identifier minting (collector.go's EventID),
// repurposed here to source the agent id's random component.
func newAgentID(hostname string) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	hex8 := raw[:8]
	return fmt.Sprintf("%s-%s-%d", hostname, hex8, os.Getpid())
}

func (a *Agent) handleSetBreakpoint(payload []byte) {
	if a.registry != nil {
		a.registry.HandleCommand("set", payload)
	}
}

func (a *Agent) handleRemoveBreakpoint(payload []byte) {
	if a.registry != nil {
		a.registry.HandleCommand("remove", payload)
	}
}

func (a *Agent) handleBreakpointHit(hit record.BreakpointHit) {
	if err := a.transport.SendBreakpointHit(hit); err != nil {
		a.logDebug("send breakpoint hit failed: %v", wrapTransportError(err))
	}
}

func (a *Agent) logDebug(format string, args ...any) {
	if a.cfg.Debug && a.logger != nil {
		a.logger.Printf(format, args...)
	}
}

// mergedContext returns customContext ∪ extra ∪ {"user": user}, per spec's
// captureException merge order.
func (a *Agent) mergedContext(extra map[string]any) map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]any, len(a.customContext)+len(extra)+1)
	for k, v := range a.customContext {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	if a.user != (User{}) {
		out["user"] = a.user
	}
	return out
}

// CaptureException records err (with optional extra context) through the
// initialized Agent. It is a no-op if the agent is not initialized.
func CaptureException(err error, extraContext map[string]any) error {
	a := get()
	if a == nil {
		return nil
	}
	merged := a.mergedContext(extraContext)
	frames := captureRuntimeFrames(1)
	a.capture.CaptureException(context.Background(), exceptionTypeOf(err), err.Error(), record.SeverityError, frames, err, merged)
	return nil
}

// Recover is the panic-capturing analogue of a language-level uncaught-
// exception hook: call it deferred at a goroutine's entry point. It captures
// any in-flight panic, then re-panics with the same value so the caller's own
// recovery (if any) still observes it. extra is merged the same way
// CaptureException merges its context argument.
func Recover(extra map[string]any) any {
	r := recover()
	if r == nil {
		return nil
	}

	a := get()
	if a != nil {
		merged := a.mergedContext(extra)
		frames := captureRuntimeFrames(1)
		var cause error
		if err, ok := r.(error); ok {
			cause = err
		} else {
			cause = fmt.Errorf("%v", r)
		}
		a.capture.CaptureException(context.Background(), "panic", fmt.Sprint(r), record.SeverityCritical, frames, cause, merged)
	}

	panic(r)
}

func exceptionTypeOf(err error) string {
	t := fmt.Sprintf("%T", err)
	return t
}

// SetContext merges m into the customContext attached to every future
// capture.
func SetContext(m map[string]any) {
	a := get()
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, v := range m {
		a.customContext[k] = v
	}
}

// SetUser replaces the user attached to every future capture.
func SetUser(u User) {
	a := get()
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = u
}

// Heartbeat emits a heartbeat envelope. No-op if not initialized.
func Heartbeat() {
	a := get()
	if a == nil {
		return
	}
	if err := a.transport.SendHeartbeat(); err != nil {
		a.logDebug("heartbeat failed: %v", wrapTransportError(err))
	}
}

// ProcessMessages drives the transport's inbound path and, when disconnected
// and reconnection is still permitted, attempts a reconnect once the
// computed backoff delay has elapsed. No-op if not initialized.
func ProcessMessages() {
	a := get()
	if a == nil {
		return
	}

	if !a.transport.IsConnected() {
		a.maybeReconnect()
		return
	}
	a.transport.ProcessMessages()
}

// maybeReconnect attempts a reconnect once the backoff delay computed by
// ReconnectDelay has elapsed, without blocking the caller: each call either
// finds the delay not yet elapsed (no-op) or attempts the connect and, on
// failure, schedules the next attempt's delay from now.
func (a *Agent) maybeReconnect() {
	if !a.transport.ShouldReconnect() {
		a.logAuthFailureOnce()
		return
	}

	a.reconnectMu.Lock()
	due := a.nextReconnectAt.IsZero() || !time.Now().Before(a.nextReconnectAt)
	a.reconnectMu.Unlock()
	if !due {
		return
	}

	delay := a.transport.NextReconnectDelay()
	if err := a.transport.Connect(context.Background()); err != nil {
		a.logDebug("reconnect failed: %v", wrapTransportError(err))
		a.reconnectMu.Lock()
		a.nextReconnectAt = time.Now().Add(delay)
		a.reconnectMu.Unlock()
	}
}

// logAuthFailureOnce logs a TransportAuth error the first time the
// transport reports its credentials were rejected by the collector.
func (a *Agent) logAuthFailureOnce() {
	if !a.transport.AuthFailed() {
		return
	}
	a.reconnectMu.Lock()
	already := a.authFailLogged
	a.authFailLogged = true
	a.reconnectMu.Unlock()
	if !already {
		a.logDebug("reconnection disabled: %v", &TransportAuth{Code: "auth_error"})
	}
}

// wrapTransportError classifies a Transport.Connect error into the typed
// errors in errors.go, by matching the phase prefix Transport wraps its
// underlying failure with (errors.go cannot live in pkg/agent/transport
// without recreating the agent<->transport import cycle, so classification
// happens here at the boundary instead).
func wrapTransportError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "transport handshake"):
		return &TransportHandshake{Err: err}
	case strings.Contains(msg, "transport write"):
		return &TransportWrite{Err: err}
	case strings.Contains(msg, "serialize"):
		return &Serialize{Err: err}
	default:
		return &TransportConnect{Err: err}
	}
}

// Breakpoint records a hit of the remote-registered breakpoint id, gated by
// BreakpointRegistry: no-op if id was never set by a set_breakpoint command,
// if it has exhausted its maxHits budget, or if the shared 50/s rate limiter
// denies it. No-op if not initialized or breakpoints are disabled.
func Breakpoint(id string) {
	a := get()
	if a == nil || a.registry == nil {
		return
	}
	// Keep captureRuntimeFrames' own frame and this one: Hit's walk drops
	// exactly those two.
	a.registry.Hit(id, captureRuntimeFrames(-1))
}

// Shutdown disconnects the transport and clears the singleton. Cooperative:
// it does not block more than briefly.
func Shutdown() error {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if current == nil {
		return nil
	}
	current.transport.Disconnect()
	current = nil
	return nil
}

// IsInitialized reports whether Init has been called and Shutdown has not
// since cleared it.
func IsInitialized() bool {
	return get() != nil
}

// IsConnected reports whether the transport's socket is currently open.
func IsConnected() bool {
	a := get()
	if a == nil {
		return false
	}
	return a.transport.IsConnected()
}

func get() *Agent {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	return current
}

package agent

import (
	"errors"
	"log"
	"testing"

	"github.com/aivorynet/agent-php/pkg/agent/record"
	"github.com/aivorynet/agent-php/pkg/agent/transport"
)

// unreachableBackendURL refuses connections immediately (nothing listens on
// port 1), so tests that exercise Init's best-effort initial connect do not
// block on a real network dial.
const unreachableBackendURL = "ws://127.0.0.1:1/ws"

func resetSingleton() {
	singletonMu.Lock()
	current = nil
	singletonMu.Unlock()
}

// installTestAgent installs an Agent whose capture pipeline writes to sink,
// bypassing the network entirely, for façade-level tests that only care
// about context merging and delegation.
func installTestAgent(t *testing.T, sink Sink) *Agent {
	t.Helper()
	resetSingleton()

	cfg := &Config{APIKey: "key", MaxVariableDepth: 5, SamplingRate: 1, EnableBreakpoints: true}
	a := &Agent{
		cfg:           cfg,
		customContext: make(map[string]any),
		logger:        log.Default(),
	}
	a.capture = NewExceptionCapture(cfg, sink, a.logger)
	a.transport = transport.New(transport.Config{
		Identity:             transport.Identity{APIKey: "key", AgentID: "agent-1"},
		BackendURL:           unreachableBackendURL,
		MaxReconnectAttempts: 0,
	})
	a.registry = NewBreakpointRegistry(NewStackWalker(NewVariableReflector(5), 5), a.handleBreakpointHit)

	singletonMu.Lock()
	current = a
	singletonMu.Unlock()

	t.Cleanup(func() { Shutdown() })
	return a
}

func TestInit_RequiresAPIKey(t *testing.T) {
	resetSingleton()
	if err := Init(); err == nil {
		t.Fatal("expected error for missing API key")
	}
	if IsInitialized() {
		t.Error("Init should not install a singleton on failure")
	}
}

func TestInit_IdempotentSecondCall(t *testing.T) {
	resetSingleton()
	defer Shutdown()

	if err := Init(WithAPIKey("key"), WithBackendURL(unreachableBackendURL), WithMaxReconnectAttempts(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := get()

	if err := Init(WithAPIKey("other-key"), WithBackendURL(unreachableBackendURL)); err != nil {
		t.Fatalf("unexpected error on second Init: %v", err)
	}
	if get() != first {
		t.Error("second Init call should not replace the installed singleton")
	}
}

func TestShutdown_ClearsSingletonAndAllowsReinit(t *testing.T) {
	resetSingleton()
	if err := Init(WithAPIKey("key"), WithBackendURL(unreachableBackendURL), WithMaxReconnectAttempts(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsInitialized() {
		t.Fatal("expected agent to be initialized")
	}

	if err := Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if IsInitialized() {
		t.Error("expected IsInitialized() to be false after Shutdown")
	}

	if err := Init(WithAPIKey("key"), WithBackendURL(unreachableBackendURL), WithMaxReconnectAttempts(0)); err != nil {
		t.Fatalf("unexpected error re-initializing after Shutdown: %v", err)
	}
	Shutdown()
}

func TestCaptureException_NoopWhenNotInitialized(t *testing.T) {
	resetSingleton()
	if err := CaptureException(errors.New("boom"), nil); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestCaptureException_DeliversToSink(t *testing.T) {
	sink := &recordingSink{}
	installTestAgent(t, sink)

	if err := CaptureException(errors.New("boom"), map[string]any{"k": "v"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.exceptions) != 1 {
		t.Fatalf("expected 1 captured exception, got %d", len(sink.exceptions))
	}
	if sink.exceptions[0].Severity != record.SeverityError {
		t.Errorf("Severity = %q, want error", sink.exceptions[0].Severity)
	}
}

func TestMergedContext_UnionsCustomContextExtraAndUser(t *testing.T) {
	sink := &recordingSink{}
	a := installTestAgent(t, sink)

	SetContext(map[string]any{"env": "test"})
	SetUser(User{ID: "u1"})

	merged := a.mergedContext(map[string]any{"extra": "1"})
	if merged["env"] != "test" || merged["extra"] != "1" {
		t.Errorf("unexpected merged context: %+v", merged)
	}
	u, ok := merged["user"].(User)
	if !ok || u.ID != "u1" {
		t.Errorf("expected user in merged context, got %+v", merged["user"])
	}
}

func TestRecover_RepanicsWithOriginalValue(t *testing.T) {
	sink := &recordingSink{}
	installTestAgent(t, sink)

	var caught any
	func() {
		defer func() { caught = recover() }()
		defer Recover(nil)
		panic("boom")
	}()

	if caught != "boom" {
		t.Errorf("caught = %v, want boom", caught)
	}
	if len(sink.exceptions) != 1 {
		t.Errorf("expected the panic to be captured, got %d exceptions", len(sink.exceptions))
	}
	if sink.exceptions[0].Severity != record.SeverityCritical {
		t.Errorf("Severity = %q, want critical", sink.exceptions[0].Severity)
	}
}

func TestRecover_NoopWithoutAnInFlightPanic(t *testing.T) {
	sink := &recordingSink{}
	installTestAgent(t, sink)

	if got := Recover(nil); got != nil {
		t.Errorf("Recover() = %v, want nil when no panic is in flight", got)
	}
	if len(sink.exceptions) != 0 {
		t.Errorf("expected no capture without a panic, got %d", len(sink.exceptions))
	}
}

func TestBreakpoint_NoopWithoutASetBreakpointCommand(t *testing.T) {
	sink := &recordingSink{}
	a := installTestAgent(t, sink)

	var hits []record.BreakpointHit
	a.registry = NewBreakpointRegistry(NewStackWalker(NewVariableReflector(5), 5), func(h record.BreakpointHit) {
		hits = append(hits, h)
	})

	Breakpoint("checkout.complete")
	if len(hits) != 0 {
		t.Errorf("expected no hit before a set_breakpoint command, got %d", len(hits))
	}
}

func TestBreakpoint_GatedByMaxHitsOnceRegistered(t *testing.T) {
	sink := &recordingSink{}
	a := installTestAgent(t, sink)

	var hits []record.BreakpointHit
	a.registry = NewBreakpointRegistry(NewStackWalker(NewVariableReflector(5), 5), func(h record.BreakpointHit) {
		hits = append(hits, h)
	})
	a.registry.SetBreakpoint("checkout.complete", "/app/checkout.go", 7, "", 2)

	Breakpoint("checkout.complete")
	Breakpoint("checkout.complete")
	Breakpoint("checkout.complete")

	if len(hits) != 2 {
		t.Fatalf("expected exactly 2 hits (maxHits=2), got %d", len(hits))
	}
	if hits[0].HitCount != 1 || hits[1].HitCount != 2 {
		t.Errorf("expected hit_count sequence 1,2, got %d,%d", hits[0].HitCount, hits[1].HitCount)
	}
	if hits[0].BreakpointID != "checkout.complete" {
		t.Errorf("BreakpointID = %q, want checkout.complete", hits[0].BreakpointID)
	}
}

func TestBreakpoint_NoopWhenBreakpointsDisabled(t *testing.T) {
	sink := &recordingSink{}
	a := installTestAgent(t, sink)
	a.registry = nil

	Breakpoint("checkout.complete")
}

func TestBreakpoint_NoopWhenNotInitialized(t *testing.T) {
	resetSingleton()
	Breakpoint("does-not-panic")
}

func TestProcessMessages_NoopWhenNotInitialized(t *testing.T) {
	resetSingleton()
	ProcessMessages()
}

func TestHeartbeat_NoopWhenNotInitialized(t *testing.T) {
	resetSingleton()
	Heartbeat()
}

func TestIsConnected_FalseBeforeConnect(t *testing.T) {
	sink := &recordingSink{}
	installTestAgent(t, sink)
	if IsConnected() {
		t.Error("expected IsConnected() to be false before any Connect call")
	}
}

func TestWrapTransportError_ClassifiesByMessage(t *testing.T) {
	var connErr *TransportConnect
	var handshakeErr *TransportHandshake
	var writeErr *TransportWrite
	var serializeErr *Serialize

	if err := wrapTransportError(errors.New("transport connect: dial failed")); !errors.As(err, &connErr) {
		t.Errorf("expected *TransportConnect, got %T", err)
	}
	if err := wrapTransportError(errors.New("transport handshake: bad status")); !errors.As(err, &handshakeErr) {
		t.Errorf("expected *TransportHandshake, got %T", err)
	}
	if err := wrapTransportError(errors.New("transport write: closed")); !errors.As(err, &writeErr) {
		t.Errorf("expected *TransportWrite, got %T", err)
	}
	if err := wrapTransportError(errors.New("serialize: bad json")); !errors.As(err, &serializeErr) {
		t.Errorf("expected *Serialize, got %T", err)
	}
	if wrapTransportError(nil) != nil {
		t.Error("expected nil in, nil out")
	}
}

func TestNewAgentID_Format(t *testing.T) {
	id := newAgentID("myhost")
	if len(id) == 0 {
		t.Fatal("expected a non-empty agent id")
	}
	first := id[:len("myhost")]
	if first != "myhost" {
		t.Errorf("expected agent id to start with the hostname, got %q", id)
	}
}

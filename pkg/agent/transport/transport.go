// transport.go implements the collector connection: handshake, registration,
// the outbound queue, exponential-backoff reconnection, heartbeat and inbound
// dispatch. Grounded on the overall shape of defaultCollector's lifecycle
// (collector.go: connect once, hand records to a sink, never block the
// caller on I/O), generalized from an in-process sink call to a stateful
// WebSocket connection with its own handshake, registration and reconnect
// state machine, since the spec's transport has no direct analogue in the
// teacher's sink set.
//
// The handshake's HTTP Upgrade exchange is delegated to gorilla/websocket's
// Dialer since that part is ordinary RFC6455 and not spec-constrained; once
// the Dialer returns 101 Switching Protocols, the raw net.Conn is extracted
// via UnderlyingConn and all further I/O goes through this package's own
// EncodeFrame/DecodeFrame so the wire's bit-exact layout is owned here, not
// inside a third-party abstraction.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aivorynet/agent-php/pkg/agent/record"
	"github.com/aivorynet/agent-php/pkg/agent/wire"
)

const dialTimeout = 10 * time.Second
const readChunkSize = 4096

// Identity holds the fields Transport needs to build a register envelope.
type Identity struct {
	APIKey          string
	AgentID         string
	Hostname        string
	Environment     string
	Runtime         string
	RuntimeVersion  string
	AgentVersion    string
	ApplicationName string
}

// Transport owns the socket, outbound queue, event-handler table and
// reconnection state for one collector connection. It implements
// agent.Sink (SendException, SendSnapshot) so the capture pipeline can
// depend on it through that interface without importing this package.
type Transport struct {
	mu sync.Mutex

	identity   Identity
	backendURL string

	maxReconnectAttempts int
	reconnectAttempt     int
	reconnectDisabled    bool

	conn          netConn
	connected     bool
	authenticated bool

	readBuf []byte

	queue outboundQueue

	onSetBreakpoint    func(payload []byte)
	onRemoveBreakpoint func(payload []byte)

	logger *log.Logger
	debug  bool

	now func() time.Time
}

// netConn is the subset of net.Conn Transport needs; narrowed so tests can
// substitute an in-memory pipe.
type netConn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
	SetReadDeadline(t time.Time) error
}

// Config configures a new Transport.
type Config struct {
	Identity             Identity
	BackendURL           string
	MaxReconnectAttempts int
	Logger               *log.Logger
	Debug                bool
	OnSetBreakpoint      func(payload []byte)
	OnRemoveBreakpoint   func(payload []byte)
}

// New returns a disconnected Transport. Call Connect to open the socket.
func New(cfg Config) *Transport {
	return &Transport{
		identity:             cfg.Identity,
		backendURL:           cfg.BackendURL,
		maxReconnectAttempts: cfg.MaxReconnectAttempts,
		onSetBreakpoint:      cfg.OnSetBreakpoint,
		onRemoveBreakpoint:   cfg.OnRemoveBreakpoint,
		logger:               cfg.Logger,
		debug:                cfg.Debug,
		now:                  time.Now,
	}
}

// Connect performs the WebSocket upgrade handshake, then sends a register
// envelope. Registration completes asynchronously: the caller must keep
// calling ProcessMessages until IsAuthenticated reports true.
func (t *Transport) Connect(ctx context.Context) error {
	u, err := url.Parse(t.backendURL)
	if err != nil {
		return fmt.Errorf("transport connect: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+t.identity.APIKey)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	wsConn, resp, err := dialer.DialContext(dialCtx, u.String(), header)
	if err != nil {
		return fmt.Errorf("transport handshake: %w", err)
	}
	if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
		wsConn.Close()
		return fmt.Errorf("transport handshake: unexpected status %d", resp.StatusCode)
	}

	conn := wsConn.UnderlyingConn()

	t.mu.Lock()
	t.conn = conn
	t.connected = true
	t.authenticated = false
	t.reconnectAttempt = 0
	t.readBuf = nil
	t.mu.Unlock()

	return t.sendRegister()
}

func (t *Transport) sendRegister() error {
	body, err := json.Marshal(wire.RegisterPayload{
		APIKey:          t.identity.APIKey,
		AgentID:         t.identity.AgentID,
		Hostname:        t.identity.Hostname,
		Environment:     t.identity.Environment,
		Runtime:         t.identity.Runtime,
		RuntimeVersion:  t.identity.RuntimeVersion,
		AgentVersion:    t.identity.AgentVersion,
		ApplicationName: t.identity.ApplicationName,
	})
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	return t.writeRaw(wire.TypeRegister, body)
}

// writeEnvelope wraps typ/payload into an envelope and either writes it
// immediately (if authenticated) or queues it.
func (t *Transport) writeEnvelope(typ string, payload []byte) error {
	env, err := json.Marshal(wire.Envelope{
		Type:      typ,
		Payload:   payload,
		Timestamp: t.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	t.mu.Lock()
	authenticated := t.authenticated
	t.mu.Unlock()

	if !authenticated {
		t.queue.push(env)
		return nil
	}
	return t.writeFrame(env)
}

// writeRaw is used for the register envelope itself, which is sent before
// authentication is established and must bypass the queue.
func (t *Transport) writeRaw(typ string, payload []byte) error {
	env, err := json.Marshal(wire.Envelope{
		Type:      typ,
		Payload:   payload,
		Timestamp: t.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	return t.writeFrame(env)
}

func (t *Transport) writeFrame(payload []byte) error {
	frame, err := EncodeFrame(payload)
	if err != nil {
		return fmt.Errorf("transport write: %w", err)
	}

	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("transport write: not connected")
	}

	if _, err := conn.Write(frame); err != nil {
		t.markDisconnected()
		return fmt.Errorf("transport write: %w", err)
	}
	return nil
}

// SendException implements agent.Sink.
func (t *Transport) SendException(ctx context.Context, rec record.ExceptionRecord) error {
	body, err := buildExceptionPayload(rec, t.identityAgentID(), t.identity.Environment, t.identity.Hostname)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	return t.writeEnvelope(wire.TypeException, body)
}

// SendSnapshot implements agent.Sink.
func (t *Transport) SendSnapshot(ctx context.Context, rec record.SnapshotRecord) error {
	body, err := buildSnapshotPayload(rec, t.identityAgentID())
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	return t.writeEnvelope(wire.TypeSnapshot, body)
}

// SendBreakpointHit encodes and sends a breakpoint_hit envelope.
func (t *Transport) SendBreakpointHit(hit record.BreakpointHit) error {
	body, err := buildBreakpointHitPayload(hit, t.identityAgentID())
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	return t.writeEnvelope(wire.TypeBreakpointHit, body)
}

// SendHeartbeat emits {timestamp, agent_id, metrics:{memory_mb, peak_memory_mb}}.
func (t *Transport) SendHeartbeat() error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	memMB := float64(mem.Alloc) / (1024 * 1024)
	peakMB := float64(mem.Sys) / (1024 * 1024)

	body, err := json.Marshal(wire.HeartbeatPayload{
		Timestamp: t.now().UnixMilli(),
		AgentID:   t.identityAgentID(),
		Metrics: wire.HeartbeatMetrics{
			MemoryMB:     memMB,
			PeakMemoryMB: peakMB,
		},
	})
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	return t.writeEnvelope(wire.TypeHeartbeat, body)
}

func (t *Transport) identityAgentID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identity.AgentID
}

// ProcessMessages performs one non-blocking read attempt of up to
// readChunkSize bytes and decodes and dispatches at most one frame. Bytes
// not yet decoded (a partial frame or further frames) are retained in the
// internal buffer for a subsequent call.
func (t *Transport) ProcessMessages() {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return
	}

	conn.SetReadDeadline(t.now().Add(time.Millisecond))
	chunk := make([]byte, readChunkSize)
	n, err := conn.Read(chunk)
	if n > 0 {
		t.mu.Lock()
		t.readBuf = append(t.readBuf, chunk[:n]...)
		buf := t.readBuf
		t.mu.Unlock()

		if decoded, derr := DecodeFrame(buf); derr == nil {
			buf = buf[decoded.Consumed:]
			t.dispatch(decoded.Payload)
		}

		t.mu.Lock()
		t.readBuf = buf
		t.mu.Unlock()
	}
	if err != nil && !isTimeout(err) {
		t.markDisconnected()
	}
}

func isTimeout(err error) bool {
	type timeoutErr interface{ Timeout() bool }
	te, ok := err.(timeoutErr)
	return ok && te.Timeout()
}

func (t *Transport) dispatch(payload []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		t.logDebug("transport: malformed envelope: %v", err)
		return
	}

	switch env.Type {
	case wire.TypeRegistered:
		t.handleRegistered(env.Payload)
	case wire.TypeError:
		t.handleError(env.Payload)
	case wire.TypeSetBreakpoint:
		if t.onSetBreakpoint != nil {
			t.onSetBreakpoint(env.Payload)
		}
	case wire.TypeRemoveBreakpoint:
		if t.onRemoveBreakpoint != nil {
			t.onRemoveBreakpoint(env.Payload)
		}
	default:
		// unknown type: ignore
	}
}

func (t *Transport) handleRegistered(payload []byte) {
	var body struct {
		AgentID string `json:"agent_id"`
	}
	json.Unmarshal(payload, &body)

	t.mu.Lock()
	if body.AgentID != "" {
		t.identity.AgentID = body.AgentID
	}
	t.authenticated = true
	pending := t.queue.drain()
	t.mu.Unlock()

	for _, env := range pending {
		if err := t.writeFrame(env); err != nil {
			t.logDebug("transport: flush failed: %v", err)
			return
		}
	}
}

func (t *Transport) handleError(payload []byte) {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	json.Unmarshal(payload, &body)
	t.logDebug("transport: collector error %s: %s", body.Code, body.Message)

	if body.Code == "auth_error" || body.Code == "invalid_api_key" {
		t.mu.Lock()
		t.maxReconnectAttempts = 0
		t.reconnectDisabled = true
		t.mu.Unlock()
		t.disconnect()
	}
}

// markDisconnected marks the socket dead without closing it twice; a later
// Connect call reopens it.
func (t *Transport) markDisconnected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.Close()
	}
	t.conn = nil
	t.connected = false
	t.authenticated = false
}

// disconnect closes the socket and marks the transport down, latched or not.
func (t *Transport) disconnect() {
	t.markDisconnected()
}

// Disconnect closes the socket, discarding any in-flight frame. Cooperative:
// it does not block.
func (t *Transport) Disconnect() {
	t.disconnect()
}

// ShouldReconnect reports whether another reconnect attempt is permitted.
func (t *Transport) ShouldReconnect() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reconnectDisabled {
		return false
	}
	return t.reconnectAttempt < t.maxReconnectAttempts
}

// NextReconnectDelay returns the delay before the next reconnect attempt and
// advances the internal attempt counter.
func (t *Transport) NextReconnectDelay() time.Duration {
	t.mu.Lock()
	t.reconnectAttempt++
	attempt := t.reconnectAttempt
	t.mu.Unlock()
	return ReconnectDelay(attempt)
}

// IsConnected reports whether the socket is open (not necessarily
// authenticated).
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// IsAuthenticated reports whether registration completed.
func (t *Transport) IsAuthenticated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.authenticated
}

// AuthFailed reports whether the collector rejected this agent's
// credentials, permanently latching reconnection off.
func (t *Transport) AuthFailed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reconnectDisabled
}

// QueueLength reports the number of envelopes currently queued for delivery.
func (t *Transport) QueueLength() int {
	return t.queue.len()
}

func (t *Transport) logDebug(format string, args ...any) {
	if t.debug && t.logger != nil {
		t.logger.Printf(format, args...)
	}
}

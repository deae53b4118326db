// errors.go defines the error kinds the core recognizes, per the error
// handling design: internal failures never propagate past the capture/
// transport boundary, but are typed so a host that does inspect them (via
// debug logging or errors.As) can tell them apart.

package agent

import "fmt"

// ConfigInvalid indicates a Config failed validation.
type ConfigInvalid struct {
	Reason string
}

func (e *ConfigInvalid) Error() string {
	return fmt.Sprintf("agent: invalid config: %s", e.Reason)
}

// TransportConnect indicates the initial socket connect failed.
type TransportConnect struct {
	Err error
}

func (e *TransportConnect) Error() string { return fmt.Sprintf("agent: transport connect: %v", e.Err) }
func (e *TransportConnect) Unwrap() error { return e.Err }

// TransportHandshake indicates the upgrade handshake did not complete.
type TransportHandshake struct {
	Err error
}

func (e *TransportHandshake) Error() string {
	return fmt.Sprintf("agent: transport handshake: %v", e.Err)
}
func (e *TransportHandshake) Unwrap() error { return e.Err }

// TransportAuth indicates the collector rejected the agent's credentials.
// This is terminal: reconnection is latched off once this occurs.
type TransportAuth struct {
	Code string
}

func (e *TransportAuth) Error() string { return fmt.Sprintf("agent: transport auth: %s", e.Code) }

// TransportWrite indicates a frame write failed.
type TransportWrite struct {
	Err error
}

func (e *TransportWrite) Error() string { return fmt.Sprintf("agent: transport write: %v", e.Err) }
func (e *TransportWrite) Unwrap() error { return e.Err }

// Serialize indicates an envelope could not be encoded to JSON.
// The policy on this error is to drop the single message and continue.
type Serialize struct {
	Err error
}

func (e *Serialize) Error() string { return fmt.Sprintf("agent: serialize: %v", e.Err) }
func (e *Serialize) Unwrap() error { return e.Err }


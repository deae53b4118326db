// queue.go implements the bounded outbound FIFO used while the transport is
// not yet authenticated. Grounded on the teacher's async sink
// (sinks/async/async.go), which bounds a channel-backed queue and drops the
// oldest entry on overflow — generalized here from a channel (the async
// sink's concern is decoupling Write latency from a slow inner sink) to a
// plain mutex-guarded slice, since the spec requires FIFO draining driven
// by the transport's own reconnect/registration logic rather than a
// free-running background goroutine.
package transport

import "sync"

const maxQueueLength = 100

// outboundQueue is a FIFO of serialized envelopes, bounded to
// maxQueueLength; the oldest entry is dropped on overflow.
type outboundQueue struct {
	mu   sync.Mutex
	envs [][]byte
}

func (q *outboundQueue) push(envelope []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.envs) >= maxQueueLength {
		q.envs = q.envs[1:]
	}
	q.envs = append(q.envs, envelope)
}

// drain removes and returns all queued envelopes, in FIFO order.
func (q *outboundQueue) drain() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.envs
	q.envs = nil
	return out
}

func (q *outboundQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.envs)
}

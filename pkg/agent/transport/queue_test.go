package transport

import "testing"

func TestOutboundQueue_FIFOOrder(t *testing.T) {
	var q outboundQueue
	q.push([]byte("a"))
	q.push([]byte("b"))
	q.push([]byte("c"))

	got := q.drain()
	if len(got) != 3 || string(got[0]) != "a" || string(got[1]) != "b" || string(got[2]) != "c" {
		t.Errorf("unexpected drain order: %v", got)
	}
}

func TestOutboundQueue_DrainEmptiesQueue(t *testing.T) {
	var q outboundQueue
	q.push([]byte("a"))
	q.drain()
	if q.len() != 0 {
		t.Errorf("len() = %d after drain, want 0", q.len())
	}
}

func TestOutboundQueue_DropsOldestOnOverflow(t *testing.T) {
	var q outboundQueue
	for i := 0; i < maxQueueLength+10; i++ {
		q.push([]byte{byte(i)})
	}
	if q.len() != maxQueueLength {
		t.Errorf("len() = %d, want %d", q.len(), maxQueueLength)
	}
	got := q.drain()
	if got[0][0] != byte(10) {
		t.Errorf("expected oldest entries dropped, first entry = %d, want 10", got[0][0])
	}
}

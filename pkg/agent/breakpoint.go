// breakpoint.go implements the remote-breakpoint registry and its
// 1-second-window rate limiter. Grounded on the teacher's
// inMemoryEnrichmentStore (adapters/agentssdk/enrichment_store.go) for the
// mutex-guarded map-of-structs shape, generalized from per-run enrichment
// data to per-id breakpoint entries with a hit budget.
//
// Inbound set/remove commands carry an untyped, collector-defined payload
// that tolerates alternate key names (file/file_path, line/line_number);
// gjson's fallback-path lookups pull whichever key is present, matching the
// teacher's transitive tidwall/gjson dependency.

package agent

import (
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/aivorynet/agent-php/pkg/agent/record"
)

const (
	breakpointDefaultMaxHits = 1
	breakpointHardMaxHits    = 50
	breakpointCapPerSecond   = 50
)

// rateLimiter caps breakpoint captures per registry with a fixed 1-second
// window: a window opens on the first call at least one second after the
// previous window opened, and at most cap calls are allowed within it.
type rateLimiter struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
	cap         int
	now         func() time.Time
}

func newRateLimiter(cap int) *rateLimiter {
	return &rateLimiter{cap: cap, now: time.Now}
}

// allow reports whether one more capture may proceed in the current window,
// consuming a slot if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.windowStart.IsZero() || now.Sub(r.windowStart) >= time.Second {
		r.windowStart = now
		r.count = 0
	}
	if r.count >= r.cap {
		return false
	}
	r.count++
	return true
}

// BreakpointRegistry maps breakpoint id to BreakpointEntry, rate-limits hits
// and dispatches inbound set/remove commands.
type BreakpointRegistry struct {
	mu      sync.Mutex
	entries map[string]*record.BreakpointEntry
	limiter *rateLimiter
	walker  *StackWalker

	// onHit is invoked (outside the lock) for each successful hit.
	onHit func(record.BreakpointHit)
	now   func() time.Time
}

// NewBreakpointRegistry returns an empty registry. walker is used to build
// the stack/argument snapshot for each hit; onHit receives successful hits.
func NewBreakpointRegistry(walker *StackWalker, onHit func(record.BreakpointHit)) *BreakpointRegistry {
	return &BreakpointRegistry{
		entries: make(map[string]*record.BreakpointEntry),
		limiter: newRateLimiter(breakpointCapPerSecond),
		walker:  walker,
		onHit:   onHit,
		now:     time.Now,
	}
}

// SetBreakpoint replaces or creates the entry for id.
func (r *BreakpointRegistry) SetBreakpoint(id, filePath string, line int, condition string, maxHits int) {
	if maxHits < 1 {
		maxHits = breakpointDefaultMaxHits
	}
	if maxHits > breakpointHardMaxHits {
		maxHits = breakpointHardMaxHits
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &record.BreakpointEntry{
		ID:        id,
		FilePath:  filePath,
		Line:      line,
		Condition: condition,
		MaxHits:   maxHits,
		CreatedAt: r.now().UnixMilli(),
	}
}

// RemoveBreakpoint erases the entry for id, if any.
func (r *BreakpointRegistry) RemoveBreakpoint(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Entry returns a copy of the entry for id, if present.
func (r *BreakpointRegistry) Entry(id string) (record.BreakpointEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return record.BreakpointEntry{}, false
	}
	return *e, true
}

// Hit records a hit of breakpoint id. frames is the raw call stack taken at
// the Breakpoint entry point: at most its first ten frames are kept, and the
// walk then drops the first two (the stack-capture helper's own frame and
// the Breakpoint entry point). Arguments are reflected only for frames that
// carry them; the hit's LocalVariables are not filled in. It is a no-op if
// the breakpoint does not exist, has exhausted its hit budget, or the rate
// limiter denies it.
func (r *BreakpointRegistry) Hit(id string, frames []RawFrame) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	if entry.HitCount >= entry.MaxHits {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if !r.limiter.allow() {
		return
	}

	r.mu.Lock()
	// Re-check under lock: another goroutine may have hit this id between
	// the optimistic check above and the rate-limiter call.
	entry, ok = r.entries[id]
	if !ok || entry.HitCount >= entry.MaxHits {
		r.mu.Unlock()
		return
	}
	entry.HitCount++
	hitCount := entry.HitCount
	filePath := entry.FilePath
	line := entry.Line
	r.mu.Unlock()

	if len(frames) > 10 {
		frames = frames[:10]
	}
	var stack []record.StackFrame
	if r.walker != nil {
		stack = r.walker.Walk(frames, WalkOptions{SkipFrames: 2})
	}

	hit := record.BreakpointHit{
		BreakpointID: id,
		CapturedAtMs: r.now().UnixMilli(),
		FilePath:     filePath,
		LineNumber:   line,
		StackTrace:   stack,
		HitCount:     hitCount,
	}
	if r.onHit != nil {
		r.onHit(hit)
	}
}

// HandleCommand dispatches an inbound "set" or "remove" control command.
// payload is the raw JSON payload object; alternate key names (file/
// file_path, line/line_number) are tolerated.
func (r *BreakpointRegistry) HandleCommand(command string, payload []byte) {
	switch command {
	case "set":
		id := gjson.GetBytes(payload, "id").String()
		if id == "" {
			return
		}
		filePath := firstNonEmpty(
			gjson.GetBytes(payload, "file_path").String(),
			gjson.GetBytes(payload, "file").String(),
		)
		line := firstNonZeroInt(
			gjson.GetBytes(payload, "line_number"),
			gjson.GetBytes(payload, "line"),
		)
		condition := gjson.GetBytes(payload, "condition").String()
		maxHits := int(gjson.GetBytes(payload, "max_hits").Int())
		r.SetBreakpoint(id, filePath, line, condition, maxHits)

	case "remove":
		id := gjson.GetBytes(payload, "id").String()
		if id == "" {
			return
		}
		r.RemoveBreakpoint(id)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZeroInt(results ...gjson.Result) int {
	for _, r := range results {
		if r.Exists() {
			return int(r.Int())
		}
	}
	return 0
}

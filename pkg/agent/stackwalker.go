// stackwalker.go converts an ordered list of raw runtime frames into
// record.StackFrame trees, optionally reflecting each frame's arguments. Grounded
// on the teacher's normalizeStackTrace (fingerprint.go) for "walk an ordered
// frame list, innermost first" and recover.go's use of runtime/debug for
// native stack capture.

package agent

import (
	"path/filepath"
	"strconv"

	"github.com/aivorynet/agent-php/pkg/agent/record"
)

// RawArg is a single positional or named argument captured alongside a
// stack frame.
type RawArg struct {
	Name  string
	Value any
}

// RawFrame is the runtime's raw representation of one call-stack entry,
// innermost first.
type RawFrame struct {
	ClassName  string
	MethodName string
	FilePath   string
	Line       int
	Column     int
	Args       []RawArg
}

// WalkOptions configures a single StackWalker.Walk call.
type WalkOptions struct {
	// SkipFrames drops this many leading frames (e.g. the reflector's own
	// frame and the hit() entry point, for breakpoint walks).
	SkipFrames int
	// MaxFrames caps the number of frames returned, innermost first. Zero
	// means unbounded.
	MaxFrames int
}

// StackWalker converts RawFrame slices into record.StackFrame slices, reflecting
// arguments through a VariableReflector when the configured max depth
// permits it.
type StackWalker struct {
	reflector *VariableReflector
	maxDepth  int
}

// NewStackWalker returns a StackWalker that reflects arguments through
// reflector, bounded by maxDepth (reflection of arguments is skipped
// entirely when maxDepth is 0).
func NewStackWalker(reflector *VariableReflector, maxDepth int) *StackWalker {
	return &StackWalker{reflector: reflector, maxDepth: maxDepth}
}

// Walk converts frames (innermost first) into StackFrames in the same
// order, applying opts.SkipFrames.
func (w *StackWalker) Walk(frames []RawFrame, opts WalkOptions) []record.StackFrame {
	if opts.SkipFrames > 0 && opts.SkipFrames < len(frames) {
		frames = frames[opts.SkipFrames:]
	} else if opts.SkipFrames >= len(frames) {
		frames = nil
	}
	if opts.MaxFrames > 0 && len(frames) > opts.MaxFrames {
		frames = frames[:opts.MaxFrames]
	}

	out := make([]record.StackFrame, 0, len(frames))
	for _, f := range frames {
		out = append(out, w.walkOne(f))
	}
	return out
}

func (w *StackWalker) walkOne(f RawFrame) record.StackFrame {
	sf := record.StackFrame{
		ClassName:    f.ClassName,
		MethodName:   f.MethodName,
		FilePath:     f.FilePath,
		LineNumber:   f.Line,
		ColumnNumber: f.Column,
		IsNative:     isNativeLocation(f.FilePath),
	}
	if sf.FilePath != "" {
		sf.FileName = filepath.Base(sf.FilePath)
	}

	if len(f.Args) > 0 && w.maxDepth > 0 && w.reflector != nil {
		vars := make(map[string]record.VariableNode, len(f.Args))
		for i, a := range f.Args {
			key := a.Name
			if key == "" {
				key = argPositionalName(i)
			}
			vars[key] = w.reflector.Reflect(key, a.Value, 0)
		}
		sf.LocalVariables = vars
	}

	return sf
}

func argPositionalName(i int) string {
	return "arg" + strconv.Itoa(i)
}

// isNativeLocation reports whether filePath should be treated as a
// synthetic/internal location. Only a missing (empty) path counts; frames
// inside the agent's own package tree are not marked native.
func isNativeLocation(filePath string) bool {
	if filePath == "" {
		return true
	}
	return false
}

// runtimeframes.go builds RawFrame slices from the Go runtime's call stack,
// for the façade's Recover, CaptureException and Breakpoint. Grounded on the
// teacher's use of runtime/debug.Stack() in recover.go/builders.go,
// generalized from "opaque stack string" to structured RawFrames so
// StackWalker can produce the spec's StackFrame tree instead of a single
// string blob.

package agent

import "runtime"

const maxNativeFrames = 64

// captureRuntimeFrames walks the current goroutine's call stack, skipping
// skip leading frames (this function and its immediate caller, by
// convention), and returns up to maxNativeFrames RawFrames innermost first.
func captureRuntimeFrames(skip int) []RawFrame {
	pcs := make([]uintptr, maxNativeFrames)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}

	framesIter := runtime.CallersFrames(pcs[:n])
	out := make([]RawFrame, 0, n)
	for {
		f, more := framesIter.Next()
		out = append(out, RawFrame{
			ClassName:  "",
			MethodName: f.Function,
			FilePath:   f.File,
			Line:       f.Line,
		})
		if !more {
			break
		}
	}
	return out
}

func goRuntimeVersion() string {
	return runtime.Version()
}

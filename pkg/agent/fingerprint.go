// fingerprint.go generates a stable identity hash for an exception from its
// type and the top of its stack. Grounded directly on the teacher's
// Fingerprint(event ErrorEvent) string (fingerprint.go), generalized from
// (error_type, operation, agent_name, tool_name) + normalized stack lines to
// this spec's (exceptionType, top-three class::method pairs).

package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/aivorynet/agent-php/pkg/agent/record"
)

// Fingerprint derives a stable dedup key for rec from its exception type
// and the top three stack frames. Missing class/method names contribute
// empty strings, exactly as the spec requires; a frame absent from a short
// trace is hashed like a frame with no class or method.
func Fingerprint(rec record.ExceptionRecord) string {
	parts := make([]string, 0, 4)
	parts = append(parts, rec.ExceptionType)

	for i := 0; i < 3; i++ {
		var f record.StackFrame
		if i < len(rec.StackTrace) {
			f = rec.StackTrace[i]
		}
		parts = append(parts, f.ClassName+"::"+f.MethodName)
	}

	input := strings.Join(parts, ":")
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

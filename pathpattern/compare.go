package pathpattern

import "golang.org/x/sys/cpu"

// Literal-segment comparison capability detection, generalized from the
// teacher's core/optimize/simd.go (which gates a path-comparison fast path
// on AVX2/NEON availability). The teacher's gated branches call into
// assembly stubs (core/optimize/simd_amd64.go, simd_arm64.go) that have no
// corresponding .s file anywhere in the retrieved corpus; rather than
// fabricate uninspected assembly, both branches below call the same safe Go
// comparison. The detection is kept because it is the structural decision
// this package is grounded on — see SPEC_FULL.md's Open Question
// resolution for "CPU-feature dispatch without fabricated assembly".
var (
	useAVX2 bool
	useNEON bool
)

func init() {
	if cpu.ARM64.HasASIMD {
		useNEON = true
	}
	if cpu.X86.HasAVX2 {
		useAVX2 = true
	}
}

// literalEqual compares a request path segment against a pattern's literal
// segment. Short segments (the overwhelming majority of real route
// literals) go straight to a plain comparison; the AVX2/NEON-gated paths
// exist so a future vectorized implementation has a single call site to
// slot into, per the teacher's core/optimize/simd.go structure.
func literalEqual(requestSegment, patternLiteral string) bool {
	if len(requestSegment) != len(patternLiteral) {
		return false
	}
	if len(requestSegment) < 16 {
		return requestSegment == patternLiteral
	}
	if useNEON || useAVX2 {
		return compareBytes(requestSegment, patternLiteral)
	}
	return requestSegment == patternLiteral
}

func compareBytes(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Package logdiff renders a human-readable diff between the text
// representation of a build log or deps log before and after recompaction,
// for `ninja -t recompact -v` and the recompaction tests to explain exactly
// which entries a recompaction dropped or rewrote.
package logdiff

import "github.com/sergi/go-diff/diffmatchpatch"

// Render returns a human-readable diff between before and after, each a
// newline-joined snapshot of log entries (one entry per line, order
// significant), matching the pattern used by kati's recompaction/golden
// output comparison.
func Render(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, true)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}

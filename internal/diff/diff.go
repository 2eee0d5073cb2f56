// Package diff classifies byte buffers as binary or text and produces
// line-level unified diffs between two text versions.
package diff

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// SniffLen is how many leading bytes are inspected for a NUL byte when
// classifying content. A text file whose first SniffLen bytes contain no NUL
// but which has one later is misclassified as text; this is a documented
// limitation of the heuristic, not silently corrected.
const SniffLen = 512

// contextLines is the number of unchanged lines shown around each hunk.
const contextLines = 3

// Result is the outcome of comparing two buffers.
type Result struct {
	Binary  bool
	Equal   bool
	Unified string // empty for binary or identical inputs
	Added   int    // lines added (text only)
	Removed int    // lines removed (text only)

	// Size comparison, populated for binary inputs.
	SourceSize int64
	TargetSize int64
}

// IsBinary reports whether buf looks like binary content: a NUL byte within
// the first SniffLen bytes.
func IsBinary(buf []byte) bool {
	n := len(buf)
	if n > SniffLen {
		n = SniffLen
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

// Compare diffs source against target. If either buffer sniffs as binary the
// result carries only sizes; otherwise a unified diff with added/removed line
// counts is produced. Identical inputs yield an empty diff.
func Compare(sourceName, targetName string, source, target []byte) (*Result, error) {
	res := &Result{
		SourceSize: int64(len(source)),
		TargetSize: int64(len(target)),
		Equal:      bytes.Equal(source, target),
	}

	if IsBinary(source) || IsBinary(target) {
		res.Binary = true
		return res, nil
	}

	if res.Equal {
		return res, nil
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(source)),
		B:        difflib.SplitLines(string(target)),
		FromFile: sourceName,
		ToFile:   targetName,
		Context:  contextLines,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}
	res.Unified = text
	res.Added, res.Removed = countChanges(text)
	return res, nil
}

// countChanges tallies added and removed lines in a unified diff, skipping
// the file headers.
func countChanges(unified string) (added, removed int) {
	for _, line := range strings.Split(unified, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}

// Summary renders a short human-readable description of the result: identical,
// binary size delta, or line change counts.
func (r *Result) Summary() string {
	if r.Equal {
		return "identical"
	}
	if r.Binary {
		delta := r.TargetSize - r.SourceSize
		switch {
		case delta > 0:
			return fmt.Sprintf("binary content differs: target is %d bytes larger", delta)
		case delta < 0:
			return fmt.Sprintf("binary content differs: target is %d bytes smaller", -delta)
		default:
			return "binary content differs (same size)"
		}
	}
	return fmt.Sprintf("+%d -%d lines", r.Added, r.Removed)
}

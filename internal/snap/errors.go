package snap

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for conditions callers are expected to branch on.
// Plain I/O failures are wrapped with context and propagated unchanged.
var (
	// ErrNotFound means no record matches the given path, fingerprint, or id.
	ErrNotFound = errors.New("snapshot not found")

	// ErrPathInvalid means the target is neither a regular file nor a
	// directory, does not exist, or cannot be canonicalized.
	ErrPathInvalid = errors.New("invalid path")

	// ErrCorruptBlob means a stored blob failed to decompress. This signals
	// storage damage and is never masked as not-found.
	ErrCorruptBlob = errors.New("corrupt blob")

	// ErrConfig means the data or storage directory cannot be determined
	// or created.
	ErrConfig = errors.New("configuration error")

	// ErrTooLarge means a snapshot exceeds the inline view size limit.
	// The content is still intact and can be exported instead.
	ErrTooLarge = errors.New("snapshot too large to view")
)

// AmbiguousSelectorError is returned when a fingerprint prefix matches more
// than one distinct fingerprint. It carries the candidates so a collaborator
// can present them instead of silently picking one.
type AmbiguousSelectorError struct {
	Prefix     string
	Candidates []string // distinct full fingerprints matching Prefix
}

func (e *AmbiguousSelectorError) Error() string {
	return fmt.Sprintf("fingerprint prefix %q is ambiguous (%d matches): %s",
		e.Prefix, len(e.Candidates), strings.Join(shorten(e.Candidates), ", "))
}

func shorten(fps []string) []string {
	out := make([]string, len(fps))
	for i, fp := range fps {
		if len(fp) > 16 {
			fp = fp[:16]
		}
		out[i] = fp
	}
	return out
}

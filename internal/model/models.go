package model

// SnapshotRecord is one row in the metadata index: a single capture event
// for a path. Records are immutable once written.
type SnapshotRecord struct {
	ID          int64  // assigned by the index, monotonic
	Path        string // absolute, canonicalized path of the captured file
	BlobPath    string // on-disk locator of the stored blob, derived from Fingerprint
	Fingerprint string // lowercase-hex SHA-256 of the original (uncompressed) content
	CapturedAt  string // UTC RFC3339; lexically sortable
	Size        int64  // original uncompressed byte length
}

// Exclusion is a rule consulted during directory walks. A path matching any
// rule is skipped entirely.
type Exclusion struct {
	ID      int64
	Pattern string
	Kind    string // "directory", "extension", or "file"
}

// Exclusion kinds.
const (
	ExcludeDirectory = "directory"
	ExcludeExtension = "extension"
	ExcludeFile      = "file"
)

// ValidExclusionKind reports whether kind is one of the supported rule kinds.
func ValidExclusionKind(kind string) bool {
	switch kind {
	case ExcludeDirectory, ExcludeExtension, ExcludeFile:
		return true
	}
	return false
}

package snap

import (
	"io"

	"snapkeep/internal/model"
)

// Index provides access to the metadata index: one row per capture event,
// plus the exclusion rule table. Implementations return nil (not an error)
// when a point query matches nothing.
type Index interface {
	// InsertIfNew records a capture event unless the newest record for
	// rec.Path already carries rec.Fingerprint, in which case it is a no-op.
	// Returns true if a row was inserted.
	InsertIfNew(rec *model.SnapshotRecord) (bool, error)

	// SnapshotsForPath returns all records for an exact path, newest first.
	SnapshotsForPath(path string) ([]*model.SnapshotRecord, error)

	// SnapshotByID returns the record with the given id, or nil.
	SnapshotByID(id int64) (*model.SnapshotRecord, error)

	// SnapshotsByFingerprintPrefix returns every record whose fingerprint
	// starts with prefix, newest first. Callers are responsible for
	// detecting ambiguity across distinct fingerprints.
	SnapshotsByFingerprintPrefix(prefix string) ([]*model.SnapshotRecord, error)

	// ListAll returns every record, newest first.
	ListAll() ([]*model.SnapshotRecord, error)

	// ListByPathPrefix returns records whose path equals dir or falls under
	// dir (dir + "/..."), newest first.
	ListByPathPrefix(dir string) ([]*model.SnapshotRecord, error)

	// Search returns records whose path contains the substring, newest
	// first. Matching is case-insensitive.
	Search(substring string) ([]*model.SnapshotRecord, error)

	// Deletion. Each returns the number of rows removed. Callers must run
	// blob reclamation afterwards (the service does this).
	DeleteByID(id int64) (int64, error)
	DeleteByPath(path string) (int64, error)
	DeleteByPathPrefix(dir string) (int64, error)
	DeleteAll() (int64, error)

	// LiveBlobNames returns the set of blob file names still referenced by
	// at least one record. Used to drive orphan reclamation.
	LiveBlobNames() (map[string]struct{}, error)

	// Exclusion rules.
	AddExclusion(pattern, kind string) error
	RemoveExclusion(pattern string) (int64, error)
	ListExclusions() ([]*model.Exclusion, error)

	Close() error
}

// BlobStore is the deduplicated, compressed, content-addressed blob store.
type BlobStore interface {
	// Put compresses sourcePath into the store under fingerprint and returns
	// the blob path. If a blob for fingerprint already exists the write is
	// skipped entirely.
	Put(fingerprint, sourcePath string) (blobPath string, err error)

	// Open returns a reader over the decompressed content of blobPath.
	Open(blobPath string) (io.ReadCloser, error)

	// Peek reads at most limit decompressed bytes from blobPath without
	// decompressing the whole blob.
	Peek(blobPath string, limit int) ([]byte, error)

	// Export decompresses blobPath to destPath atomically. Legacy
	// uncompressed blobs are copied verbatim.
	Export(blobPath, destPath string) error

	// StoredSize returns the on-disk (compressed) size of blobPath.
	StoredSize(blobPath string) (int64, error)

	// Reclaim deletes every blob whose file name is not in live. Individual
	// delete failures are reported through the returned count/error pair
	// but do not abort the sweep. Returns the number of blobs removed.
	Reclaim(live map[string]struct{}) (int, error)

	// SweepTemp removes leftover *.tmp files from interrupted writes.
	// Run on process start.
	SweepTemp() error
}

// FilesystemManager abstracts path resolution and directory traversal so the
// service can be tested against a fake filesystem.
type FilesystemManager interface {
	// Resolve validates rawPath, canonicalizes it to an absolute path, and
	// reports whether it is a directory. Non-regular files are rejected.
	Resolve(rawPath string) (*Path, error)

	// Walk visits every regular file under root, pruning any directory for
	// which prune returns true and skipping files for which prune returns
	// true. visit errors for one file do not stop the walk; they are
	// returned accumulated.
	Walk(root string, prune func(path string, isDir bool) bool, visit func(path string) error) error
}

// ProgressObserver receives human-readable status updates during long
// operations such as directory walks. Implementations must be cheap; the
// engine calls them synchronously.
type ProgressObserver func(status string)

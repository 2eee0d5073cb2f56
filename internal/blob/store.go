// Package blob implements the deduplicated, compressed, content-addressed
// blob store. Blobs live in a flat storage directory, one file per unique
// fingerprint, named <fingerprint>.zst. Writes go through a temp file in the
// same directory followed by an atomic rename, so a blob path is never
// observable in a partial state.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"snapkeep/internal/snap"
)

// CompressedExt is the file extension for zstd-compressed blobs. Blobs
// without it are legacy uncompressed artifacts and are copied verbatim on
// export.
const CompressedExt = ".zst"

const tmpExt = ".tmp"

// Store is a filesystem-backed snap.BlobStore rooted at a single directory.
type Store struct {
	root   string
	logger snap.Logger
}

// NewStore creates a blob store rooted at root, creating the directory if
// needed.
func NewStore(root string, logger snap.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating storage directory: %v", snap.ErrConfig, err)
	}
	if logger == nil {
		logger = snap.NewNopLogger()
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the storage directory.
func (s *Store) Root() string { return s.root }

// BlobName returns the file name a blob for fingerprint is stored under.
func BlobName(fingerprint string) string { return fingerprint + CompressedExt }

// Put compresses the file at sourcePath into the store under fingerprint.
// If a blob for the fingerprint already exists, the write is skipped and the
// existing path returned: the new capture piggybacks on existing bytes.
//
// Two concurrent Puts of the same new content race benignly: both write to
// distinct temp names and rename to the identical, content-identical target.
func (s *Store) Put(fingerprint, sourcePath string) (string, error) {
	blobPath := filepath.Join(s.root, BlobName(fingerprint))

	if _, err := os.Stat(blobPath); err == nil {
		s.logger.Debug("blob deduplicated", "fingerprint", fingerprint)
		return blobPath, nil
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.root, "put-*"+tmpExt)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Cleanup runs on every failure path; success disarms it via rename.
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return "", fmt.Errorf("creating compressor: %w", err)
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return "", fmt.Errorf("compressing content: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("flushing compressor: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, blobPath); err != nil {
		return "", fmt.Errorf("renaming blob into place: %w", err)
	}
	success = true

	return blobPath, nil
}

// decompressReader wraps a zstd decoder so Close releases both the decoder
// and the underlying file.
type decompressReader struct {
	dec  *zstd.Decoder
	file *os.File
}

func (r *decompressReader) Read(p []byte) (int, error) {
	n, err := r.dec.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: %v", snap.ErrCorruptBlob, err)
	}
	return n, err
}

func (r *decompressReader) Close() error {
	r.dec.Close()
	return r.file.Close()
}

// Open returns a reader over the decompressed content of blobPath. Legacy
// uncompressed blobs are returned as-is.
func (s *Store) Open(blobPath string) (io.ReadCloser, error) {
	f, err := os.Open(blobPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: blob %s", snap.ErrNotFound, filepath.Base(blobPath))
		}
		return nil, fmt.Errorf("opening blob: %w", err)
	}

	if !IsCompressed(blobPath) {
		return f, nil
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", snap.ErrCorruptBlob, err)
	}
	return &decompressReader{dec: dec, file: f}, nil
}

// Peek reads at most limit decompressed bytes from blobPath. The decoder
// stops as soon as the limit is reached, so peeking at a large blob does not
// decompress it fully.
func (s *Store) Peek(blobPath string, limit int) ([]byte, error) {
	r, err := s.Open(blobPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := make([]byte, limit)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("reading blob prefix: %w", err)
	}
	return buf[:n], nil
}

// Export decompresses blobPath to destPath through a temp file in the
// destination directory followed by an atomic rename. A crash mid-export
// leaves destPath untouched. Legacy uncompressed blobs are copied verbatim.
func (s *Store) Export(blobPath, destPath string) error {
	r, err := s.Open(blobPath)
	if err != nil {
		return err
	}
	defer r.Close()

	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(destDir, "export-*"+tmpExt)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("writing destination: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing destination: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing destination: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	success = true

	return nil
}

// StoredSize returns the on-disk (compressed) size of blobPath.
func (s *Store) StoredSize(blobPath string) (int64, error) {
	info, err := os.Stat(blobPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: blob %s", snap.ErrNotFound, filepath.Base(blobPath))
		}
		return 0, fmt.Errorf("stat blob: %w", err)
	}
	return info.Size(), nil
}

// Reclaim deletes every blob in the store whose file name is not in live.
// Failure to delete one orphan is logged and counted but does not abort the
// sweep. Returns the number of blobs removed.
func (s *Store) Reclaim(live map[string]struct{}) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("reading storage directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, tmpExt) {
			continue // temp files belong to the startup sweep
		}
		if _, ok := live[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, name)); err != nil {
			s.logger.Warn("failed to remove orphaned blob", "blob", name, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("reclaimed orphaned blobs", "count", removed)
	}
	return removed, nil
}

// SweepTemp removes leftover *.tmp files from interrupted writes. Individual
// removal failures are logged, not fatal.
func (s *Store) SweepTemp() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading storage directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), tmpExt) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, entry.Name())); err != nil {
			s.logger.Warn("failed to remove temp file", "file", entry.Name(), "error", err)
		}
	}
	return nil
}

// IsCompressed reports whether blobPath names a zstd-compressed blob.
func IsCompressed(blobPath string) bool {
	return strings.HasSuffix(blobPath, CompressedExt)
}

// Compile-time check that Store implements snap.BlobStore.
var _ snap.BlobStore = (*Store)(nil)

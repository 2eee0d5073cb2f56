package snap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"snapkeep/internal/diff"
	"snapkeep/internal/metrics"
	"snapkeep/internal/model"
)

// normalizeHistoryPath makes rawPath absolute without requiring it to exist.
// Restore targets may have been deleted from disk; their records remain.
func normalizeHistoryPath(rawPath string) (string, error) {
	abs, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathInvalid, err)
	}
	return filepath.Clean(abs), nil
}

// History returns every record for the exact path, newest first.
func (s *Service) History(rawPath string) ([]*model.SnapshotRecord, error) {
	abs, err := normalizeHistoryPath(rawPath)
	if err != nil {
		return nil, err
	}
	return s.index.SnapshotsForPath(abs)
}

// RestoreReport summarizes a restore operation.
type RestoreReport struct {
	FilesRestored int
	Records       []*model.SnapshotRecord // the records written back, restore order
}

// Restore writes snapshot content back to its original location. For a path
// with direct records, the record chosen by selector is restored. For a path
// that only appears as a directory prefix, the newest snapshot of each file
// underneath is restored; a fingerprint selector is rejected there since it
// cannot name one snapshot per file.
//
// Each file is written atomically, so an interrupted restore leaves every
// target either fully at the old content or fully at the snapshot content.
func (s *Service) Restore(rawPath, selector string) (*RestoreReport, error) {
	abs, err := normalizeHistoryPath(rawPath)
	if err != nil {
		return nil, err
	}

	records, err := s.index.SnapshotsForPath(abs)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		rec, err := resolveSelector(records, selector)
		if err != nil {
			return nil, err
		}
		if err := s.restoreRecord(rec); err != nil {
			metrics.RestoreTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.RestoreTotal.WithLabelValues("ok").Inc()
		return &RestoreReport{FilesRestored: 1, Records: []*model.SnapshotRecord{rec}}, nil
	}

	// No direct records; try the path as a directory of snapshotted files.
	scoped, err := s.index.ListByPathPrefix(abs)
	if err != nil {
		return nil, err
	}
	if len(scoped) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, abs)
	}
	if selector != "" && selector != SelectorLatest {
		return nil, fmt.Errorf("fingerprint selector %q cannot apply to directory %s", selector, abs)
	}

	report := &RestoreReport{}
	var errs []error
	seen := make(map[string]struct{})
	for _, rec := range scoped {
		// Records are newest first, so the first hit per path is the latest.
		if _, ok := seen[rec.Path]; ok {
			continue
		}
		seen[rec.Path] = struct{}{}

		s.progress("restoring %s", rec.Path)
		if err := s.restoreRecord(rec); err != nil {
			metrics.RestoreTotal.WithLabelValues("error").Inc()
			errs = append(errs, fmt.Errorf("restoring %s: %w", rec.Path, err))
			continue
		}
		metrics.RestoreTotal.WithLabelValues("ok").Inc()
		report.FilesRestored++
		report.Records = append(report.Records, rec)
	}

	s.logger.Info("directory restore finished",
		"path", abs, "restored", report.FilesRestored, "failures", len(errs))
	return report, errors.Join(errs...)
}

func (s *Service) restoreRecord(rec *model.SnapshotRecord) error {
	if err := s.store.Export(rec.BlobPath, rec.Path); err != nil {
		return err
	}
	s.logger.Debug("restored", "path", rec.Path, "fingerprint", rec.Fingerprint[:12])
	return nil
}

// Export writes the snapshot chosen by selector to destination, decompressed.
// If destination is an existing directory, the file keeps its original base
// name inside it.
func (s *Service) Export(rawPath, selector, destination string) (string, error) {
	abs, err := normalizeHistoryPath(rawPath)
	if err != nil {
		return "", err
	}
	records, err := s.index.SnapshotsForPath(abs)
	if err != nil {
		return "", err
	}
	rec, err := resolveSelector(records, selector)
	if err != nil {
		return "", err
	}

	destPath, err := filepath.Abs(destination)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathInvalid, err)
	}
	if info, err := os.Stat(destPath); err == nil && info.IsDir() {
		destPath = filepath.Join(destPath, filepath.Base(rec.Path))
	}

	if err := s.store.Export(rec.BlobPath, destPath); err != nil {
		return "", err
	}
	s.logger.Info("exported snapshot",
		"path", rec.Path, "fingerprint", rec.Fingerprint[:12], "destination", destPath)
	return destPath, nil
}

// DefaultViewLimit caps how much snapshot content View will return inline.
const DefaultViewLimit = 5 << 20 // 5 MiB

// ViewResult is the outcome of a View call. Binary snapshots carry no
// content; callers should offer Export instead.
type ViewResult struct {
	Record  *model.SnapshotRecord
	Binary  bool
	Content string
}

// View returns the content of the snapshot chosen by selector. Snapshots
// whose original size exceeds limit produce ErrTooLarge without touching the
// blob; limit <= 0 means DefaultViewLimit.
func (s *Service) View(rawPath, selector string, limit int64) (*ViewResult, error) {
	abs, err := normalizeHistoryPath(rawPath)
	if err != nil {
		return nil, err
	}
	records, err := s.index.SnapshotsForPath(abs)
	if err != nil {
		return nil, err
	}
	rec, err := resolveSelector(records, selector)
	if err != nil {
		return nil, err
	}
	return s.viewRecord(rec, limit)
}

// viewRecord applies the size gate, sniffs the blob's leading bytes for
// binary content, and only then decompresses the whole blob.
func (s *Service) viewRecord(rec *model.SnapshotRecord, limit int64) (*ViewResult, error) {
	if limit <= 0 {
		limit = DefaultViewLimit
	}
	if rec.Size > limit {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, rec.Size, limit)
	}

	head, err := s.store.Peek(rec.BlobPath, diff.SniffLen)
	if err != nil {
		return nil, err
	}
	result := &ViewResult{Record: rec}
	if isBinaryContent(head) {
		result.Binary = true
		return result, nil
	}

	content, err := s.readBlob(rec)
	if err != nil {
		return nil, err
	}
	result.Content = string(content)
	return result, nil
}

// Snapshot returns one record by index id.
func (s *Service) Snapshot(id int64) (*model.SnapshotRecord, error) {
	rec, err := s.index.SnapshotByID(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return rec, nil
}

// RestoreByID restores exactly one snapshot, addressed by index id.
func (s *Service) RestoreByID(id int64) (*model.SnapshotRecord, error) {
	rec, err := s.Snapshot(id)
	if err != nil {
		return nil, err
	}
	if err := s.restoreRecord(rec); err != nil {
		metrics.RestoreTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.RestoreTotal.WithLabelValues("ok").Inc()
	return rec, nil
}

// ExportByID writes one snapshot, addressed by index id, to destination.
func (s *Service) ExportByID(id int64, destination string) (string, error) {
	rec, err := s.Snapshot(id)
	if err != nil {
		return "", err
	}

	destPath, err := filepath.Abs(destination)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathInvalid, err)
	}
	if info, err := os.Stat(destPath); err == nil && info.IsDir() {
		destPath = filepath.Join(destPath, filepath.Base(rec.Path))
	}
	if err := s.store.Export(rec.BlobPath, destPath); err != nil {
		return "", err
	}
	return destPath, nil
}

// ViewByID returns the content of one snapshot, addressed by index id, under
// the same size and binary rules as View.
func (s *Service) ViewByID(id int64, limit int64) (*ViewResult, error) {
	rec, err := s.Snapshot(id)
	if err != nil {
		return nil, err
	}
	return s.viewRecord(rec, limit)
}

// Info resolves a fingerprint prefix across the whole index and returns the
// newest record carrying the matched fingerprint.
func (s *Service) Info(fingerprintPrefix string) (*model.SnapshotRecord, error) {
	if fingerprintPrefix == "" {
		return nil, fmt.Errorf("%w: empty fingerprint", ErrNotFound)
	}
	records, err := s.index.SnapshotsByFingerprintPrefix(fingerprintPrefix)
	if err != nil {
		return nil, err
	}
	return resolveSelector(records, fingerprintPrefix)
}

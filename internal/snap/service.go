package snap

import (
	"fmt"

	"snapkeep/internal/metrics"
	"snapkeep/internal/model"
)

// Service orchestrates the checksum engine, blob store, metadata index, and
// exclusion filter into the high-level snapshot operations consumed by the
// CLI, the MCP adapter, and the HTTP layer.
//
// Calls are synchronous and blocking. The service itself holds no locks; a
// concurrent host must serialize access to a shared index connection.
type Service struct {
	index    Index
	store    BlobStore
	fsmgr    FilesystemManager
	logger   Logger
	clock    Clock
	observer ProgressObserver
}

// NewService creates a Service with the provided dependencies. observer may
// be nil.
func NewService(index Index, store BlobStore, fsmgr FilesystemManager, logger Logger, clock Clock, observer ProgressObserver) *Service {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Service{
		index:    index,
		store:    store,
		fsmgr:    fsmgr,
		logger:   logger,
		clock:    clock,
		observer: observer,
	}
}

func (s *Service) progress(format string, args ...any) {
	if s.observer != nil {
		s.observer(fmt.Sprintf(format, args...))
	}
}

// CaptureReport summarizes a capture operation.
type CaptureReport struct {
	FilesSeen      int // non-excluded regular files visited
	RecordsCreated int // new records written (unchanged files are no-ops)
}

// Capture snapshots the file or directory at rawPath. Directories are walked
// recursively with excluded subtrees pruned; a failure on one file does not
// abort the walk but is accumulated into the returned error alongside a
// valid report.
func (s *Service) Capture(rawPath string) (*CaptureReport, error) {
	path, err := s.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, err
	}

	report := &CaptureReport{}

	if !path.IsDir() {
		created, err := s.captureFile(path.String())
		if err != nil {
			metrics.CaptureTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		report.FilesSeen = 1
		if created {
			report.RecordsCreated = 1
		}
		metrics.CaptureTotal.WithLabelValues("ok").Inc()
		return report, nil
	}

	filter, err := s.loadExclusionFilter()
	if err != nil {
		return nil, err
	}

	walkErr := s.fsmgr.Walk(path.String(),
		func(p string, isDir bool) bool { return filter.Excluded(p, isDir) },
		func(p string) error {
			s.progress("capturing %s", p)
			report.FilesSeen++
			created, err := s.captureFile(p)
			if err != nil {
				metrics.CaptureTotal.WithLabelValues("error").Inc()
				return err
			}
			if created {
				report.RecordsCreated++
			}
			metrics.CaptureTotal.WithLabelValues("ok").Inc()
			return nil
		})

	s.logger.Info("capture finished",
		"path", path.String(), "files", report.FilesSeen, "records", report.RecordsCreated)
	return report, walkErr
}

// captureFile fingerprints one file, stores its blob, and records the event.
// Returns true when a new record was created (false on the unchanged no-op).
func (s *Service) captureFile(absPath string) (bool, error) {
	fingerprint, err := Fingerprint(absPath)
	if err != nil {
		return false, fmt.Errorf("fingerprinting: %w", err)
	}

	size, err := statSize(absPath)
	if err != nil {
		return false, err
	}

	blobPath, err := s.store.Put(fingerprint, absPath)
	if err != nil {
		return false, fmt.Errorf("storing blob: %w", err)
	}

	rec := &model.SnapshotRecord{
		Path:        absPath,
		BlobPath:    blobPath,
		Fingerprint: fingerprint,
		CapturedAt:  Timestamp(s.clock.Now()),
		Size:        size,
	}
	created, err := s.index.InsertIfNew(rec)
	if err != nil {
		return false, fmt.Errorf("recording snapshot: %w", err)
	}
	if created {
		s.logger.Debug("snapshot recorded", "path", absPath, "fingerprint", fingerprint[:12])
	} else {
		s.logger.Debug("content unchanged, no record", "path", absPath)
	}
	return created, nil
}

// loadExclusionFilter reads the current rule set. A failure to read rules
// must not abort a capture, so the filter fails open (no exclusions).
func (s *Service) loadExclusionFilter() (*ExclusionFilter, error) {
	rules, err := s.index.ListExclusions()
	if err != nil {
		s.logger.Warn("could not load exclusion rules, capturing everything", "error", err)
		return NewExclusionFilter(nil), nil
	}
	return NewExclusionFilter(rules), nil
}

// List returns every record, newest first.
func (s *Service) List() ([]*model.SnapshotRecord, error) {
	return s.index.ListAll()
}

// ListDirectory returns records scoped to dir (exact path or below), newest
// first.
func (s *Service) ListDirectory(rawDir string) ([]*model.SnapshotRecord, error) {
	abs, err := normalizeHistoryPath(rawDir)
	if err != nil {
		return nil, err
	}
	return s.index.ListByPathPrefix(abs)
}

// Search returns records whose path contains the substring,
// case-insensitively, newest first.
func (s *Service) Search(substring string) ([]*model.SnapshotRecord, error) {
	return s.index.Search(substring)
}

// Exclusions returns the current exclusion rules.
func (s *Service) Exclusions() ([]*model.Exclusion, error) {
	return s.index.ListExclusions()
}

// AddExclusion records a new exclusion rule. It takes effect on the next
// directory walk; records already captured are unaffected.
func (s *Service) AddExclusion(pattern, kind string) error {
	if err := s.index.AddExclusion(pattern, kind); err != nil {
		return err
	}
	s.logger.Info("exclusion added", "pattern", pattern, "kind", kind)
	return nil
}

// RemoveExclusion deletes every rule with the given pattern. Returns the
// number of rules removed.
func (s *Service) RemoveExclusion(pattern string) (int64, error) {
	n, err := s.index.RemoveExclusion(pattern)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("exclusion removed", "pattern", pattern)
	}
	return n, nil
}

// DeleteByID removes one record by id, then reclaims orphaned blobs.
func (s *Service) DeleteByID(id int64) (int64, error) {
	return s.deleteAndReclaim(func() (int64, error) { return s.index.DeleteByID(id) })
}

// DeleteByPath removes every record for the exact path, then reclaims
// orphaned blobs.
func (s *Service) DeleteByPath(rawPath string) (int64, error) {
	abs, err := normalizeHistoryPath(rawPath)
	if err != nil {
		return 0, err
	}
	return s.deleteAndReclaim(func() (int64, error) { return s.index.DeleteByPath(abs) })
}

// DeleteByPathPrefix removes every record at or under dir, then reclaims
// orphaned blobs.
func (s *Service) DeleteByPathPrefix(rawDir string) (int64, error) {
	abs, err := normalizeHistoryPath(rawDir)
	if err != nil {
		return 0, err
	}
	return s.deleteAndReclaim(func() (int64, error) { return s.index.DeleteByPathPrefix(abs) })
}

// DeleteAll removes every record, then reclaims orphaned blobs.
func (s *Service) DeleteAll() (int64, error) {
	return s.deleteAndReclaim(s.index.DeleteAll)
}

// deleteAndReclaim runs one index deletion and, if any rows were removed,
// synchronously sweeps the blob store for orphans. Blobs exist iff a
// surviving record references them.
func (s *Service) deleteAndReclaim(del func() (int64, error)) (int64, error) {
	n, err := del()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	live, err := s.index.LiveBlobNames()
	if err != nil {
		return n, fmt.Errorf("listing live blobs: %w", err)
	}
	removed, err := s.store.Reclaim(live)
	if err != nil {
		return n, fmt.Errorf("reclaiming orphans: %w", err)
	}
	metrics.ReclaimedBlobs.Add(float64(removed))
	s.logger.Info("deleted snapshots", "records", n, "blobs_reclaimed", removed)
	return n, nil
}

// Stats summarizes the index and storage contents for dashboards.
type Stats struct {
	TotalSnapshots int64
	TotalBytes     int64 // sum of original (uncompressed) sizes
	StoredBytes    int64 // on-disk size of the deduplicated, compressed blobs
	Exclusions     int64
}

// Stats computes totals over all records and rules. StoredBytes counts each
// shared blob once, so it reflects what the store actually occupies on disk.
func (s *Service) Stats() (*Stats, error) {
	records, err := s.index.ListAll()
	if err != nil {
		return nil, err
	}
	exclusions, err := s.index.ListExclusions()
	if err != nil {
		return nil, err
	}

	st := &Stats{
		TotalSnapshots: int64(len(records)),
		Exclusions:     int64(len(exclusions)),
	}
	counted := make(map[string]struct{})
	for _, rec := range records {
		st.TotalBytes += rec.Size
		if _, ok := counted[rec.BlobPath]; ok {
			continue
		}
		counted[rec.BlobPath] = struct{}{}
		stored, err := s.store.StoredSize(rec.BlobPath)
		if err != nil {
			s.logger.Warn("could not size blob", "blob", rec.BlobPath, "error", err)
			continue
		}
		st.StoredBytes += stored
	}
	metrics.SetSnapshotRecords(st.TotalSnapshots)
	return st, nil
}

package snap

import (
	"fmt"
	"io"
	"os"

	"snapkeep/internal/diff"
	"snapkeep/internal/model"
)

// readBlob loads the full decompressed content of a record's blob.
func (s *Service) readBlob(rec *model.SnapshotRecord) ([]byte, error) {
	r, err := s.store.Open(rec.BlobPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	return content, nil
}

func isBinaryContent(content []byte) bool {
	return diff.IsBinary(content)
}

// CompareResult pairs the resolved side labels with the computed diff.
type CompareResult struct {
	Path       string
	SourceName string
	TargetName string
	Diff       *diff.Result
}

// Compare diffs two versions of the file at rawPath. Each selector is a
// fingerprint prefix, "latest", or "current" for the live file on disk.
// An empty source defaults to the latest snapshot, an empty target to the
// live file, so a bare Compare answers "what changed since the last
// snapshot".
func (s *Service) Compare(rawPath, sourceSel, targetSel string) (*CompareResult, error) {
	if sourceSel == "" {
		sourceSel = SelectorLatest
	}
	if targetSel == "" {
		targetSel = SelectorCurrent
	}

	abs, err := normalizeHistoryPath(rawPath)
	if err != nil {
		return nil, err
	}
	records, err := s.index.SnapshotsForPath(abs)
	if err != nil {
		return nil, err
	}

	sourceName, source, err := s.compareSide(abs, records, sourceSel)
	if err != nil {
		return nil, fmt.Errorf("resolving source: %w", err)
	}
	targetName, target, err := s.compareSide(abs, records, targetSel)
	if err != nil {
		return nil, fmt.Errorf("resolving target: %w", err)
	}

	d, err := diff.Compare(sourceName, targetName, source, target)
	if err != nil {
		return nil, err
	}
	return &CompareResult{
		Path:       abs,
		SourceName: sourceName,
		TargetName: targetName,
		Diff:       d,
	}, nil
}

// compareSide resolves one selector into a label and content bytes.
func (s *Service) compareSide(abs string, records []*model.SnapshotRecord, selector string) (string, []byte, error) {
	if selector == SelectorCurrent {
		content, err := os.ReadFile(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return "", nil, fmt.Errorf("%w: no live file at %s", ErrNotFound, abs)
			}
			return "", nil, fmt.Errorf("reading live file: %w", err)
		}
		return SelectorCurrent, content, nil
	}

	rec, err := resolveSelector(records, selector)
	if err != nil {
		return "", nil, err
	}
	content, err := s.readBlob(rec)
	if err != nil {
		return "", nil, err
	}
	name := rec.Fingerprint
	if len(name) > 16 {
		name = name[:16]
	}
	return name, content, nil
}

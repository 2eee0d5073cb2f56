package snap

import (
	"fmt"
	"strings"

	"snapkeep/internal/model"
)

// Selector values with special meaning. Anything else is treated as a
// fingerprint prefix.
const (
	// SelectorLatest picks the newest snapshot. The empty string is an alias.
	SelectorLatest = "latest"

	// SelectorCurrent picks the live file on disk. Only Compare accepts it.
	SelectorCurrent = "current"
)

// resolveSelector picks one record out of records (ordered newest first)
// according to selector. A fingerprint prefix matching more than one distinct
// fingerprint yields an AmbiguousSelectorError rather than an arbitrary pick.
func resolveSelector(records []*model.SnapshotRecord, selector string) (*model.SnapshotRecord, error) {
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	if selector == "" || selector == SelectorLatest {
		return records[0], nil
	}

	var (
		match    *model.SnapshotRecord
		distinct []string
		seen     = make(map[string]struct{})
	)
	for _, rec := range records {
		if !strings.HasPrefix(rec.Fingerprint, selector) {
			continue
		}
		if match == nil {
			match = rec
		}
		if _, ok := seen[rec.Fingerprint]; !ok {
			seen[rec.Fingerprint] = struct{}{}
			distinct = append(distinct, rec.Fingerprint)
		}
	}

	switch {
	case match == nil:
		return nil, fmt.Errorf("%w: no fingerprint matches prefix %q", ErrNotFound, selector)
	case len(distinct) > 1:
		return nil, &AmbiguousSelectorError{Prefix: selector, Candidates: distinct}
	default:
		return match, nil
	}
}

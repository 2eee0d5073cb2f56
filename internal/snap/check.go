package snap

import "fmt"

// CheckState classifies a file against its snapshot history.
type CheckState string

const (
	// StateUnchanged means the live content matches the latest snapshot.
	StateUnchanged CheckState = "unchanged"

	// StateModified means the live content differs from the latest snapshot.
	StateModified CheckState = "modified"

	// StateNew marks a file encountered in a directory walk with no history.
	StateNew CheckState = "new"

	// StateNoSnapshot means a directly checked file has no history at all.
	StateNoSnapshot CheckState = "no-snapshot"
)

// FileCheck is the verdict for one file.
type FileCheck struct {
	Path  string
	State CheckState
}

// CheckReport aggregates per-file verdicts for a check run.
type CheckReport struct {
	Files     []FileCheck
	Unchanged int
	Modified  int
	New       int
}

func (r *CheckReport) add(path string, state CheckState) {
	r.Files = append(r.Files, FileCheck{Path: path, State: state})
	switch state {
	case StateUnchanged:
		r.Unchanged++
	case StateModified:
		r.Modified++
	default:
		r.New++
	}
}

// Check compares live content against the latest snapshots without writing
// anything. For a directory the usual exclusions apply and files without
// history are reported as new rather than failing the run.
func (s *Service) Check(rawPath string) (*CheckReport, error) {
	path, err := s.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, err
	}

	report := &CheckReport{}

	if !path.IsDir() {
		state, err := s.checkFile(path.String())
		if err != nil {
			return nil, err
		}
		if state == StateNew {
			state = StateNoSnapshot
		}
		report.add(path.String(), state)
		return report, nil
	}

	filter, err := s.loadExclusionFilter()
	if err != nil {
		return nil, err
	}

	walkErr := s.fsmgr.Walk(path.String(),
		func(p string, isDir bool) bool { return filter.Excluded(p, isDir) },
		func(p string) error {
			state, err := s.checkFile(p)
			if err != nil {
				return err
			}
			report.add(p, state)
			return nil
		})
	return report, walkErr
}

// checkFile fingerprints the live file and compares it to the newest record.
func (s *Service) checkFile(absPath string) (CheckState, error) {
	records, err := s.index.SnapshotsForPath(absPath)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return StateNew, nil
	}

	fingerprint, err := Fingerprint(absPath)
	if err != nil {
		return "", fmt.Errorf("fingerprinting %s: %w", absPath, err)
	}
	if fingerprint == records[0].Fingerprint {
		return StateUnchanged, nil
	}
	return StateModified, nil
}

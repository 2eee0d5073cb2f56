package snap_test

import (
	"os"
	"path/filepath"
	"testing"

	"snapkeep/internal/blob"
	"snapkeep/internal/fs"
	"snapkeep/internal/snap"
	"snapkeep/internal/testutil"
)

// setupService creates a service backed by a real temp directory blob store
// and an in-memory index.
func setupService(t *testing.T) (*snap.Service, string) {
	t.Helper()

	index := testutil.NewTestIndex(t)
	store, err := blob.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("creating blob store: %v", err)
	}
	svc := snap.NewService(index, store, fs.NewOSFilesystemManager(), nil, testutil.FixedClock(), nil)

	// EvalSymlinks so captured paths match what Resolve produces.
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolving temp dir: %v", err)
	}
	return svc, dir
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestService_Capture(t *testing.T) {
	t.Run("file capture creates a record", func(t *testing.T) {
		svc, dir := setupService(t)
		path := filepath.Join(dir, "notes.txt")
		writeFile(t, path, []byte("first draft"))

		report, err := svc.Capture(path)
		if err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
		if report.FilesSeen != 1 || report.RecordsCreated != 1 {
			t.Errorf("report = %+v, want 1 file and 1 record", report)
		}

		records, err := svc.History(path)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("got %d records, want 1", len(records))
		}
		if records[0].Size != int64(len("first draft")) {
			t.Errorf("size = %d, want %d", records[0].Size, len("first draft"))
		}
		if len(records[0].Fingerprint) != 64 {
			t.Errorf("fingerprint %q is not 64 hex chars", records[0].Fingerprint)
		}
	})

	t.Run("unchanged content is a no-op", func(t *testing.T) {
		svc, dir := setupService(t)
		path := filepath.Join(dir, "stable.txt")
		writeFile(t, path, []byte("unchanging"))

		if _, err := svc.Capture(path); err != nil {
			t.Fatalf("first Capture() error = %v", err)
		}
		report, err := svc.Capture(path)
		if err != nil {
			t.Fatalf("second Capture() error = %v", err)
		}
		if report.RecordsCreated != 0 {
			t.Errorf("RecordsCreated = %d, want 0", report.RecordsCreated)
		}

		records, _ := svc.History(path)
		if len(records) != 1 {
			t.Errorf("got %d records, want 1", len(records))
		}
	})

	t.Run("changed content creates a second record", func(t *testing.T) {
		svc, dir := setupService(t)
		path := filepath.Join(dir, "evolving.txt")
		writeFile(t, path, []byte("v1"))
		if _, err := svc.Capture(path); err != nil {
			t.Fatalf("Capture() error = %v", err)
		}

		writeFile(t, path, []byte("v2"))
		if _, err := svc.Capture(path); err != nil {
			t.Fatalf("Capture() error = %v", err)
		}

		records, _ := svc.History(path)
		if len(records) != 2 {
			t.Fatalf("got %d records, want 2", len(records))
		}
	})

	t.Run("directory capture walks recursively", func(t *testing.T) {
		svc, dir := setupService(t)
		writeFile(t, filepath.Join(dir, "a.txt"), []byte("a"))
		writeFile(t, filepath.Join(dir, "sub", "b.txt"), []byte("b"))

		report, err := svc.Capture(dir)
		if err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
		if report.FilesSeen != 2 || report.RecordsCreated != 2 {
			t.Errorf("report = %+v, want 2 files and 2 records", report)
		}
	})

	t.Run("exclusions prune the walk", func(t *testing.T) {
		svc, dir := setupService(t)
		writeFile(t, filepath.Join(dir, "keep.txt"), []byte("keep"))
		writeFile(t, filepath.Join(dir, "skip.log"), []byte("skip"))
		writeFile(t, filepath.Join(dir, "node_modules", "dep.js"), []byte("dep"))

		if err := svc.AddExclusion("log", "extension"); err != nil {
			t.Fatalf("AddExclusion() error = %v", err)
		}
		if err := svc.AddExclusion("node_modules", "directory"); err != nil {
			t.Fatalf("AddExclusion() error = %v", err)
		}

		report, err := svc.Capture(dir)
		if err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
		if report.FilesSeen != 1 {
			t.Errorf("FilesSeen = %d, want 1", report.FilesSeen)
		}
	})

	t.Run("missing path is invalid", func(t *testing.T) {
		svc, dir := setupService(t)
		if _, err := svc.Capture(filepath.Join(dir, "nope.txt")); err == nil {
			t.Fatal("Capture() expected error for missing path")
		}
	})
}

func TestService_Check(t *testing.T) {
	svc, dir := setupService(t)
	unchanged := filepath.Join(dir, "same.txt")
	modified := filepath.Join(dir, "drift.txt")
	writeFile(t, unchanged, []byte("same"))
	writeFile(t, modified, []byte("before"))

	if _, err := svc.Capture(dir); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	writeFile(t, modified, []byte("after"))
	writeFile(t, filepath.Join(dir, "fresh.txt"), []byte("fresh"))

	report, err := svc.Check(dir)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.Unchanged != 1 || report.Modified != 1 || report.New != 1 {
		t.Errorf("report = %d unchanged, %d modified, %d new; want 1/1/1",
			report.Unchanged, report.Modified, report.New)
	}

	t.Run("single file without history", func(t *testing.T) {
		path := filepath.Join(dir, "untracked.txt")
		writeFile(t, path, []byte("x"))

		report, err := svc.Check(path)
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if len(report.Files) != 1 || report.Files[0].State != snap.StateNoSnapshot {
			t.Errorf("state = %v, want %v", report.Files[0].State, snap.StateNoSnapshot)
		}
	})
}

func TestService_DeleteReclaims(t *testing.T) {
	svc, dir := setupService(t)
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	writeFile(t, a, []byte("content a"))
	writeFile(t, b, []byte("content b"))

	if _, err := svc.Capture(dir); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	recsA, _ := svc.History(a)
	if len(recsA) != 1 {
		t.Fatalf("got %d records for a, want 1", len(recsA))
	}
	blobA := recsA[0].BlobPath

	n, err := svc.DeleteByPath(a)
	if err != nil {
		t.Fatalf("DeleteByPath() error = %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d records, want 1", n)
	}
	if _, err := os.Stat(blobA); !os.IsNotExist(err) {
		t.Errorf("blob %s still exists after delete", blobA)
	}

	recsB, _ := svc.History(b)
	if _, err := os.Stat(recsB[0].BlobPath); err != nil {
		t.Errorf("blob for surviving record is gone: %v", err)
	}
}

func TestService_SharedBlobSurvivesPartialDelete(t *testing.T) {
	svc, dir := setupService(t)
	a := filepath.Join(dir, "one.txt")
	b := filepath.Join(dir, "two.txt")
	// Identical content shares one blob.
	writeFile(t, a, []byte("shared bytes"))
	writeFile(t, b, []byte("shared bytes"))

	if _, err := svc.Capture(dir); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	recsA, _ := svc.History(a)
	recsB, _ := svc.History(b)
	if recsA[0].BlobPath != recsB[0].BlobPath {
		t.Fatalf("expected shared blob, got %s and %s", recsA[0].BlobPath, recsB[0].BlobPath)
	}

	if _, err := svc.DeleteByPath(a); err != nil {
		t.Fatalf("DeleteByPath() error = %v", err)
	}
	if _, err := os.Stat(recsB[0].BlobPath); err != nil {
		t.Errorf("shared blob removed while still referenced: %v", err)
	}

	if _, err := svc.DeleteByPath(b); err != nil {
		t.Fatalf("DeleteByPath() error = %v", err)
	}
	if _, err := os.Stat(recsB[0].BlobPath); !os.IsNotExist(err) {
		t.Errorf("blob %s not reclaimed after last reference removed", recsB[0].BlobPath)
	}
}

func TestService_Stats(t *testing.T) {
	svc, dir := setupService(t)
	writeFile(t, filepath.Join(dir, "a.txt"), []byte("aaaa"))
	writeFile(t, filepath.Join(dir, "b.txt"), []byte("bb"))
	if _, err := svc.Capture(dir); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if err := svc.AddExclusion("tmp", "directory"); err != nil {
		t.Fatalf("AddExclusion() error = %v", err)
	}

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalSnapshots != 2 {
		t.Errorf("TotalSnapshots = %d, want 2", stats.TotalSnapshots)
	}
	if stats.TotalBytes != 6 {
		t.Errorf("TotalBytes = %d, want 6", stats.TotalBytes)
	}
	if stats.StoredBytes <= 0 {
		t.Errorf("StoredBytes = %d, want > 0", stats.StoredBytes)
	}
	if stats.Exclusions != 1 {
		t.Errorf("Exclusions = %d, want 1", stats.Exclusions)
	}
}

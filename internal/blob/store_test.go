package blob

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"snapkeep/internal/snap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

// putContent writes content to a scratch file and stores it.
func putContent(t *testing.T, store *Store, content []byte) (fingerprint, blobPath string) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "src")
	if err := os.WriteFile(src, content, 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	fingerprint = snap.FingerprintBytes(content)
	blobPath, err := store.Put(fingerprint, src)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	return fingerprint, blobPath
}

func TestStore_PutOpen(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		store := newTestStore(t)
		content := []byte("some file content\nwith lines\n")
		_, blobPath := putContent(t, store, content)

		r, err := store.Open(blobPath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer r.Close()

		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("reading blob: %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("content = %q, want %q", got, content)
		}
	})

	t.Run("round trip with NUL bytes", func(t *testing.T) {
		store := newTestStore(t)
		content := []byte{0x00, 0xff, 0x00, 0x42, 0x00}
		_, blobPath := putContent(t, store, content)

		r, err := store.Open(blobPath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer r.Close()
		got, _ := io.ReadAll(r)
		if !bytes.Equal(got, content) {
			t.Errorf("content = %v, want %v", got, content)
		}
	})

	t.Run("blob is compressed on disk", func(t *testing.T) {
		store := newTestStore(t)
		content := bytes.Repeat([]byte("compressible "), 4096)
		_, blobPath := putContent(t, store, content)

		stored, err := store.StoredSize(blobPath)
		if err != nil {
			t.Fatalf("StoredSize() error = %v", err)
		}
		if stored >= int64(len(content)) {
			t.Errorf("stored size %d not smaller than original %d", stored, len(content))
		}
		if !IsCompressed(blobPath) {
			t.Errorf("blob path %q not marked compressed", blobPath)
		}
	})

	t.Run("missing blob", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.Open(filepath.Join(store.Root(), "deadbeef.zst"))
		if err == nil {
			t.Fatal("Open() expected error")
		}
	})
}

func TestStore_Dedup(t *testing.T) {
	store := newTestStore(t)
	content := []byte("identical content")

	_, path1 := putContent(t, store, content)
	info1, err := os.Stat(path1)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	_, path2 := putContent(t, store, content)
	if path1 != path2 {
		t.Errorf("second Put() = %q, want existing %q", path2, path1)
	}
	info2, _ := os.Stat(path2)
	if !info1.ModTime().Equal(info2.ModTime()) {
		t.Error("existing blob was rewritten")
	}

	entries, _ := os.ReadDir(store.Root())
	if len(entries) != 1 {
		t.Errorf("store holds %d files, want 1", len(entries))
	}
}

func TestStore_Export(t *testing.T) {
	store := newTestStore(t)
	content := []byte("export me\n")
	_, blobPath := putContent(t, store, content)

	dest := filepath.Join(t.TempDir(), "nested", "out.txt")
	if err := store.Export(blobPath, dest); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content = %q, want %q", got, content)
	}

	// No temp leftovers in the destination directory.
	entries, _ := os.ReadDir(filepath.Dir(dest))
	if len(entries) != 1 {
		t.Errorf("destination dir holds %d entries, want 1", len(entries))
	}
}

func TestStore_LegacyUncompressed(t *testing.T) {
	store := newTestStore(t)
	content := []byte("stored before compression existed")
	legacy := filepath.Join(store.Root(), snap.FingerprintBytes(content))
	if err := os.WriteFile(legacy, content, 0644); err != nil {
		t.Fatalf("write legacy blob: %v", err)
	}

	r, err := store.Open(legacy)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if !bytes.Equal(got, content) {
		t.Errorf("content = %q, want %q", got, content)
	}
}

func TestStore_Peek(t *testing.T) {
	store := newTestStore(t)
	content := []byte("0123456789")
	_, blobPath := putContent(t, store, content)

	t.Run("limit below size", func(t *testing.T) {
		got, err := store.Peek(blobPath, 4)
		if err != nil {
			t.Fatalf("Peek() error = %v", err)
		}
		if string(got) != "0123" {
			t.Errorf("Peek() = %q, want %q", got, "0123")
		}
	})

	t.Run("limit beyond size", func(t *testing.T) {
		got, err := store.Peek(blobPath, 100)
		if err != nil {
			t.Fatalf("Peek() error = %v", err)
		}
		if string(got) != string(content) {
			t.Errorf("Peek() = %q", got)
		}
	})
}

func TestStore_Reclaim(t *testing.T) {
	store := newTestStore(t)
	_, liveBlob := putContent(t, store, []byte("still referenced"))
	_, orphanBlob := putContent(t, store, []byte("orphaned"))

	live := map[string]struct{}{filepath.Base(liveBlob): {}}
	removed, err := store.Reclaim(live)
	if err != nil {
		t.Fatalf("Reclaim() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(orphanBlob); !os.IsNotExist(err) {
		t.Error("orphan blob still present")
	}
	if _, err := os.Stat(liveBlob); err != nil {
		t.Errorf("live blob removed: %v", err)
	}
}

func TestStore_SweepTemp(t *testing.T) {
	store := newTestStore(t)
	_, blobPath := putContent(t, store, []byte("keep"))

	stale := filepath.Join(store.Root(), "put-123456.tmp")
	if err := os.WriteFile(stale, []byte("partial write"), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}

	if err := store.SweepTemp(); err != nil {
		t.Fatalf("SweepTemp() error = %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale temp file survived sweep")
	}
	if _, err := os.Stat(blobPath); err != nil {
		t.Errorf("real blob removed by sweep: %v", err)
	}

	t.Run("reclaim leaves temp files to the sweep", func(t *testing.T) {
		other := filepath.Join(store.Root(), "put-777.tmp")
		if err := os.WriteFile(other, nil, 0644); err != nil {
			t.Fatalf("write temp: %v", err)
		}
		if _, err := store.Reclaim(map[string]struct{}{filepath.Base(blobPath): {}}); err != nil {
			t.Fatalf("Reclaim() error = %v", err)
		}
		if _, err := os.Stat(other); err != nil {
			t.Errorf("Reclaim touched a temp file: %v", err)
		}
	})
}

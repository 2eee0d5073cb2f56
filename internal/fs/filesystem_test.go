package fs

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"snapkeep/internal/snap"
)

func mkfile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestOSFilesystemManager_Resolve(t *testing.T) {
	mgr := NewOSFilesystemManager()
	dir := t.TempDir()

	t.Run("regular file", func(t *testing.T) {
		path := filepath.Join(dir, "f.txt")
		mkfile(t, path)

		p, err := mgr.Resolve(path)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if p.IsDir() {
			t.Error("file resolved as directory")
		}
		if !filepath.IsAbs(p.String()) {
			t.Errorf("resolved path %q is not absolute", p.String())
		}
	})

	t.Run("directory", func(t *testing.T) {
		p, err := mgr.Resolve(dir)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !p.IsDir() {
			t.Error("directory resolved as file")
		}
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := mgr.Resolve(filepath.Join(dir, "missing"))
		if !errors.Is(err, snap.ErrPathInvalid) {
			t.Errorf("error = %v, want ErrPathInvalid", err)
		}
	})

	t.Run("symlink resolves to target", func(t *testing.T) {
		target := filepath.Join(dir, "target.txt")
		mkfile(t, target)
		link := filepath.Join(dir, "link.txt")
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}

		p, err := mgr.Resolve(link)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if filepath.Base(p.String()) != "target.txt" {
			t.Errorf("resolved %q, want the symlink target", p.String())
		}
	})
}

func TestOSFilesystemManager_Walk(t *testing.T) {
	mgr := NewOSFilesystemManager()

	setup := func(t *testing.T) string {
		dir := t.TempDir()
		mkfile(t, filepath.Join(dir, "a.txt"))
		mkfile(t, filepath.Join(dir, "b.log"))
		mkfile(t, filepath.Join(dir, "sub", "c.txt"))
		mkfile(t, filepath.Join(dir, "skipme", "d.txt"))
		return dir
	}

	collect := func(t *testing.T, dir string, prune func(string, bool) bool) []string {
		t.Helper()
		var visited []string
		err := mgr.Walk(dir, prune, func(path string) error {
			visited = append(visited, filepath.Base(path))
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		sort.Strings(visited)
		return visited
	}

	t.Run("visits every file", func(t *testing.T) {
		dir := setup(t)
		got := collect(t, dir, func(string, bool) bool { return false })
		want := []string{"a.txt", "b.log", "c.txt", "d.txt"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("visited %v, want %v", got, want)
		}
	})

	t.Run("pruned directories are not descended", func(t *testing.T) {
		dir := setup(t)
		got := collect(t, dir, func(path string, isDir bool) bool {
			return isDir && filepath.Base(path) == "skipme"
		})
		for _, name := range got {
			if name == "d.txt" {
				t.Error("file inside pruned directory was visited")
			}
		}
	})

	t.Run("pruned files are skipped", func(t *testing.T) {
		dir := setup(t)
		got := collect(t, dir, func(path string, isDir bool) bool {
			return !isDir && strings.HasSuffix(path, ".log")
		})
		for _, name := range got {
			if name == "b.log" {
				t.Error("pruned file was visited")
			}
		}
	})

	t.Run("root directory is never pruned", func(t *testing.T) {
		dir := setup(t)
		got := collect(t, dir, func(path string, isDir bool) bool { return isDir })
		// All directories prune-flagged, but the root itself must still open;
		// only its top-level files remain visible.
		want := []string{"a.txt", "b.log"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("visited %v, want %v", got, want)
		}
	})

	t.Run("visit errors are collected, not fatal mid-walk", func(t *testing.T) {
		dir := setup(t)
		var visited []string
		err := mgr.Walk(dir, func(string, bool) bool { return false }, func(path string) error {
			visited = append(visited, filepath.Base(path))
			if filepath.Base(path) == "a.txt" {
				return errors.New("boom")
			}
			return nil
		})
		if err == nil {
			t.Fatal("Walk() expected joined error")
		}
		if len(visited) < 4 {
			t.Errorf("walk stopped early: visited %v", visited)
		}
	})
}

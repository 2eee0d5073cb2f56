package snap

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFingerprint(t *testing.T) {
	// sha256("hello world")
	const want = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "f")
		if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		got, err := Fingerprint(path)
		if err != nil {
			t.Fatalf("Fingerprint() error = %v", err)
		}
		if got != want {
			t.Errorf("Fingerprint() = %q, want %q", got, want)
		}
	})

	t.Run("reader and bytes agree", func(t *testing.T) {
		fromReader, err := FingerprintReader(bytes.NewReader([]byte("hello world")))
		if err != nil {
			t.Fatalf("FingerprintReader() error = %v", err)
		}
		if fromReader != want {
			t.Errorf("FingerprintReader() = %q, want %q", fromReader, want)
		}
		if got := FingerprintBytes([]byte("hello world")); got != want {
			t.Errorf("FingerprintBytes() = %q, want %q", got, want)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		// sha256 of no input
		const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
		path := filepath.Join(t.TempDir(), "empty")
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		got, err := Fingerprint(path)
		if err != nil {
			t.Fatalf("Fingerprint() error = %v", err)
		}
		if got != empty {
			t.Errorf("Fingerprint() = %q, want %q", got, empty)
		}
	})

	t.Run("content larger than one chunk", func(t *testing.T) {
		content := strings.Repeat("abcdefgh", 20_000) // 160 KB, spans chunks
		path := filepath.Join(t.TempDir(), "big")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		fromFile, err := Fingerprint(path)
		if err != nil {
			t.Fatalf("Fingerprint() error = %v", err)
		}
		if fromFile != FingerprintBytes([]byte(content)) {
			t.Error("streaming and one-shot fingerprints disagree")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Fingerprint(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("Fingerprint() expected error")
		}
	})
}

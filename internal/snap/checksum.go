package snap

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// checksumBufSize is the read chunk size used while fingerprinting, chosen so
// arbitrarily large files never have to fit in memory.
const checksumBufSize = 64 * 1024

// Fingerprint computes the lowercase-hex SHA-256 digest of the file at path,
// streaming it in fixed-size chunks. The digest is computed over the original
// bytes, before any compression, so content identity is independent of the
// compressor.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return FingerprintReader(f)
}

// FingerprintReader computes the lowercase-hex SHA-256 digest of everything
// readable from r.
func FingerprintReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, checksumBufSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintBytes computes the lowercase-hex SHA-256 digest of b.
func FingerprintBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

package snap

import (
	"fmt"
	"os"
)

// Path is a validated filesystem path. Path objects are created by
// FilesystemManager.Resolve, which canonicalizes the path and checks that it
// points at a regular file or directory.
type Path struct {
	absPath string
	isDir   bool
}

// NewPath creates a Path from its components. Primarily for use by
// FilesystemManager implementations.
func NewPath(absPath string, isDir bool) *Path {
	return &Path{absPath: absPath, isDir: isDir}
}

// String returns the absolute path.
func (p *Path) String() string { return p.absPath }

// IsDir reports whether the path points at a directory.
func (p *Path) IsDir() bool { return p.isDir }

// statSize returns the current on-disk size of the file at absPath.
func statSize(absPath string) (int64, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, fmt.Errorf("stating %s: %w", absPath, err)
	}
	return info.Size(), nil
}

// Package fs provides the real-filesystem implementation of the engine's
// FilesystemManager: path canonicalization and exclusion-aware traversal.
package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"snapkeep/internal/snap"
)

// OSFilesystemManager performs actual filesystem operations using the os
// package.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a filesystem manager operating on the real
// filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Resolve validates rawPath and returns a canonicalized Path. Symlinks are
// followed by EvalSymlinks; targets that are neither regular files nor
// directories are rejected.
func (m *OSFilesystemManager) Resolve(rawPath string) (*snap.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", snap.ErrPathInvalid, rawPath, err)
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: path does not exist: %s", snap.ErrPathInvalid, absPath)
		}
		return nil, fmt.Errorf("canonicalizing %s: %w", absPath, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", resolved, err)
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file or directory: %s", snap.ErrPathInvalid, resolved)
	}

	return snap.NewPath(resolved, info.IsDir()), nil
}

// Walk visits every regular file under root. Directories for which prune
// returns true are not descended into, so excluded subtrees are never read.
// A visit error for one file does not stop the walk; all such errors are
// joined and returned at the end.
func (m *OSFilesystemManager) Walk(root string, prune func(path string, isDir bool) bool, visit func(path string) error) error {
	var visitErrs []error

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && prune != nil && prune(p, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if prune != nil && prune(p, false) {
			return nil
		}
		if err := visit(p); err != nil {
			visitErrs = append(visitErrs, fmt.Errorf("%s: %w", p, err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", root, err)
	}

	return errors.Join(visitErrs...)
}

// Compile-time check that OSFilesystemManager implements snap.FilesystemManager.
var _ snap.FilesystemManager = (*OSFilesystemManager)(nil)

// Package security validates paths taken from changeset documents before any
// label file is opened for writing.
package security

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a path would resolve outside its base
// directory.
var ErrPathTraversal = errors.New("path traversal")

// ValidateRelativePath checks a slash-separated path key from a changeset
// document. It must be relative, non-empty, and must not climb out of the
// directory it is joined to. The check is purely lexical so it works for any
// FileSystem implementation.
func ValidateRelativePath(rel string) error {
	if rel == "" {
		return fmt.Errorf("%w: empty path", ErrPathTraversal)
	}
	slashed := filepath.ToSlash(rel)
	if path.IsAbs(slashed) || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return fmt.Errorf("%w: %s is absolute", ErrPathTraversal, rel)
	}
	clean := path.Clean(slashed)
	if clean == "." {
		return fmt.Errorf("%w: %s names the base directory", ErrPathTraversal, rel)
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %s attempts to escape the base directory", ErrPathTraversal, rel)
	}
	return nil
}

// ValidatePathWithinDirectory checks that filePath stays inside safeDir on
// the real filesystem. Symlinks are resolved on both sides, so a link inside
// the label tree pointing elsewhere is rejected even when the lexical path
// looks fine.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	target, err := resolve(filePath)
	if err != nil {
		return err
	}
	base, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", safeDir, err)
	}
	if base, err = filepath.EvalSymlinks(base); err != nil {
		return fmt.Errorf("resolve %s: %w", safeDir, err)
	}

	rel, err := filepath.Rel(base, target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPathTraversal, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s attempts to escape %s", ErrPathTraversal, filePath, safeDir)
	}
	return nil
}

// resolve returns the absolute, symlink-free form of p. Files that do not
// exist yet are resolved through their nearest existing ancestor, so
// /tree/evil-link/new.json is still caught.
func resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	var missing []string
	for dir := abs; ; dir = filepath.Dir(dir) {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{real}, missing...)...), nil
		}
		if filepath.Dir(dir) == dir {
			return abs, nil
		}
		missing = append([]string{filepath.Base(dir)}, missing...)
	}
}

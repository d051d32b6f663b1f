package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type syncer interface {
	Sync() error
}

// WriteFileAtomic replaces name with data so that readers observe either the
// old contents or the new contents, never a partial write. The data is written
// to a sibling temp file which is renamed over name; the temp file is removed
// on every failure path.
func WriteFileAtomic(fsys FileSystem, name string, data []byte) (err error) {
	dir := filepath.Dir(name)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(name), uuid.NewString()[:8]))

	w, err := fsys.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmp)
		}
	}()

	if _, err = w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if s, ok := w.(syncer); ok {
		if err = s.Sync(); err != nil {
			_ = w.Close()
			return fmt.Errorf("sync temp file: %w", err)
		}
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Preserve the mode of the file being replaced where there is one.
	if info, statErr := fsys.Stat(name); statErr == nil {
		if f, ok := fsys.(OSFileSystem); ok {
			_ = f.chmod(tmp, info.Mode().Perm())
		}
	}

	if err = fsys.Rename(tmp, name); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (OSFileSystem) chmod(name string, mode os.FileMode) error {
	return os.Chmod(name, mode)
}

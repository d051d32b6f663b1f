// Package fsutil provides the filesystem seam used by every label-tree walk.
//
// Tools run against OSFileSystem; tests run the same code against
// MemoryFileSystem so whole label trees can be built in memory.
package fsutil

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileSystem abstracts the filesystem operations needed by label stores,
// changeset builders and appliers.
type FileSystem interface {
	// ReadFile reads the named file and returns its contents.
	ReadFile(name string) ([]byte, error)

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(name string, data []byte, perm os.FileMode) error

	// Create creates or truncates the named file.
	Create(name string) (io.WriteCloser, error)

	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	Remove(name string) error

	// Rename moves oldname to newname, replacing newname if it exists.
	Rename(oldname, newname string) error

	// Glob returns the names of all files matching pattern, sorted.
	Glob(pattern string) ([]string, error)
}

// OSFileSystem implements FileSystem using the os package.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// Create returns the *os.File itself so callers can Sync before closing.
func (OSFileSystem) Create(name string) (io.WriteCloser, error) { return os.Create(name) }

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (OSFileSystem) Remove(name string) error { return os.Remove(name) }

func (OSFileSystem) Rename(oldname, newname string) error { return os.Rename(oldname, newname) }

func (OSFileSystem) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Op names a MemoryFileSystem operation for fault injection.
type Op string

const (
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpRename Op = "rename"
)

// MemoryFileSystem is an in-memory FileSystem for tests. Names are cleaned
// before use and parent directories are implied by every write.
type MemoryFileSystem struct {
	mu      sync.RWMutex
	entries map[string]*entry
	faults  map[fault]error
}

type entry struct {
	data []byte
	mode os.FileMode
	dir  bool
}

type fault struct {
	op   Op
	name string
}

// NewMemoryFileSystem creates an empty in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		entries: make(map[string]*entry),
		faults:  make(map[fault]error),
	}
}

// Fail makes op on name return err until cleared with a nil err. For
// OpRename the name is the destination.
func (m *MemoryFileSystem) Fail(op Op, name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := fault{op, filepath.Clean(name)}
	if err == nil {
		delete(m.faults, k)
		return
	}
	m.faults[k] = err
}

// Has reports whether name is a file or directory.
func (m *MemoryFileSystem) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[filepath.Clean(name)]
	return ok
}

// Files returns every file name, sorted.
func (m *MemoryFileSystem) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for name, e := range m.entries {
		if !e.dir {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = filepath.Clean(name)
	if err := m.faults[fault{OpRead, name}]; err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	e, ok := m.entries[name]
	if !ok || e.dir {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return bytes.Clone(e.data), nil
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putLocked(filepath.Clean(name), bytes.Clone(data), perm)
}

// Create truncates name immediately; the written contents become visible
// on Close.
func (m *MemoryFileSystem) Create(name string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = filepath.Clean(name)
	if err := m.putLocked(name, []byte{}, 0644); err != nil {
		return nil, err
	}
	return &memWriter{fs: m, name: name}, nil
}

func (m *MemoryFileSystem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = filepath.Clean(name)
	e, ok := m.entries[name]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return memInfo{name: filepath.Base(name), e: e}, nil
}

func (m *MemoryFileSystem) MkdirAll(dir string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir = filepath.Clean(dir)
	if e, ok := m.entries[dir]; ok && !e.dir {
		return &fs.PathError{Op: "mkdir", Path: dir, Err: fs.ErrExist}
	}
	m.entries[dir] = &entry{dir: true, mode: fs.ModeDir | perm}
	m.addParentsLocked(dir)
	return nil
}

func (m *MemoryFileSystem) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = filepath.Clean(name)
	if _, ok := m.entries[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(m.entries, name)
	return nil
}

func (m *MemoryFileSystem) Rename(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldname, newname = filepath.Clean(oldname), filepath.Clean(newname)
	if err := m.faults[fault{OpRename, newname}]; err != nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: err}
	}
	e, ok := m.entries[oldname]
	if !ok || e.dir {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: fs.ErrNotExist}
	}
	delete(m.entries, oldname)
	m.entries[newname] = e
	m.addParentsLocked(newname)
	return nil
}

// Glob matches file names with path.Match semantics, so '*' never crosses
// a separator. Directories never match.
func (m *MemoryFileSystem) Glob(pattern string) ([]string, error) {
	pattern = filepath.ToSlash(filepath.Clean(pattern))
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}

	var matches []string
	for _, name := range m.Files() {
		if ok, _ := path.Match(pattern, filepath.ToSlash(name)); ok {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

func (m *MemoryFileSystem) putLocked(name string, data []byte, perm os.FileMode) error {
	if err := m.faults[fault{OpWrite, name}]; err != nil {
		return &fs.PathError{Op: "write", Path: name, Err: err}
	}
	if e, ok := m.entries[name]; ok && e.dir {
		return &fs.PathError{Op: "write", Path: name, Err: fs.ErrExist}
	}
	m.entries[name] = &entry{data: data, mode: perm}
	m.addParentsLocked(name)
	return nil
}

func (m *MemoryFileSystem) addParentsLocked(name string) {
	for p := filepath.Dir(name); p != "." && p != "/" && p != name; p = filepath.Dir(p) {
		if _, ok := m.entries[p]; !ok {
			m.entries[p] = &entry{dir: true, mode: fs.ModeDir | 0755}
		}
	}
}

type memWriter struct {
	fs   *MemoryFileSystem
	name string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	mode := os.FileMode(0644)
	if e, ok := w.fs.entries[w.name]; ok {
		mode = e.mode
	}
	return w.fs.putLocked(w.name, w.buf.Bytes(), mode)
}

type memInfo struct {
	name string
	e    *entry
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return int64(len(i.e.data)) }
func (i memInfo) Mode() os.FileMode  { return i.e.mode }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return i.e.dir }
func (i memInfo) Sys() any           { return nil }

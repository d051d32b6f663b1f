package label

import (
	"fmt"
	"sync"

	"github.com/banshee-data/tlabel/internal/fsutil"
)

// Handle identifies an object of a Store for as long as the store is open.
// Unlike an index it does not shift when other objects are deleted.
type Handle uint64

// Light is a live traffic light as seen by an editor.
type Light struct {
	Handle      Handle
	Index       int
	Object      Object
	DepthMetric float64
}

// Store owns the object list of one label file.
type Store struct {
	mu       sync.Mutex
	fsys     fsutil.FileSystem
	path     string
	file     *File
	handles  []Handle
	depths   map[Handle]float64
	modified bool
}

// Open loads path and repairs every live traffic light. depths maps
// load-time object indices to an external depth metric and may be nil.
func Open(fsys fsutil.FileSystem, path string, depths map[int]float64) (*Store, error) {
	f, err := ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	s := &Store{
		fsys:    fsys,
		path:    path,
		file:    f,
		handles: make([]Handle, len(f.Objects)),
		depths:  make(map[Handle]float64),
	}
	for i := range f.Objects {
		h := Handle(i + 1)
		s.handles[i] = h
		if d, ok := depths[i]; ok {
			s.depths[h] = d
		}
		Repair(&f.Objects[i])
	}
	return s, nil
}

// Path returns the file the store was opened against.
func (s *Store) Path() string {
	return s.path
}

// Len returns the current number of objects, live or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.file.Objects)
}

// Modified reports whether a mutation happened since the last Persist.
func (s *Store) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

// Lights returns copies of the live traffic lights in file order.
func (s *Store) Lights() []Light {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lights []Light
	for i, o := range s.file.Objects {
		if !o.IsLive() {
			continue
		}
		h := s.handles[i]
		lights = append(lights, Light{
			Handle:      h,
			Index:       i,
			Object:      o.Clone(),
			DepthMetric: s.depths[h],
		})
	}
	return lights
}

// Handle resolves a current index.
func (s *Store) Handle(index int) (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.handles) {
		return 0, false
	}
	return s.handles[index], true
}

// Index returns the current position of h.
func (s *Store) Index(h Handle) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(h)
	return i, i >= 0
}

// Object returns a copy of the object behind h.
func (s *Store) Object(h Handle) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(h)
	if i < 0 {
		return Object{}, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return s.file.Objects[i].Clone(), nil
}

// SetAttribute stores v under key on the live traffic light behind h.
func (s *Store) SetAttribute(h Handle, key string, v Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.attributesLocked(h)
	if err != nil {
		return err
	}
	slot, ok := a.Slot(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAttribute, key)
	}
	if err := ValidateValue(key, v); err != nil {
		return fmt.Errorf("%w: %s=%s", err, key, v.raw)
	}
	*slot = cloneField(v)
	s.modified = true
	return nil
}

// Toggle flips a yes/no attribute: "no" becomes "yes" and anything else,
// including an unset slot, becomes "no".
func (s *Store) Toggle(h Handle, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.attributesLocked(h)
	if err != nil {
		return err
	}
	switch key {
	case KeyRelevant, KeyLaneRelevant, KeyVisible:
	default:
		return fmt.Errorf("%w: %q is not a yes/no attribute", ErrUnknownAttribute, key)
	}
	slot, _ := a.Slot(key)
	if a.Value(key) == "no" {
		*slot = Text("yes")
	} else {
		*slot = Text("no")
	}
	s.modified = true
	return nil
}

// Delete removes the object behind h. Objects after it move up one index;
// their handles stay valid.
func (s *Store) Delete(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(h)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	s.file.Objects = append(s.file.Objects[:i], s.file.Objects[i+1:]...)
	s.handles = append(s.handles[:i], s.handles[i+1:]...)
	delete(s.depths, h)
	s.modified = true
	return nil
}

// Persist atomically replaces the file with the current snapshot.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := WriteFile(s.fsys, s.path, s.file); err != nil {
		return err
	}
	s.modified = false
	return nil
}

func (s *Store) indexLocked(h Handle) int {
	for i, x := range s.handles {
		if x == h {
			return i
		}
	}
	return -1
}

func (s *Store) attributesLocked(h Handle) (*Attributes, error) {
	i := s.indexLocked(h)
	if i < 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	o := &s.file.Objects[i]
	if !o.IsLive() {
		return nil, fmt.Errorf("%w: object %d", ErrNotTrafficLight, i)
	}
	if o.Attributes == nil {
		o.Attributes = &Attributes{}
	}
	return o.Attributes, nil
}

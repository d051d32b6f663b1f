package changeset

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is returned when an update or create addresses a
	// position the object list does not have.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrMissingOriginal is returned when an updated file has no original.
	ErrMissingOriginal = errors.New("original label file missing")
	// ErrFileNotFound is returned when a changeset targets a missing file.
	ErrFileNotFound = errors.New("target label file not found")
	// ErrDuplicateTarget is returned when two changeset keys name one file.
	ErrDuplicateTarget = errors.New("duplicate changeset target")
	// ErrNoFiles is returned when discovery finds no label files.
	ErrNoFiles = errors.New("no label files found")
)

// FileError is a failure confined to one file of a tree operation.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSize      = errors.New("invalid size")
	ErrUnknownAlgorithm = errors.New("unknown fingerprint algorithm")
	ErrDuplicatePath    = errors.New("path already indexed")
)

// PathNotFoundError is returned when the index root does not exist.
type PathNotFoundError struct {
	Path string
	Err  error
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s", e.Path)
}

func (e *PathNotFoundError) Unwrap() error { return e.Err }

// NotADirectoryError is returned when the index root is not a directory.
type NotADirectoryError struct {
	Path string
}

func (e *NotADirectoryError) Error() string {
	return fmt.Sprintf("not a directory: %s", e.Path)
}

// AccessError records an entry skipped during traversal. It is reported as
// a warning and never aborts a walk.
type AccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// WriteError is returned when an export target cannot be created or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

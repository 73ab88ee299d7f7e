package tagstore

import (
	"errors"
	"io/fs"
)

// Error taxonomy shared by the store, sync, indexer and library packages.
var (
	ErrNotFound       = errors.New("not found")
	ErrPermission     = errors.New("permission denied")
	ErrCorrupt        = errors.New("corrupt store line")
	ErrExists         = errors.New("already exists")
	ErrInvalidName    = errors.New("invalid name")
	ErrCaptioning     = errors.New("captioning failed")
	ErrSyncDivergence = errors.New("root store out of sync")
)

// PathError records an error and the operation and path that caused it.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Is classifies the underlying os error into the package taxonomy.
func (e *PathError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return errors.Is(e.Err, fs.ErrNotExist)
	case ErrPermission:
		return errors.Is(e.Err, fs.ErrPermission)
	case ErrExists:
		return errors.Is(e.Err, fs.ErrExist)
	}
	return false
}

// WrapPath returns nil for a nil err, otherwise a *PathError.
func WrapPath(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &PathError{Op: op, Path: path, Err: err}
}

package rftest

import (
	"errors"
	"fmt"
)

// Storage bootstrap errors. Backends wrap these so the controller can tell
// the recoverable cases apart.
var (
	// ErrNoFreePages indicates the storage has no empty page left
	ErrNoFreePages = errors.New("storage has no free pages")

	// ErrVersionMismatch indicates the storage was written by a different format version
	ErrVersionMismatch = errors.New("storage format version mismatch")
)

// Controller and configuration errors
var (
	// ErrInvalidChannel indicates a channel outside 1..14
	ErrInvalidChannel = errors.New("channel must be between 1 and 14")

	// ErrInvalidMode indicates an unknown emission mode
	ErrInvalidMode = errors.New("unknown emission mode")

	// ErrInvalidDwell indicates a non-positive dwell time
	ErrInvalidDwell = errors.New("dwell time must be positive")

	// ErrInvalidTxPower indicates a tx power index outside the accepted range
	ErrInvalidTxPower = errors.New("max tx power index must be between 8 and 84")

	// ErrInvalidFrame indicates an empty flood frame
	ErrInvalidFrame = errors.New("flood frame must not be empty")

	// ErrMissingCollaborator indicates a required collaborator was not supplied
	ErrMissingCollaborator = errors.New("missing collaborator")

	// ErrNotInitialized indicates Run was called before Initialize succeeded
	ErrNotInitialized = errors.New("controller not initialized")

	// ErrUnsupported is returned by backends for settings the hardware cannot honor
	ErrUnsupported = errors.New("not supported by this radio")
)

// StorageErrorKind classifies a storage bootstrap failure
type StorageErrorKind uint8

const (
	StorageOther StorageErrorKind = iota
	StorageNoFreePages
	StorageVersionMismatch
)

func (k StorageErrorKind) String() string {
	switch k {
	case StorageNoFreePages:
		return "NoFreePages"
	case StorageVersionMismatch:
		return "VersionMismatch"
	default:
		return "Other"
	}
}

// Recoverable reports whether an erase and a single retry may fix the failure
func (k StorageErrorKind) Recoverable() bool {
	return k == StorageNoFreePages || k == StorageVersionMismatch
}

// ClassifyStorageError maps a bootstrap error onto its kind
func ClassifyStorageError(err error) StorageErrorKind {
	switch {
	case errors.Is(err, ErrNoFreePages):
		return StorageNoFreePages
	case errors.Is(err, ErrVersionMismatch):
		return StorageVersionMismatch
	default:
		return StorageOther
	}
}

// StorageError is a fatal storage bootstrap failure
type StorageError struct {
	Kind StorageErrorKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// RadioConfigError is a fatal failure of any radio call after bootstrap
type RadioConfigError struct {
	Op  string
	Err error
}

func (e *RadioConfigError) Error() string {
	return fmt.Sprintf("radio %s failed: %v", e.Op, e.Err)
}

func (e *RadioConfigError) Unwrap() error {
	return e.Err
}

func radioError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RadioConfigError{Op: op, Err: err}
}

package nvs

import (
	"errors"
	"fmt"

	"github.com/herlein/gocw/pkg/rftest"
)

var (
	// ErrNoFreePages indicates every page holds at least one entry
	ErrNoFreePages = fmt.Errorf("nvs: %w", rftest.ErrNoFreePages)

	// ErrNewVersionFound indicates the store was written by another format version
	ErrNewVersionFound = fmt.Errorf("nvs: new version found: %w", rftest.ErrVersionMismatch)

	// ErrNotInitialized indicates an operation before Init
	ErrNotInitialized = errors.New("nvs: not initialized")

	// ErrNotFound indicates a missing key
	ErrNotFound = errors.New("nvs: key not found")

	// ErrNotEnoughSpace indicates a write would consume the reserved free page
	ErrNotEnoughSpace = errors.New("nvs: not enough space")

	// ErrInvalidKey indicates an empty or oversized namespace or key
	ErrInvalidKey = errors.New("nvs: invalid key")

	// ErrCorrupt indicates the store file cannot be decoded
	ErrCorrupt = errors.New("nvs: store is corrupt")
)

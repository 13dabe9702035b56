// Package nvs is a file-backed, page-organised key/value store. It mirrors
// the bootstrap contract of flash NVS partitions: Init reports a format
// version change or a store without a free page, and Erase recovers both.
package nvs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

const (
	// FormatVersion is written into every store header
	FormatVersion = 2

	DefaultPages          = 4
	DefaultEntriesPerPage = 126

	// MaxKeyLen bounds namespace and key names
	MaxKeyLen = 15
)

// Options describes the partition geometry
type Options struct {
	Pages          int
	EntriesPerPage int
}

// DefaultOptions returns the default geometry
func DefaultOptions() Options {
	return Options{
		Pages:          DefaultPages,
		EntriesPerPage: DefaultEntriesPerPage,
	}
}

type header struct {
	Version        uint16 `cbor:"1,keyasint"`
	Pages          int    `cbor:"2,keyasint"`
	EntriesPerPage int    `cbor:"3,keyasint"`
}

type record struct {
	Namespace string `cbor:"1,keyasint"`
	Key       string `cbor:"2,keyasint"`
	Value     []byte `cbor:"3,keyasint"`
}

type image struct {
	Header  header   `cbor:"1,keyasint"`
	Records []record `cbor:"2,keyasint"`
}

// Store is a persistent namespaced key/value store
type Store struct {
	path string
	opts Options

	mu      sync.Mutex
	records []record
	ready   bool
}

// Open returns a store backed by path. Nothing is read until Init.
func Open(path string, opts Options) *Store {
	if opts.Pages < 2 {
		opts.Pages = DefaultPages
	}
	if opts.EntriesPerPage <= 0 {
		opts.EntriesPerPage = DefaultEntriesPerPage
	}
	return &Store{path: path, opts: opts}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Init loads the store, creating it when the file does not exist
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = false

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.records = nil
		if err := s.flush(); err != nil {
			return err
		}
		s.ready = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}

	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if img.Header.Version != FormatVersion {
		return fmt.Errorf("%w: store version %d, want %d", ErrNewVersionFound, img.Header.Version, FormatVersion)
	}

	// Records are laid out page by page; the last page must stay empty
	if usedPages(len(img.Records), s.opts.EntriesPerPage) >= s.opts.Pages {
		return fmt.Errorf("%w: %d entries in %d pages", ErrNoFreePages, len(img.Records), s.opts.Pages)
	}

	s.records = img.Records
	s.ready = true
	return nil
}

// Erase replaces the store with an empty one of the current version
func (s *Store) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.ready = false
	if err := s.flush(); err != nil {
		return err
	}
	return nil
}

// Set stores value under namespace/key
func (s *Store) Set(namespace, key string, value []byte) error {
	if err := validKey(namespace, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotInitialized
	}

	buf := make([]byte, len(value))
	copy(buf, value)

	if i := s.find(namespace, key); i >= 0 {
		s.records[i].Value = buf
		return s.flush()
	}

	if usedPages(len(s.records)+1, s.opts.EntriesPerPage) >= s.opts.Pages {
		return ErrNotEnoughSpace
	}

	s.records = append(s.records, record{Namespace: namespace, Key: key, Value: buf})
	return s.flush()
}

// Get returns the value stored under namespace/key
func (s *Store) Get(namespace, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil, ErrNotInitialized
	}

	i := s.find(namespace, key)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, namespace, key)
	}

	out := make([]byte, len(s.records[i].Value))
	copy(out, s.records[i].Value)
	return out, nil
}

// Delete removes namespace/key; a missing key is not an error
func (s *Store) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotInitialized
	}

	i := s.find(namespace, key)
	if i < 0 {
		return nil
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	return s.flush()
}

// Keys lists the keys of a namespace in sorted order
func (s *Store) Keys(namespace string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil, ErrNotInitialized
	}

	var keys []string
	for _, r := range s.records {
		if r.Namespace == namespace {
			keys = append(keys, r.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Used returns the number of stored entries
func (s *Store) Used() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) find(namespace, key string) int {
	for i, r := range s.records {
		if r.Namespace == namespace && r.Key == key {
			return i
		}
	}
	return -1
}

// flush writes the store through a temp file and rename
func (s *Store) flush() error {
	img := image{
		Header: header{
			Version:        FormatVersion,
			Pages:          s.opts.Pages,
			EntriesPerPage: s.opts.EntriesPerPage,
		},
		Records: s.records,
	}

	data, err := cbor.Marshal(img)
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	return writeFile(s.path, data)
}

func writeFile(path string, data []byte) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(directory, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

func usedPages(entries, perPage int) int {
	return (entries + perPage - 1) / perPage
}

func validKey(namespace, key string) error {
	if namespace == "" || key == "" || len(namespace) > MaxKeyLen || len(key) > MaxKeyLen {
		return fmt.Errorf("%w: %q/%q", ErrInvalidKey, namespace, key)
	}
	return nil
}

// SetValue CBOR-encodes v and stores it under namespace/key
func (s *Store) SetValue(namespace, key string, v interface{}) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", namespace, key, err)
	}
	return s.Set(namespace, key, data)
}

// GetValue decodes the value stored under namespace/key into v
func (s *Store) GetValue(namespace, key string, v interface{}) error {
	data, err := s.Get(namespace, key)
	if err != nil {
		return err
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", namespace, key, err)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/jrsteele09/go-admin-session/internal/errors"
	"gopkg.in/yaml.v3"
)

var _ Repo = (*FileRepo)(nil)

// errUnreadable marks a storage file that exists but does not parse.
var errUnreadable = fmt.Errorf("unreadable storage file: %w", apperrors.ErrStorage)

// FileRepo persists the record as a YAML document readable only by the owner.
// Other top-level keys in the document are preserved.
type FileRepo struct {
	path string
	mu   sync.Mutex
}

func NewFileRepo(path string) (*FileRepo, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	return &FileRepo{path: filepath.Clean(path)}, nil
}

// validatePath validates that the storage path is safe
func validatePath(path string) error {
	cleanPath := filepath.Clean(path)
	if strings.Contains(path, "..") {
		return fmt.Errorf("invalid storage path: path traversal not allowed: %w", apperrors.ErrStorage)
	}
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("invalid storage path: must be absolute path: %w", apperrors.ErrStorage)
	}
	return nil
}

func (f *FileRepo) Load(_ context.Context) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	return decode(doc)
}

func (f *FileRepo) Save(_ context.Context, record Record) error {
	if err := validate(record); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readOrReset()
	if err != nil {
		return err
	}
	for k, v := range encode(record) {
		doc[k] = v
	}
	return f.write(doc)
}

func (f *FileRepo) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readOrReset()
	if err != nil {
		return err
	}
	for _, k := range Keys {
		delete(doc, k)
	}
	if len(doc) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove storage file: %w", err)
		}
		return nil
	}
	return f.write(doc)
}

func (f *FileRepo) Close() error { return nil }

func (f *FileRepo) read() (map[string]string, error) {
	doc := make(map[string]string)

	data, err := os.ReadFile(f.path) //nolint:gosec // Path is validated by validatePath
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse storage file: %w: %w", errUnreadable, err)
	}
	if doc == nil {
		doc = make(map[string]string)
	}
	return doc, nil
}

// readOrReset treats an unparseable file as empty so that the next write
// replaces it. Read errors are still returned.
func (f *FileRepo) readOrReset() (map[string]string, error) {
	doc, err := f.read()
	if errors.Is(err, errUnreadable) {
		return make(map[string]string), nil
	}
	return doc, err
}

// write replaces the file atomically so a crash never leaves half a record behind.
func (f *FileRepo) write(doc map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal storage file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp storage file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod storage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close storage file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}

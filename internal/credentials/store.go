package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// Store persists the refresh token between process runs.
type Store interface {
	// Load returns the stored refresh token, or "" when nothing has been stored yet.
	Load(ctx context.Context) (string, error)
	// Save replaces the stored refresh token.
	Save(ctx context.Context, refreshToken string) error
}

// FileStore keeps the raw refresh token in a single file.
type FileStore struct {
	path string
}

// NewFileStore returns a [FileStore] backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the token file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the token file and trims surrounding whitespace. A missing file yields "".
func (f *FileStore) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file %s: %w", f.path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save overwrites the token file through a temp file and rename so readers never see a partial token.
func (f *FileStore) Save(ctx context.Context, refreshToken string) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	if err := atomic.WriteFile(f.path, strings.NewReader(refreshToken)); err != nil {
		return fmt.Errorf("failed to write token file %s: %w", f.path, err)
	}
	return nil
}

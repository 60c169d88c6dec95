package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/gradeloom-cli/internal/utils"
)

// Blob key prefixes.
const (
	UploadsPrefix = "uploads"
	ReportsPrefix = "reports"
)

// FSStore keeps blobs as files below a root directory. Keys are slash
// separated and relative to the root.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, errors.New("blob store root is required")
	}
	if err := utils.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Root is the directory blobs are kept under.
func (s *FSStore) Root() string { return s.root }

// Key joins parts into a blob key.
func Key(parts ...string) string { return path.Join(parts...) }

// Path resolves key to a file path. Keys that escape the root are rejected.
func (s *FSStore) Path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put writes data under key, replacing any previous content.
func (s *FSStore) Put(key string, data []byte) error {
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(p, data)
}

// PutFile copies the file at src under key.
func (s *FSStore) PutFile(key, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	b, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	return s.Put(key, b)
}

func (s *FSStore) Get(key string) ([]byte, error) {
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, ErrNotFound)
	}
	return b, err
}

// Delete removes key. Missing blobs are not an error.
func (s *FSStore) Delete(key string) error {
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

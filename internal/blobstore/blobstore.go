package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrStorage marks blob persistence failures. Handlers map it to a
// server-error response.
var ErrStorage = errors.New("blob storage failure")

// Store is a write-once photo store backed by a local directory. Blobs are
// keyed by the SHA-256 of their content plus the original extension, so
// two uploads sharing a filename never overwrite each other and identical
// content deduplicates naturally.
type Store struct {
	dir string
}

// NewStore creates the backing directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrStorage, dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the blob and returns its content-derived key. The original
// filename only contributes the extension; callers keep it as metadata if
// they need it for display.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.dir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", ErrStorage, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	hasher := sha256.New()
	if _, err := io.Copy(tmp, io.TeeReader(r, hasher)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: write blob: %v", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close blob: %v", ErrStorage, err)
	}

	key := hex.EncodeToString(hasher.Sum(nil)) + sanitizeExt(filename)
	if err := os.Rename(tmpName, filepath.Join(s.dir, key)); err != nil {
		return "", fmt.Errorf("%w: finalize blob %s: %v", ErrStorage, key, err)
	}
	return key, nil
}

// Open returns a reader over a stored blob.
func (s *Store) Open(key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(key)))
	if err != nil {
		return nil, fmt.Errorf("%w: open blob %s: %v", ErrStorage, key, err)
	}
	return f, nil
}

// Path returns the on-disk location of a stored blob.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key))
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	switch ext {
	case ".png", ".jpg", ".jpeg":
		return ext
	default:
		return ""
	}
}

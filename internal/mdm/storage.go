package mdm

import (
	"io"
	"os"
	"path/filepath"
)

// Storage is where a batch run reads content files and writes the marked
// result back. Paths are forward-slash, relative to the storage root.
type Storage interface {
	// Put replaces path with the content of r. A reader of path sees
	// either the old content or the new, never a half-marked file.
	Put(path string, r io.Reader) error
	// Get returns the full content of path.
	Get(path string) ([]byte, error)
}

// LocalStorage rewrites content files in place under a root directory.
type LocalStorage struct {
	rootDir string
}

// NewLocalStorage returns a LocalStorage rooted at dir.
func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{rootDir: dir}
}

func (s *LocalStorage) abs(path string) string {
	return filepath.Join(s.rootDir, filepath.FromSlash(path))
}

// Put writes r to a temp file beside path and renames it over path, so a
// failed or cancelled batch leaves the original file intact. A rewritten
// file keeps its permission bits.
func (s *LocalStorage) Put(path string, r io.Reader) error {
	fullPath := s.abs(path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	tmpFile, err := os.CreateTemp(dir, ".mdm-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpName) // no-op if already renamed
	}()
	if _, err := io.Copy(tmpFile, r); err != nil {
		return err
	}
	if fi, err := os.Stat(fullPath); err == nil {
		if err := tmpFile.Chmod(fi.Mode().Perm()); err != nil {
			return err
		}
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, fullPath)
}

// Get returns the full content of path.
func (s *LocalStorage) Get(path string) ([]byte, error) {
	return os.ReadFile(s.abs(path)) //nolint:gosec // G304: path is chosen by the operator
}

package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	errpkg "github.com/veranemoloko/media-downloader/internal/errors"
)

// FileStorage provides methods to manage artifacts in the download directory.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a new FileStorage instance with the given directory.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// Dir returns the managed directory.
func (s *FileStorage) Dir() string {
	return s.dir
}

// Path joins a validated filename onto the storage directory.
// Names with separators, parent references or a leading dot are rejected.
func (s *FileStorage) Path(filename string) (string, error) {
	if filename == "" ||
		strings.ContainsAny(filename, `/\`) ||
		strings.HasPrefix(filename, ".") ||
		filename != filepath.Base(filename) {
		return "", fmt.Errorf("%q: %w", filename, errpkg.ErrInvalidFilename)
	}
	return filepath.Join(s.dir, filename), nil
}

// FileExists checks whether a regular file exists in the storage directory.
func (s *FileStorage) FileExists(filename string) bool {
	path, err := s.Path(filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// OpenFile opens an artifact for reading.
// Missing files yield ErrFileNotFound and unreadable ones ErrFileNotAccessible.
func (s *FileStorage) OpenFile(filename string) (*os.File, fs.FileInfo, error) {
	path, err := s.Path(filename)
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s: %w", filename, errpkg.ErrFileNotFound)
		}
		return nil, nil, fmt.Errorf("stat %s: %w", filename, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("%s: %w", filename, errpkg.ErrFileNotFound)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, nil, fmt.Errorf("%s: %w", filename, errpkg.ErrFileNotAccessible)
		}
		return nil, nil, fmt.Errorf("open %s: %w", filename, err)
	}
	return f, info, nil
}

// RemoveFile deletes an artifact. Removing a missing file is not an error.
func (s *FileStorage) RemoveFile(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", filename, err)
	}
	return nil
}

// ListFiles returns the visible regular files in the directory, sorted by name.
func (s *FileStorage) ListFiles() ([]fs.FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}

	files := make([]fs.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, info)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })
	return files, nil
}

// DiskUsage returns the combined size in bytes of the listed files.
func (s *FileStorage) DiskUsage() (int64, error) {
	files, err := s.ListFiles()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, f := range files {
		total += f.Size()
	}
	return total, nil
}

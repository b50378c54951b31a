package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/veranemoloko/media-downloader/internal/domain"
)

// JSONStore keeps the metadata as one JSON document mapping filename to record.
// Every call re-reads the document, so the file is the only source of truth.
type JSONStore struct {
	mu   sync.Mutex
	file string
}

// NewJSONStore creates the store and writes an empty document if none exists.
func NewJSONStore(filePath string) (*JSONStore, error) {
	s := &JSONStore{file: filepath.Clean(filePath)}

	if isFileNotExist(s.file) {
		if err := s.persist(map[string]domain.FileRecord{}); err != nil {
			return nil, fmt.Errorf("failed to create metadata file: %w", err)
		}
		slog.Info("metadata file created", "file_path", s.file)
	}
	return s, nil
}

func isFileNotExist(filePath string) bool {
	_, err := os.Stat(filePath)
	return errors.Is(err, fs.ErrNotExist)
}

// load reads the document. An absent, empty or corrupt file yields an empty mapping.
func (s *JSONStore) load() (map[string]domain.FileRecord, error) {
	records := make(map[string]domain.FileRecord)

	data, err := os.ReadFile(s.file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return records, nil
		}
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	if len(data) == 0 {
		return records, nil
	}

	if err := json.Unmarshal(data, &records); err != nil {
		slog.Warn("metadata file is corrupt, starting from an empty mapping", "file_path", s.file, "error", err)
		return make(map[string]domain.FileRecord), nil
	}

	for name, rec := range records {
		rec.Filename = name
		records[name] = rec
	}
	return records, nil
}

func (s *JSONStore) persist(records map[string]domain.FileRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tempFile := s.file + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, s.file); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	slog.Debug("metadata saved to file", "records", len(records), "file_path", s.file)
	return nil
}

// All returns every record.
func (s *JSONStore) All(ctx context.Context) (map[string]domain.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns the record for filename.
func (s *JSONStore) Get(ctx context.Context, filename string) (domain.FileRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.FileRecord{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return domain.FileRecord{}, false, err
	}
	rec, ok := records[filename]
	return rec, ok, nil
}

// Put inserts or replaces a record.
func (s *JSONStore) Put(ctx context.Context, record domain.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[record.Filename] = record
	return s.persist(records)
}

// Delete removes the named records. Unknown names are ignored.
func (s *JSONStore) Delete(ctx context.Context, filenames ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(filenames) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	for _, name := range filenames {
		delete(records, name)
	}
	return s.persist(records)
}

// Close is a no-op; the document is written on every change.
func (s *JSONStore) Close() error {
	return nil
}

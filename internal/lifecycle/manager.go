package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/veranemoloko/media-downloader/internal/domain"
	"github.com/veranemoloko/media-downloader/internal/metrics"
	"github.com/veranemoloko/media-downloader/internal/storage"
)

// Manager owns the FileRecords of produced artifacts.
// The in-memory view is always re-read from the store.
type Manager struct {
	store  storage.MetadataStore
	files  *storage.FileStorage
	logger *slog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewManager creates a Manager over store and the artifact directory.
func NewManager(store storage.MetadataStore, files *storage.FileStorage, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		files:  files,
		logger: logger,
		now:    time.Now,
	}
}

// Register records a freshly produced artifact as not yet delivered.
func (m *Manager) Register(ctx context.Context, filename, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := domain.FileRecord{
		Filename:  filename,
		TaskID:    taskID,
		CreatedAt: m.now(),
	}
	if err := m.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("register %s: %w", filename, err)
	}

	m.logger.Info("file registered", "filename", filename, "task_id", taskID)
	return nil
}

// MarkDelivered flags filename as fetched by a client. Unknown names are ignored.
func (m *Manager) MarkDelivered(ctx context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok, err := m.store.Get(ctx, filename)
	if err != nil {
		return fmt.Errorf("load record %s: %w", filename, err)
	}
	if !ok {
		m.logger.Debug("delivery of unregistered file", "filename", filename)
		return nil
	}

	now := m.now()
	rec.Delivered = true
	rec.DeliveryCount++
	rec.LastDeliveredAt = &now

	if err := m.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("mark delivered %s: %w", filename, err)
	}

	size := "unknown size"
	if f, info, err := m.files.OpenFile(filename); err == nil {
		f.Close()
		size = humanize.Bytes(uint64(info.Size()))
	}
	m.logger.Info("file delivered",
		"filename", filename,
		"delivery_count", rec.DeliveryCount,
		"size", size,
	)
	return nil
}

// CollectGarbage drops records whose file is gone, and deletes delivered
// artifacts older than maxAge together with their record.
// Undelivered artifacts are kept regardless of age.
func (m *Manager) CollectGarbage(ctx context.Context, maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}

	now := m.now()
	var drop []string

	for name, rec := range records {
		if !m.files.FileExists(name) {
			m.logger.Debug("dropping record of missing file", "filename", name)
			drop = append(drop, name)
			continue
		}

		if !rec.Expired(now, maxAge) {
			continue
		}

		if err := m.files.RemoveFile(name); err != nil {
			m.logger.Error("failed to remove expired file", "filename", name, "error", err)
			continue
		}
		m.logger.Info("expired file removed",
			"filename", name,
			"age", humanize.RelTime(rec.CreatedAt, now, "old", "from now"),
		)
		drop = append(drop, name)
	}

	if len(drop) == 0 {
		return 0, nil
	}

	if err := m.store.Delete(ctx, drop...); err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	metrics.FilesCollected.Add(float64(len(drop)))

	m.logger.Info("garbage collection finished", "removed", len(drop), "kept", len(records)-len(drop))
	return len(drop), nil
}

// Stats summarises the records and the files currently on disk.
func (m *Manager) Stats(ctx context.Context) (domain.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.store.All(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("load records: %w", err)
	}

	stats := domain.Stats{
		TotalFiles: len(records),
		DiskFiles:  []string{},
	}
	for _, rec := range records {
		if rec.Delivered {
			stats.DeliveredFiles++
		}
		stats.TotalDeliveries += rec.DeliveryCount
	}

	files, err := m.files.ListFiles()
	if err != nil {
		return domain.Stats{}, fmt.Errorf("list files: %w", err)
	}
	for _, f := range files {
		stats.DiskFiles = append(stats.DiskFiles, f.Name())
		stats.DiskUsage += f.Size()
	}
	stats.FilesOnDisk = len(stats.DiskFiles)
	stats.DiskUsageHuman = humanize.Bytes(uint64(stats.DiskUsage))

	return stats, nil
}

package storage

import (
	"context"

	"github.com/veranemoloko/media-downloader/internal/domain"
)

// MetadataStore persists FileRecords keyed by filename.
// Implementations must survive process restarts.
type MetadataStore interface {
	All(ctx context.Context) (map[string]domain.FileRecord, error)
	Get(ctx context.Context, filename string) (domain.FileRecord, bool, error)
	Put(ctx context.Context, record domain.FileRecord) error
	Delete(ctx context.Context, filenames ...string) error
	Close() error
}

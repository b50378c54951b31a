package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/veranemoloko/media-downloader/internal/domain"
)

const createFileRecordsSQL = `
CREATE TABLE IF NOT EXISTS file_records (
    filename          TEXT    PRIMARY KEY,
    task_id           TEXT    NOT NULL,
    created_at        INTEGER NOT NULL,
    delivered         INTEGER NOT NULL DEFAULT 0,
    delivery_count    INTEGER NOT NULL DEFAULT 0,
    last_delivered_at INTEGER NULL
);
`

// SQLiteStore keeps FileRecords in a SQLite table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path.
// A database that cannot be initialised is moved aside and recreated empty.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := openSQLite(ctx, path)
	if err == nil {
		return &SQLiteStore{db: db, path: path}, nil
	}

	slog.Warn("metadata database unusable, recreating", "path", path, "error", err)
	if err := os.Rename(path, path+".corrupt"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("move corrupt database aside: %w", err)
	}

	db, err = openSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open metadata database: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createFileRecordsSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// All returns every record.
func (s *SQLiteStore) All(ctx context.Context) (map[string]domain.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, task_id, created_at, delivered, delivery_count, last_delivered_at FROM file_records`)
	if err != nil {
		return nil, fmt.Errorf("query file records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]domain.FileRecord)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records[rec.Filename] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file records: %w", err)
	}
	return records, nil
}

// Get returns the record for filename.
func (s *SQLiteStore) Get(ctx context.Context, filename string) (domain.FileRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT filename, task_id, created_at, delivered, delivery_count, last_delivered_at FROM file_records WHERE filename = ?`,
		filename)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FileRecord{}, false, nil
	}
	if err != nil {
		return domain.FileRecord{}, false, err
	}
	return rec, true, nil
}

// Put inserts or replaces a record.
func (s *SQLiteStore) Put(ctx context.Context, rec domain.FileRecord) error {
	var last sql.NullInt64
	if rec.LastDeliveredAt != nil {
		last = sql.NullInt64{Int64: rec.LastDeliveredAt.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO file_records (filename, task_id, created_at, delivered, delivery_count, last_delivered_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(filename) DO UPDATE SET
    task_id = excluded.task_id,
    created_at = excluded.created_at,
    delivered = excluded.delivered,
    delivery_count = excluded.delivery_count,
    last_delivered_at = excluded.last_delivered_at`,
		rec.Filename, rec.TaskID, rec.CreatedAt.UnixNano(), rec.Delivered, rec.DeliveryCount, last)
	if err != nil {
		return fmt.Errorf("upsert file record %s: %w", rec.Filename, err)
	}
	return nil
}

// Delete removes the named records in one transaction.
func (s *SQLiteStore) Delete(ctx context.Context, filenames ...string) error {
	if len(filenames) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, name := range filenames {
		if _, err := tx.ExecContext(ctx, `DELETE FROM file_records WHERE filename = ?`, name); err != nil {
			return fmt.Errorf("delete file record %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.FileRecord, error) {
	var (
		rec       domain.FileRecord
		createdAt int64
		delivered bool
		last      sql.NullInt64
	)
	if err := row.Scan(&rec.Filename, &rec.TaskID, &createdAt, &delivered, &rec.DeliveryCount, &last); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan file record: %w", err)
	}

	rec.CreatedAt = time.Unix(0, createdAt)
	rec.Delivered = delivered
	if last.Valid {
		t := time.Unix(0, last.Int64)
		rec.LastDeliveredAt = &t
	}
	return rec, nil
}

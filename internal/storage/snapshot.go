package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSnapshotUnsupported is returned for databases that have no file on disk.
var ErrSnapshotUnsupported = errors.New("snapshots require a file-backed database")

// SnapshotInfo describes a point-in-time copy of the ledger database.
type SnapshotInfo struct {
	CreatedAt     time.Time
	ID            string
	Path          string
	Description   string
	FileSize      int64
	SchemaVersion int
}

// SnapshotsDir returns the directory snapshot files are written to.
func (s *SQLiteStorage) SnapshotsDir() string {
	return filepath.Join(filepath.Dir(s.dbPath), "snapshots")
}

// Snapshot copies the database into the snapshots directory and records it in
// snapshot_metadata. It is taken before destructive operations such as
// committing an import batch.
func (s *SQLiteStorage) Snapshot(ctx context.Context, description string) (*SnapshotInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if s.dbPath == ":memory:" || strings.HasPrefix(s.dbPath, "file::memory:") {
		return nil, ErrSnapshotUnsupported
	}

	dir := s.SnapshotsDir()
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}

	var schemaVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	info := &SnapshotInfo{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now(),
		Description:   description,
		SchemaVersion: schemaVersion,
	}

	destPath, err := filepath.Abs(filepath.Join(dir, info.ID+".db"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve snapshot path: %w", err)
	}
	if strings.ContainsAny(destPath, `'";`) {
		return nil, fmt.Errorf("invalid snapshot path: contains forbidden characters")
	}
	info.Path = destPath

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	// #nosec G201 - destPath is built from a uuid and checked above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	stat, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	info.FileSize = stat.Size()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshot_metadata (id, created_at, description, file_size, schema_version)
		VALUES (?, ?, ?, ?, ?)`,
		info.ID, info.CreatedAt, info.Description, info.FileSize, info.SchemaVersion,
	); err != nil {
		// The file on disk is still a valid snapshot.
		slog.Warn("failed to store snapshot metadata", "error", err, "id", info.ID)
	}

	slog.Info("created snapshot", "id", info.ID, "path", destPath, "size", info.FileSize)
	return info, nil
}

// ListSnapshots returns the recorded snapshots, newest first.
func (s *SQLiteStorage) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, COALESCE(description, ''), COALESCE(file_size, 0), COALESCE(schema_version, 0)
		FROM snapshot_metadata
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	dir := s.SnapshotsDir()
	var snapshots []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.ID, &info.CreatedAt, &info.Description, &info.FileSize, &info.SchemaVersion); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		info.Path = filepath.Join(dir, info.ID+".db")
		snapshots = append(snapshots, info)
	}
	return snapshots, rows.Err()
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/storage"
)

// SaveVideo registers new video in the catalog.
func (s *Storage) SaveVideo(ctx context.Context, video models.Video) (int64, error) {
	const op = "storage.sqlite.SaveVideo"

	stmt, err := s.db.Prepare(`
		INSERT INTO videos(handle, title, premium, preview_seconds, active, storage_kind, views)
		VALUES(?, ?, ?, ?, ?, ?, 0)
	`)
	if err != nil {
		return models.ErrVideoID, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx,
		video.Handle,
		video.Title,
		video.Premium,
		video.PreviewSeconds,
		video.Active,
		string(video.StorageKind),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.ErrVideoID, fmt.Errorf("%s: %w", op, storage.ErrVideoExists)
		}

		return models.ErrVideoID, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.ErrVideoID, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// Video returns video by id.
func (s *Storage) Video(ctx context.Context, id int64) (models.Video, error) {
	const op = "storage.sqlite.Video"

	stmt, err := s.db.Prepare(`
		SELECT id, handle, title, premium, preview_seconds, active, storage_kind, views
		FROM videos WHERE id = ?
	`)
	if err != nil {
		return models.Video{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	return s.scanVideo(stmt.QueryRowContext(ctx, id), op)
}

// VideoByHandle returns video by its public handle.
func (s *Storage) VideoByHandle(ctx context.Context, handle string) (models.Video, error) {
	const op = "storage.sqlite.VideoByHandle"

	stmt, err := s.db.Prepare(`
		SELECT id, handle, title, premium, preview_seconds, active, storage_kind, views
		FROM videos WHERE handle = ?
	`)
	if err != nil {
		return models.Video{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	return s.scanVideo(stmt.QueryRowContext(ctx, handle), op)
}

func (s *Storage) scanVideo(row *sql.Row, op string) (models.Video, error) {
	var video models.Video
	var kind string

	err := row.Scan(
		&video.ID,
		&video.Handle,
		&video.Title,
		&video.Premium,
		&video.PreviewSeconds,
		&video.Active,
		&kind,
		&video.Views,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Video{}, fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
		}

		return models.Video{}, fmt.Errorf("%s: %w", op, err)
	}

	video.StorageKind = models.StorageKind(kind)

	return video, nil
}

// IncrementViews bumps the view counter in one statement,
// so concurrent increments are never lost.
func (s *Storage) IncrementViews(ctx context.Context, id int64) error {
	const op = "storage.sqlite.IncrementViews"

	stmt, err := s.db.Prepare("UPDATE videos SET views = views + 1 WHERE id = ?")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}

	return nil
}

// SetStorageKind updates the storage layout after packaging.
func (s *Storage) SetStorageKind(ctx context.Context, id int64, kind models.StorageKind) error {
	const op = "storage.sqlite.SetStorageKind"

	stmt, err := s.db.Prepare("UPDATE videos SET storage_kind = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, string(kind), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}

	return nil
}

// SetActive toggles visibility of the video.
func (s *Storage) SetActive(ctx context.Context, id int64, active bool) error {
	const op = "storage.sqlite.SetActive"

	stmt, err := s.db.Prepare("UPDATE videos SET active = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, active, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}

	return nil
}

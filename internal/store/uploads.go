package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Upload is the record of a file stored by the upload page.
type Upload struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	StoredPath   string    `db:"stored_path"`
	OriginalName string    `db:"original_name"`
	Size         int64     `db:"size_bytes"`
	Checksum     string    `db:"checksum"`
	UploadedBy   string    `db:"uploaded_by"`
	UploadedAt   time.Time `db:"uploaded_at"`
}

// InsertUpload records u. UploadedAt is set by the database when zero.
func (s *Store) InsertUpload(ctx context.Context, u Upload) error {
	var at any
	if !u.UploadedAt.IsZero() {
		at = u.UploadedAt
	}
	_, err := s.db.Exec(ctx, `INSERT INTO `+uploadsTable+`
		(id, title, description, stored_path, original_name, size_bytes, checksum, uploaded_by, uploaded_at)
		VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))`,
		u.ID, u.Title, u.Description, u.StoredPath, u.OriginalName, u.Size, u.Checksum, u.UploadedBy, at)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

// RecentUploads returns up to limit uploads, newest first.
func (s *Store) RecentUploads(ctx context.Context, limit int) ([]Upload, error) {
	if limit <= 0 {
		limit = 6
	}
	rows, err := s.db.Query(ctx, `SELECT id::text AS id, title, description, stored_path, original_name,
		size_bytes, checksum, uploaded_by, uploaded_at
		FROM `+uploadsTable+` ORDER BY uploaded_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent uploads: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[Upload])
	if err != nil {
		return nil, fmt.Errorf("recent uploads: %w", err)
	}
	return out, nil
}

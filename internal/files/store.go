// Package files stores user uploads on disk and in SQLite and forwards
// indexable ones to the algorithm service.
package files

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ziadkadry99/litreview/internal/db"
)

// Store provides CRUD operations for uploaded files. Every lookup is scoped
// to the owning user.
type Store struct {
	db *db.DB
}

// NewStore creates a new file store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new file record.
func (s *Store) Create(ctx context.Context, f File) (*File, error) {
	f.UploadTime = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO files (user_id, filename, file_type, size, storage_path, processed, upload_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.UserID, f.Filename, f.FileType, f.Size, f.StoragePath, f.Processed, f.UploadTime,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting file: %w", err)
	}
	f.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading file id: %w", err)
	}
	return &f, nil
}

const fileColumns = `id, user_id, filename, file_type, size, storage_path, processed, upload_time`

func scanFile(row interface{ Scan(...any) error }) (*File, error) {
	var f File
	if err := row.Scan(&f.ID, &f.UserID, &f.Filename, &f.FileType, &f.Size, &f.StoragePath, &f.Processed, &f.UploadTime); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetByID returns a user's file, or nil if it does not exist.
func (s *Store) GetByID(ctx context.Context, userID, id int64) (*File, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = ? AND user_id = ?`, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting file: %w", err)
	}
	return f, nil
}

// List returns one page of a user's files, oldest first. page is 1-based.
func (s *Store) List(ctx context.Context, userID int64, page, perPage int) ([]File, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE user_id = ? ORDER BY id ASC LIMIT ? OFFSET ?`,
		userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// Rename changes the display filename. It returns false if the file does
// not exist.
func (s *Store) Rename(ctx context.Context, userID, id int64, filename string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE files SET filename = ? WHERE id = ? AND user_id = ?`, filename, id, userID)
	if err != nil {
		return false, fmt.Errorf("renaming file: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkProcessed records that the file was indexed.
func (s *Store) MarkProcessed(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE files SET processed = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("marking file processed: %w", err)
	}
	return nil
}

// Delete removes the record. It returns false if the file does not exist.
func (s *Store) Delete(ctx context.Context, userID, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("deleting file: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

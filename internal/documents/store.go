// Package documents stores review documents, generates section text through
// the algorithm service and exports documents to files.
package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ziadkadry99/litreview/internal/db"
)

// Store provides CRUD operations for documents, scoped to their owner.
type Store struct {
	db *db.DB
}

// NewStore creates a new document store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new document.
func (s *Store) Create(ctx context.Context, userID int64, req CreateRequest) (*Document, error) {
	d := &Document{
		UserID:  userID,
		Title:   req.Title,
		Config:  req.Config,
		Content: req.Content,
	}
	if d.Config == nil {
		d.Config = map[string]any{}
	}
	if d.Content.Sections == nil {
		d.Content.Sections = []Section{}
	}
	cfg, content, err := encode(d.Config, d.Content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (user_id, title, config, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.UserID, d.Title, cfg, content, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading document id: %w", err)
	}
	return d, nil
}

const documentColumns = `id, user_id, title, config, content, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*Document, error) {
	var (
		d            Document
		cfg, content string
	)
	if err := row.Scan(&d.ID, &d.UserID, &d.Title, &cfg, &content, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cfg), &d.Config); err != nil {
		return nil, fmt.Errorf("decoding document %d config: %w", d.ID, err)
	}
	if err := json.Unmarshal([]byte(content), &d.Content); err != nil {
		return nil, fmt.Errorf("decoding document %d content: %w", d.ID, err)
	}
	if d.Content.Sections == nil {
		d.Content.Sections = []Section{}
	}
	return &d, nil
}

// GetByID returns a user's document, or nil if it does not exist.
func (s *Store) GetByID(ctx context.Context, userID, id int64) (*Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ? AND user_id = ?`, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return d, nil
}

// List returns all of a user's documents, newest first.
func (s *Store) List(ctx context.Context, userID int64) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Update applies the present fields of req. It returns nil if the document
// does not exist.
func (s *Store) Update(ctx context.Context, userID, id int64, req UpdateRequest) (*Document, error) {
	d, err := s.GetByID(ctx, userID, id)
	if err != nil || d == nil {
		return nil, err
	}
	if req.Title != nil {
		d.Title = *req.Title
	}
	if req.Config != nil {
		d.Config = *req.Config
	}
	if req.Content != nil {
		d.Content = *req.Content
	}
	cfg, content, err := encode(d.Config, d.Content)
	if err != nil {
		return nil, err
	}
	d.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`UPDATE documents SET title = ?, config = ?, content = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		d.Title, cfg, content, d.UpdatedAt, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating document: %w", err)
	}
	return d, nil
}

// Delete removes a document. It returns false if it did not exist.
func (s *Store) Delete(ctx context.Context, userID, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("deleting document: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func encode(cfg map[string]any, content Content) (string, string, error) {
	if cfg == nil {
		cfg = map[string]any{}
	}
	c, err := json.Marshal(cfg)
	if err != nil {
		return "", "", fmt.Errorf("encoding config: %w", err)
	}
	b, err := json.Marshal(content)
	if err != nil {
		return "", "", fmt.Errorf("encoding content: %w", err)
	}
	return string(c), string(b), nil
}

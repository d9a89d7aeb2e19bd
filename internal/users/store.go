// Package users manages accounts, password hashing and bearer tokens for
// the document service.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/litreview/internal/db"
)

// ErrUsernameTaken is returned by Create for a duplicate username.
var ErrUsernameTaken = errors.New("username already registered")

// Store provides CRUD operations for users.
type Store struct {
	db *db.DB
}

// NewStore creates a new user store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a user with an already hashed password.
func (s *Store) Create(ctx context.Context, username, hashedPassword string) (*User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, hashed_password, created_at) VALUES (?, ?, ?)`,
		username, hashedPassword, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading user id: %w", err)
	}
	return &User{ID: id, Username: username, HashedPassword: hashedPassword, CreatedAt: now}, nil
}

// GetByUsername returns the user or nil if there is none.
func (s *Store) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.getOne(ctx, `WHERE username = ?`, username)
}

// GetByID returns the user or nil if there is none.
func (s *Store) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.getOne(ctx, `WHERE id = ?`, id)
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, hashed_password, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Username, &u.HashedPassword, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

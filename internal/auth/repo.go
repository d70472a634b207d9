package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrCuratorNotFound = errors.New("curator not found")

// Curator is an account allowed to edit the catalogue when auth is on.
type Curator struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	TokenVersion int
	CreatedAt    time.Time
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const curatorColumns = `SELECT id, username, email, password_hash, token_version, created_at FROM users`

func (r *Repo) Create(ctx context.Context, c Curator) error {
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, ?)
	`, c.ID, c.Username, c.Email, c.PasswordHash); err != nil {
		return fmt.Errorf("create curator: %w", err)
	}
	return nil
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count curators: %w", err)
	}
	return n, nil
}

// CreateFirst inserts c only while no curator exists yet. It reports false
// when the table already had a row.
func (r *Repo) CreateFirst(ctx context.Context, c Curator) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		SELECT ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM users)
	`, c.ID, c.Username, c.Email, c.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("create first curator: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create first curator rows: %w", err)
	}
	return n == 1, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*Curator, error) {
	return r.getOne(ctx, "get by email", curatorColumns+` WHERE LOWER(email) = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*Curator, error) {
	return r.getOne(ctx, "get by username", curatorColumns+` WHERE username = ?`, strings.TrimSpace(username))
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Curator, error) {
	return r.getOne(ctx, "get by id", curatorColumns+` WHERE id = ?`, id)
}

func (r *Repo) getOne(ctx context.Context, op, query string, arg any) (*Curator, error) {
	var c Curator
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Username, &c.Email, &c.PasswordHash, &c.TokenVersion, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// TokenVersion returns ErrCuratorNotFound for unknown ids so deleted
// accounts cannot keep using old tokens.
func (r *Repo) TokenVersion(ctx context.Context, id string) (int, error) {
	var version int
	err := r.DB.QueryRowContext(ctx, `SELECT token_version FROM users WHERE id = ?`, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrCuratorNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

func (r *Repo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.bump(ctx, "update password", `
		UPDATE users
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, passwordHash, id)
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	return r.bump(ctx, "bump token version", `
		UPDATE users
		SET token_version = token_version + 1
		WHERE id = ?
	`, id)
}

func (r *Repo) bump(ctx context.Context, op, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrCuratorNotFound)
	}
	return nil
}

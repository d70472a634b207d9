package artists

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"spinsoul/pkg/database"
	"spinsoul/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Name    string // substring match
	Country string
	Limit   int
	Offset  int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Artist, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, name, country, image_url, bio
		FROM artists
		WHERE id = ?
	`, id)

	var a models.Artist
	if err := row.Scan(&a.ID, &a.Name, &a.Country, &a.ImageURL, &a.Bio); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return &a, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Artist, error) {
	var (
		where []string
		args  []any
	)
	if name := strings.TrimSpace(q.Name); name != "" {
		where = append(where, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, database.ContainsPattern(name))
	}
	if country := strings.TrimSpace(q.Country); country != "" {
		where = append(where, "LOWER(country) = ?")
		args = append(args, strings.ToLower(country))
	}

	sqlStr := `SELECT id, name, country, image_url, bio FROM artists`
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY name COLLATE NOCASE, id"
	if q.Limit > 0 {
		sqlStr += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, max(q.Offset, 0))
	}

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := []models.Artist{}
	for rows.Next() {
		var a models.Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.Country, &a.ImageURL, &a.Bio); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, a models.Artist) (*models.Artist, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO artists (name, country, image_url, bio)
		VALUES (?, ?, ?, ?)
	`, a.Name, a.Country, a.ImageURL, a.Bio)
	if err != nil {
		return nil, fmt.Errorf("create artist: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create artist id: %w", err)
	}
	a.ID = id
	return &a, nil
}

// Update applies the non-nil fields of p and returns the stored row, or nil
// when id does not exist.
func (r *Repo) Update(ctx context.Context, id int64, p models.ArtistPatch) (*models.Artist, error) {
	cur, err := r.GetByID(ctx, id)
	if err != nil || cur == nil {
		return nil, err
	}
	if p.Name != nil {
		cur.Name = *p.Name
	}
	if p.Country != nil {
		cur.Country = *p.Country
	}
	if p.ImageURL != nil {
		cur.ImageURL = *p.ImageURL
	}
	if p.Bio != nil {
		cur.Bio = *p.Bio
	}

	if _, err := r.DB.ExecContext(ctx, `
		UPDATE artists
		SET name = ?, country = ?, image_url = ?, bio = ?
		WHERE id = ?
	`, cur.Name, cur.Country, cur.ImageURL, cur.Bio, id); err != nil {
		return nil, fmt.Errorf("update artist: %w", err)
	}
	return cur, nil
}

// Delete removes the artist. Releases filed under it keep their free-text
// artist name and lose the link.
func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM artists WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete artist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete artist rows: %w", err)
	}
	return affected > 0, nil
}

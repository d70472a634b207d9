package releases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"spinsoul/pkg/database"
	"spinsoul/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	ArtistID *int64
	Genre    string
	Q        string // keyword search in title/artist
	Year     *int
	Limit    int
	Offset   int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const selectColumns = `
	SELECT id, artist_id, title, artist, year, genre, cover_url, rating, review, created_at
	FROM releases
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRelease(row rowScanner) (models.Release, error) {
	var (
		rel      models.Release
		artistID sql.NullInt64
		year     sql.NullInt64
	)
	if err := row.Scan(
		&rel.ID, &artistID, &rel.Title, &rel.Artist, &year, &rel.Genre, &rel.CoverURL, &rel.Rating, &rel.Review, &rel.CreatedAt,
	); err != nil {
		return models.Release{}, err
	}
	if artistID.Valid {
		id := artistID.Int64
		rel.ArtistID = &id
	}
	if year.Valid {
		y := int(year.Int64)
		rel.Year = &y
	}
	return rel, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Release, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rel, err := scanRelease(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return &rel, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Release, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Release, 0, max(q.Limit, 0))
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, rel models.Release) (*models.Release, error) {
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO releases (artist_id, title, artist, year, genre, cover_url, rating, review, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, nullInt64(rel.ArtistID), rel.Title, rel.Artist, nullInt(rel.Year), rel.Genre, rel.CoverURL, rel.Rating, rel.Review, rel.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create release: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create release id: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Update applies the non-nil fields of p and the Clear flags. It returns nil
// when the row does not exist.
func (r *Repo) Update(ctx context.Context, id int64, p models.ReleasePatch) (*models.Release, error) {
	var (
		sets []string
		args []any
	)
	if p.ClearArtistID {
		sets = append(sets, "artist_id = NULL")
	} else if p.ArtistID != nil {
		sets = append(sets, "artist_id = ?")
		args = append(args, *p.ArtistID)
	}
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Artist != nil {
		sets = append(sets, "artist = ?")
		args = append(args, *p.Artist)
	}
	if p.ClearYear {
		sets = append(sets, "year = NULL")
	} else if p.Year != nil {
		sets = append(sets, "year = ?")
		args = append(args, *p.Year)
	}
	if p.Genre != nil {
		sets = append(sets, "genre = ?")
		args = append(args, *p.Genre)
	}
	if p.CoverURL != nil {
		sets = append(sets, "cover_url = ?")
		args = append(args, *p.CoverURL)
	}
	if p.Rating != nil {
		sets = append(sets, "rating = ?")
		args = append(args, *p.Rating)
	}
	if p.Review != nil {
		sets = append(sets, "review = ?")
		args = append(args, *p.Review)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, `UPDATE releases SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update release: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update release rows: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM releases WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete release: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete release rows: %w", err)
	}
	return affected > 0, nil
}

// buildListSQL builds either COUNT(*) or the SELECT list, newest first.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	base := selectColumns
	if countOnly {
		base = `SELECT COUNT(*) FROM releases`
	}

	var where []string
	var args []any

	if q.ArtistID != nil {
		where = append(where, "artist_id = ?")
		args = append(args, *q.ArtistID)
	}
	if g := strings.TrimSpace(q.Genre); g != "" {
		where = append(where, "LOWER(genre) = ?")
		args = append(args, strings.ToLower(g))
	}
	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(artist) LIKE ? ESCAPE '\')`)
		like := database.ContainsPattern(kw)
		args = append(args, like, like)
	}
	if q.Year != nil {
		where = append(where, "year = ?")
		args = append(args, *q.Year)
	}

	sqlStr := base
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	if countOnly {
		return sqlStr, args
	}

	sqlStr += " ORDER BY created_at DESC, id DESC"
	if q.Limit > 0 {
		sqlStr += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, max(q.Offset, 0))
	}
	return sqlStr, args
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func (r *Repo) ArtistExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM artists WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("artist exists: %w", err)
	}
	return true, nil
}

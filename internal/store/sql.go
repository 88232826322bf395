package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/BTreeMap/PostPipe/internal/models"
)

const brandColumns = `id, user_id, name, brand_voice, portrayal, overall_voice, brand_phrases,
	previous_posts, website, linkedin_url, additional_info, created_at, updated_at`

const postColumns = `id, brand_id, user_id, content, graphic_concept, post_type, date_label, scheduled_for, created_at`

// sqlStore implements Store over database/sql. Queries are written with
// "?" placeholders and rebound for drivers that number them.
type sqlStore struct {
	db       *sql.DB
	name     string
	numbered bool
}

// openDB opens a driver connection, applies tune, checks it with a ping and
// runs the embedded schema.
func openDB(name, driver, dsn, migrations string, numbered bool, tune func(*sql.DB)) (*sqlStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		slog.Error(name+".open: failed to open database", "driver", driver, "error", err)
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if tune != nil {
		tune(db)
	}
	if err := db.Ping(); err != nil {
		slog.Error(name+".open: ping failed", "driver", driver, "error", err)
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	if _, err := db.Exec(migrations); err != nil {
		slog.Error(name+".open: migrations failed", "driver", driver, "error", err)
		db.Close()
		return nil, fmt.Errorf("apply %s migrations: %w", driver, err)
	}
	slog.Debug(name+".open: database ready", "driver", driver)
	return &sqlStore{db: db, name: name, numbered: numbered}, nil
}

func (s *sqlStore) q(query string) string {
	if !s.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *sqlStore) CreateBrand(ctx context.Context, b *models.Brand) error {
	if err := prepareBrand(b); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO brands (`+brandColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		b.ID, nilIfEmpty(b.UserID), b.Name, b.BrandVoice, b.Portrayal, b.OverallVoice, b.BrandPhrases,
		b.PreviousPosts, b.Website, b.LinkedInURL, b.AdditionalInfo, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		slog.Error(s.name+".CreateBrand failed", "error", err, "name", b.Name)
		return fmt.Errorf("failed to insert brand %s: %w", b.Name, err)
	}
	slog.Debug(s.name+".CreateBrand succeeded", "brandID", b.ID, "name", b.Name)
	return nil
}

func (s *sqlStore) GetBrand(ctx context.Context, id string) (*models.Brand, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+brandColumns+` FROM brands WHERE id = ?`), id)
	b, err := scanBrand(row)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug(s.name+".GetBrand not found", "brandID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+".GetBrand failed", "error", err, "brandID", id)
		return nil, fmt.Errorf("failed to get brand %s: %w", id, err)
	}
	return &b, nil
}

func (s *sqlStore) ListBrands(ctx context.Context, userID string) ([]models.Brand, error) {
	query := `SELECT ` + brandColumns + ` FROM brands`
	var args []interface{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY LOWER(name)`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		slog.Error(s.name+".ListBrands query failed", "error", err)
		return nil, fmt.Errorf("failed to query brands: %w", err)
	}
	defer rows.Close()

	var brands []models.Brand
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			slog.Error(s.name+".ListBrands scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan brand row: %w", err)
		}
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate brand rows: %w", err)
	}
	slog.Debug(s.name+".ListBrands succeeded", "count", len(brands))
	return brands, nil
}

func (s *sqlStore) UpdateBrand(ctx context.Context, b *models.Brand) error {
	if err := b.Validate(); err != nil {
		return err
	}
	b.UpdatedAt = now()
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE brands SET user_id = ?, name = ?, brand_voice = ?, portrayal = ?,
		overall_voice = ?, brand_phrases = ?, previous_posts = ?, website = ?, linkedin_url = ?,
		additional_info = ?, updated_at = ? WHERE id = ?`),
		nilIfEmpty(b.UserID), b.Name, b.BrandVoice, b.Portrayal, b.OverallVoice, b.BrandPhrases,
		b.PreviousPosts, b.Website, b.LinkedInURL, b.AdditionalInfo, b.UpdatedAt, b.ID)
	if err != nil {
		slog.Error(s.name+".UpdateBrand failed", "error", err, "brandID", b.ID)
		return fmt.Errorf("failed to update brand %s: %w", b.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBrandNotFound
	}
	slog.Debug(s.name+".UpdateBrand succeeded", "brandID", b.ID)
	return nil
}

func (s *sqlStore) DeleteBrand(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM brands WHERE id = ?`), id)
	if err != nil {
		slog.Error(s.name+".DeleteBrand failed", "error", err, "brandID", id)
		return fmt.Errorf("failed to delete brand %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBrandNotFound
	}
	slog.Debug(s.name+".DeleteBrand succeeded", "brandID", id)
	return nil
}

func (s *sqlStore) SavePost(ctx context.Context, p *models.SavedPost) error {
	if err := preparePost(p); err != nil {
		return err
	}
	var scheduled interface{}
	if p.ScheduledFor != nil {
		scheduled = *p.ScheduledFor
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, nilIfEmpty(p.BrandID), nilIfEmpty(p.UserID), p.Content, p.GraphicConcept, p.Type,
		p.Date, scheduled, p.CreatedAt)
	if err != nil {
		slog.Error(s.name+".SavePost failed", "error", err, "brandID", p.BrandID)
		return fmt.Errorf("failed to insert post: %w", err)
	}
	slog.Debug(s.name+".SavePost succeeded", "postID", p.ID, "brandID", p.BrandID, "type", p.Type)
	return nil
}

func (s *sqlStore) ListPosts(ctx context.Context, brandID string) ([]models.SavedPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	var args []interface{}
	if brandID != "" {
		query += ` WHERE brand_id = ?`
		args = append(args, brandID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		slog.Error(s.name+".ListPosts query failed", "error", err)
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []models.SavedPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			slog.Error(s.name+".ListPosts scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}
	slog.Debug(s.name+".ListPosts succeeded", "brandID", brandID, "count", len(posts))
	return posts, nil
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	slog.Debug("Closing database connection", "store", s.name)
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close database", "store", s.name, "error", err)
	}
	return err
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBrand(row scanner) (models.Brand, error) {
	var b models.Brand
	var userID sql.NullString
	err := row.Scan(&b.ID, &userID, &b.Name, &b.BrandVoice, &b.Portrayal, &b.OverallVoice, &b.BrandPhrases,
		&b.PreviousPosts, &b.Website, &b.LinkedInURL, &b.AdditionalInfo, &b.CreatedAt, &b.UpdatedAt)
	b.UserID = userID.String
	return b, err
}

func scanPost(row scanner) (models.SavedPost, error) {
	var p models.SavedPost
	var brandID, userID sql.NullString
	var scheduled sql.NullTime
	err := row.Scan(&p.ID, &brandID, &userID, &p.Content, &p.GraphicConcept, &p.Type, &p.Date, &scheduled, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.BrandID = brandID.String
	p.UserID = userID.String
	if scheduled.Valid {
		t := scheduled.Time
		p.ScheduledFor = &t
	}
	return p, nil
}

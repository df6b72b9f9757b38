package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/osvitahub/backend/internal/model"
)

// ContentStore persists catalog entries.
type ContentStore struct {
	db DBTX
}

// NewContentStore returns a ContentStore bound to db.
func NewContentStore(db DBTX) *ContentStore {
	return &ContentStore{db: db}
}

const contentColumns = `id, title, description, content_type, category, tags, author_id,
	difficulty_level, duration_minutes, language, is_published, published_at,
	view_count, rating, created_at, updated_at`

// Create inserts a new catalog entry, generating its id when empty.
func (s *ContentStore) Create(ctx context.Context, c *model.Content) (*model.Content, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Language == "" {
		c.Language = "uk"
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.IsPublished && c.PublishedAt == nil {
		c.PublishedAt = &now
	}

	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return nil, fmt.Errorf("store: encode tags: %w", err)
	}

	query := `INSERT INTO content (` + contentColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = s.db.ExecContext(ctx, query,
		c.ID, c.Title, nullable(c.Description), string(c.ContentType), nullable(c.Category),
		tags, nullable(c.AuthorID), nullable(string(c.DifficultyLevel)),
		nullableInt(c.DurationMinutes), c.Language, c.IsPublished, c.PublishedAt,
		c.ViewCount, c.Rating, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create content: %w", err)
	}

	return c, nil
}

// FindByID looks a catalog entry up by id.
func (s *ContentStore) FindByID(ctx context.Context, id string) (*model.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content WHERE id = $1`
	c, err := scanContentRow(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Save writes back every mutable field of c.
func (s *ContentStore) Save(ctx context.Context, c *model.Content) error {
	c.UpdatedAt = time.Now()

	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return fmt.Errorf("store: encode tags: %w", err)
	}

	query := `UPDATE content
	          SET title = $2, description = $3, content_type = $4, category = $5, tags = $6,
	              difficulty_level = $7, duration_minutes = $8, language = $9,
	              is_published = $10, published_at = $11, rating = $12, updated_at = $13
	          WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		c.ID, c.Title, nullable(c.Description), string(c.ContentType), nullable(c.Category),
		tags, nullable(string(c.DifficultyLevel)), nullableInt(c.DurationMinutes),
		c.Language, c.IsPublished, c.PublishedAt, c.Rating, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: save content: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a catalog entry.
func (s *ContentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete content: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews bumps the view counter without touching updated_at.
func (s *ContentStore) IncrementViews(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE content SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: increment views: %w", err)
	}
	return nil
}

// List returns one page of catalog entries matching filter, newest first,
// together with the total match count.
func (s *ContentStore) List(ctx context.Context, filter model.ContentFilter) ([]model.Content, int, error) {
	where, args := buildContentWhere(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM content`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count content: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	query := `SELECT ` + contentColumns + ` FROM content` + where +
		` ORDER BY created_at DESC` +
		` LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list content: %w", err)
	}
	defer rows.Close()

	var items []model.Content
	for rows.Next() {
		c, err := scanContentRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: list content: %w", err)
	}

	return items, total, nil
}

func buildContentWhere(f model.ContentFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if f.ContentType != "" {
		add("content_type = ?", string(f.ContentType))
	}
	if f.Category != "" {
		add("category = ?", f.Category)
	}
	if f.Difficulty != "" {
		add("difficulty_level = ?", string(f.Difficulty))
	}
	if f.Language != "" {
		add("language = ?", f.Language)
	}
	if f.IsPublished != nil {
		add("is_published = ?", *f.IsPublished)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := "$" + strconv.Itoa(len(args))
		clauses = append(clauses, "(title ILIKE "+n+" OR description ILIKE "+n+")")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanContentRow(row rowScanner) (*model.Content, error) {
	var (
		c           model.Content
		description sql.NullString
		category    sql.NullString
		tags        []byte
		authorID    sql.NullString
		difficulty  sql.NullString
		duration    sql.NullInt64
		contentType string
		publishedAt sql.NullTime
	)

	err := row.Scan(&c.ID, &c.Title, &description, &contentType, &category, &tags,
		&authorID, &difficulty, &duration, &c.Language, &c.IsPublished, &publishedAt,
		&c.ViewCount, &c.Rating, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("store: scan content: %w", err)
	}

	c.Description = description.String
	c.ContentType = model.ContentType(contentType)
	c.Category = category.String
	c.AuthorID = authorID.String
	c.DifficultyLevel = model.Difficulty(difficulty.String)
	c.DurationMinutes = int(duration.Int64)
	if publishedAt.Valid {
		t := publishedAt.Time
		c.PublishedAt = &t
	}
	c.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &c.Tags); err != nil {
			return nil, fmt.Errorf("store: decode tags: %w", err)
		}
	}

	return &c, nil
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

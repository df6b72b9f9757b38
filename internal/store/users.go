package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/osvitahub/backend/internal/model"
)

const uniqueViolation = "23505"

// UserStore is the credential store: it persists authenticatable principals
// and enforces email uniqueness.
type UserStore struct {
	db DBTX
}

// NewUserStore returns a UserStore bound to db.
func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active, last_login, created_at, updated_at`

// Create inserts a new user. The id is generated here when empty. A
// duplicate email yields [ErrEmailTaken].
func (s *UserStore) Create(ctx context.Context, u *model.User) (*model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `INSERT INTO users (` + userColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, nullable(u.FirstName), nullable(u.LastName),
		string(u.Role), u.IsActive, u.LastLogin, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("store: create user: %w", err)
	}

	return u, nil
}

// FindByEmail looks a user up by email, case-insensitively.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// FindByID looks a user up by id.
func (s *UserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// Save writes back every mutable field of u. A duplicate email yields
// [ErrEmailTaken]; a missing row yields [ErrNotFound].
func (s *UserStore) Save(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now()

	query := `UPDATE users
	          SET email = $2, password_hash = $3, first_name = $4, last_name = $5,
	              role = $6, is_active = $7, last_login = $8, updated_at = $9
	          WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, nullable(u.FirstName), nullable(u.LastName),
		string(u.Role), u.IsActive, u.LastLogin, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("store: save user: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of users ordered by creation time, newest first,
// together with the total count.
func (s *UserStore) List(ctx context.Context, page, limit int) ([]model.User, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: list users: %w", err)
	}

	return users, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *UserStore) scanUser(row *sql.Row) (*model.User, error) {
	u, err := scanUserRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func scanUserRow(row rowScanner) (*model.User, error) {
	var (
		u         model.User
		first     sql.NullString
		last      sql.NullString
		role      string
		lastLogin sql.NullTime
	)

	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &first, &last,
		&role, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("store: scan user: %w", err)
	}

	u.FirstName = first.String
	u.LastName = last.String
	u.Role = model.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}

	return &u, nil
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

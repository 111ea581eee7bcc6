package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/taskyapp/tasky-backend/internal/models"
	"github.com/taskyapp/tasky-backend/internal/storage"
)

// likeEscaper neutralizes LIKE metacharacters so a search prefix always
// matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// UserStore implements account storage on PostgreSQL, sharing the ChatStore's
// connection pool.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(chat *ChatStore) *UserStore {
	return &UserStore{db: chat.db}
}

// EnsureSchema creates the users table if it does not exist. Username
// uniqueness is enforced case-insensitively, matching the lookup queries.
func (s *UserStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			bio TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower_idx ON users (lower(username))`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure users schema: %w", err)
		}
	}
	return nil
}

func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, bio, photo_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Bio, u.PhotoURL, u.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return storage.ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	return s.userBy(ctx, "id = $1", id)
}

func (s *UserStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userBy(ctx, "lower(username) = lower($1)", username)
}

func (s *UserStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userBy(ctx, "lower(email) = lower($1)", email)
}

func (s *UserStore) userBy(ctx context.Context, where string, arg string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, bio, photo_url, created_at
		FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Bio, &u.PhotoURL, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) SearchUsers(ctx context.Context, prefix string, limit int) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, password_hash, bio, photo_url, created_at
		FROM users
		WHERE lower(username) LIKE $1 ESCAPE '\'
		ORDER BY username
		LIMIT $2
	`, escapeLike(strings.ToLower(prefix))+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Bio, &u.PhotoURL, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			bio = COALESCE($2, bio),
			photo_url = COALESCE($3, photo_url)
		WHERE id = $1
	`, id, upd.Bio, upd.PhotoURL)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.UserByID(ctx, id)
}

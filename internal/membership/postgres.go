// internal/membership/postgres.go
package membership

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"libris/internal/database"
)

const selectUser = `
	SELECT id, username, email, password_hash, role, penalty_until, created_at
	FROM users
`

type pgStore struct {
	db *sqlx.DB
}

// NewPostgresStore returns a Store backed by the users table.
func NewPostgresStore(db *sqlx.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Insert(ctx context.Context, u *User) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, penalty_until, created_at)
		VALUES (:id, :username, :email, :password_hash, :role, :penalty_until, :created_at)
	`, u)
	return database.MapError(err)
}

func (s *pgStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.getOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (s *pgStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.getOne(ctx, selectUser+` WHERE username = $1`, username)
}

func (s *pgStore) getOne(ctx context.Context, query string, arg interface{}) (*User, error) {
	u := &User{}
	err := s.db.GetContext(ctx, u, query, arg)
	if database.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, database.MapError(err)
	}
	return u, nil
}

func (s *pgStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (s *pgStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

func (s *pgStore) AdminExists(ctx context.Context) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = 'admin')`)
}

func (s *pgStore) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var found bool
	if err := s.db.GetContext(ctx, &found, query, args...); err != nil {
		return false, database.MapError(err)
	}
	return found, nil
}

func (s *pgStore) List(ctx context.Context) ([]*User, error) {
	users := []*User{}
	if err := s.db.SelectContext(ctx, &users, selectUser+` ORDER BY created_at DESC`); err != nil {
		return nil, database.MapError(err)
	}
	return users, nil
}

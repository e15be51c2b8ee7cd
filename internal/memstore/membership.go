// internal/memstore/membership.go
package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"libris/internal/auth"
	"libris/internal/membership"
)

type membershipStore struct {
	s session
}

func (m *membershipStore) Insert(ctx context.Context, u *membership.User) error {
	return m.s.do(func(st *state) error {
		for _, existing := range st.users {
			if existing.ID == u.ID || existing.Username == u.Username || existing.Email == u.Email {
				return errUniqueViolation
			}
		}
		st.users[u.ID] = *u
		return nil
	})
}

func (m *membershipStore) GetByID(ctx context.Context, id uuid.UUID) (*membership.User, error) {
	return m.find(func(u membership.User) bool { return u.ID == id })
}

func (m *membershipStore) GetByUsername(ctx context.Context, username string) (*membership.User, error) {
	return m.find(func(u membership.User) bool { return u.Username == username })
}

func (m *membershipStore) find(match func(membership.User) bool) (*membership.User, error) {
	var found *membership.User
	err := m.s.do(func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				found = &u
				return nil
			}
		}
		return membership.ErrUserNotFound
	})
	return found, err
}

func (m *membershipStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	return m.exists(func(u membership.User) bool { return u.Username == username })
}

func (m *membershipStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return m.exists(func(u membership.User) bool { return u.Email == email })
}

func (m *membershipStore) AdminExists(ctx context.Context) (bool, error) {
	return m.exists(func(u membership.User) bool { return u.Role == auth.RoleAdmin })
}

func (m *membershipStore) exists(match func(membership.User) bool) (bool, error) {
	_, err := m.find(match)
	if err == membership.ErrUserNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *membershipStore) List(ctx context.Context) ([]*membership.User, error) {
	users := []*membership.User{}
	err := m.s.do(func(st *state) error {
		for _, u := range st.users {
			users = append(users, &u)
		}
		return nil
	})
	newestFirst(users,
		func(u *membership.User) time.Time { return u.CreatedAt },
		func(u *membership.User) uuid.UUID { return u.ID })
	return users, err
}

package membership_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"libris/internal/apperr"
	"libris/internal/auth"
	"libris/internal/membership"
	"libris/internal/memstore"
)

func newService(t *testing.T, attemptsPerMinute int) (membership.Service, *auth.Tokens) {
	t.Helper()
	tokens := auth.NewTokens("test-secret", time.Hour)
	return membership.NewService(memstore.New().Membership(), tokens, zap.NewNop(), attemptsPerMinute), tokens
}

func register(name string) membership.RegisterInput {
	return membership.RegisterInput{
		Username:        name,
		Email:           name + "@example.com",
		Password:        "s3cret-pass",
		ConfirmPassword: "s3cret-pass",
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, tokens := newService(t, 0)
	ctx := context.Background()

	user, err := svc.Register(ctx, register("alice"))
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, user.Role)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	session, err := svc.Authenticate(ctx, membership.LoginInput{Username: "alice", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)

	p, err := tokens.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.UserID)
	assert.False(t, p.IsAdmin())

	got, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestRegisterRejects(t *testing.T) {
	svc, _ := newService(t, 0)
	ctx := context.Background()
	_, err := svc.Register(ctx, register("bob"))
	require.NoError(t, err)

	sameEmail := register("robert")
	sameEmail.Email = "bob@example.com"

	mismatch := register("carol")
	mismatch.ConfirmPassword = "other"

	badEmail := register("dave")
	badEmail.Email = "not-an-email"

	tests := []struct {
		name    string
		in      membership.RegisterInput
		wantErr error
		kind    apperr.Kind
	}{
		{name: "username taken", in: register("bob"), wantErr: membership.ErrUsernameTaken, kind: apperr.KindConflict},
		{name: "email taken", in: sameEmail, wantErr: membership.ErrEmailTaken, kind: apperr.KindConflict},
		{name: "password mismatch", in: mismatch, kind: apperr.KindValidation},
		{name: "invalid email", in: badEmail, kind: apperr.KindValidation},
		{name: "missing username", in: register(""), kind: apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc, _ := newService(t, 0)
	ctx := context.Background()
	_, err := svc.Register(ctx, register("erin"))
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, membership.LoginInput{Username: "erin", Password: "wrong"})
	assert.ErrorIs(t, err, membership.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, membership.LoginInput{Username: "nobody", Password: "wrong"})
	assert.ErrorIs(t, err, membership.ErrInvalidCredentials)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAttemptsAreRateLimited(t *testing.T) {
	svc, _ := newService(t, 2)
	ctx := context.Background()
	login := membership.LoginInput{Username: "nobody", Password: "x"}

	for i := 0; i < 2; i++ {
		_, err := svc.Authenticate(ctx, login)
		assert.ErrorIs(t, err, membership.ErrInvalidCredentials)
	}
	_, err := svc.Authenticate(ctx, login)
	assert.ErrorIs(t, err, membership.ErrRateLimited)
}

func TestBootstrapAdminIsIdempotent(t *testing.T) {
	svc, _ := newService(t, 0)
	ctx := context.Background()

	created, err := svc.BootstrapAdmin(ctx, "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.BootstrapAdmin(ctx, "other")
	require.NoError(t, err)
	assert.False(t, created)

	session, err := svc.Authenticate(ctx, membership.LoginInput{Username: membership.AdminUsername, Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, session.User.Role)
	assert.Equal(t, membership.AdminEmail, session.User.Email)
}

func TestConcurrentBootstrapCreatesOneAdmin(t *testing.T) {
	svc, _ := newService(t, 0)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.BootstrapAdmin(ctx, "admin123")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

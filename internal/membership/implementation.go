// internal/membership/implementation.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"libris/internal/apperr"
	"libris/internal/auth"
	"libris/internal/validation"
)

// service implements the Service interface.
type service struct {
	store       Store
	tokens      *auth.Tokens
	logger      *zap.Logger
	tracer      trace.Tracer
	rateLimiter *rate.Limiter
	now         func() time.Time
}

// NewService creates a new membership service instance. Register and
// Authenticate share a limiter of attemptsPerMinute; zero disables it.
func NewService(store Store, tokens *auth.Tokens, logger *zap.Logger, attemptsPerMinute int) Service {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if attemptsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(attemptsPerMinute)), attemptsPerMinute)
	}

	return &service{
		store:       store,
		tokens:      tokens,
		logger:      logger.Named("membership"),
		tracer:      otel.Tracer("libris/membership"),
		rateLimiter: limiter,
		now:         time.Now,
	}
}

// Register creates a user account with the user role.
func (s *service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	ctx, span := s.tracer.Start(ctx, "membership.register",
		trace.WithAttributes(attribute.String("username", in.Username)))
	defer span.End()

	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	taken, err := s.store.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	taken, err = s.store.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	user, err := s.newUser(in.Username, in.Email, in.Password, auth.RoleUser)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, user); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.logger.Info("user registered", zap.String("userId", user.ID.String()), zap.String("username", user.Username))
	return user, nil
}

// Authenticate verifies credentials and issues a bearer token.
func (s *service) Authenticate(ctx context.Context, in LoginInput) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "membership.authenticate",
		trace.WithAttributes(attribute.String("username", in.Username)))
	defer span.End()

	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.store.GetByUsername(ctx, in.Username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	ok, err := verifyPassword(in.Password, user.PasswordHash)
	if err != nil {
		return nil, apperr.Internal("authentication failed", err)
	}
	if !ok {
		s.logger.Info("login rejected", zap.String("username", in.Username))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}

	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// GetUser retrieves a user by their ID.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.GetByID(ctx, id)
}

func (s *service) ListUsers(ctx context.Context) ([]*User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *service) BootstrapAdmin(ctx context.Context, password string) (bool, error) {
	exists, err := s.store.AdminExists(ctx)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return false, nil
	}

	admin, err := s.newUser(AdminUsername, AdminEmail, password, auth.RoleAdmin)
	if err != nil {
		return false, err
	}
	if err := s.store.Insert(ctx, admin); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			// another instance seeded it first
			return false, nil
		}
		return false, fmt.Errorf("insert admin: %w", err)
	}

	s.logger.Info("admin account created", zap.String("username", admin.Username))
	return true, nil
}

func (s *service) newUser(username, email, password, role string) (*User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	return &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}, nil
}

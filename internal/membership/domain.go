// internal/membership/domain.go
package membership

import (
	"time"

	"github.com/google/uuid"

	"libris/internal/apperr"
)

// AdminUsername and AdminEmail identify the account seeded at startup.
const (
	AdminUsername = "admin"
	AdminEmail    = "admin@library.com"
)

var (
	ErrUserNotFound       = apperr.NotFound("user_not_found", "user not found")
	ErrUsernameTaken      = apperr.Conflict("username_taken", "this username is already in use")
	ErrEmailTaken         = apperr.Conflict("email_taken", "this email address is already in use")
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "invalid_credentials", "invalid username or password")
	ErrRateLimited        = apperr.New(apperr.KindRateLimited, "rate_limited", "too many attempts, try again later")
)

// User represents a library account.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	PenaltyUntil *time.Time `json:"penalty_until,omitempty" db:"penalty_until"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

type RegisterInput struct {
	Username        string `json:"username" validate:"required,max=80"`
	Email           string `json:"email" validate:"required,email,max=120"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

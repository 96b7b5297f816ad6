package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service manages accounts and authentication.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)

	GetByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, id snowflake.ID, req UpdateProfileRequest) (*User, error)

	// Password recovery. ForgotPassword returns the raw reset token so the
	// caller can deliver it out of band; an unknown email yields an empty
	// token and no error, so responses cannot be used to enumerate accounts.
	ForgotPassword(ctx context.Context, email string) (string, error)
	VerifyResetToken(ctx context.Context, rawToken string) (string, error)
	ResetPassword(ctx context.Context, rawToken, newPassword string) error

	// Admin operations.
	List(ctx context.Context) ([]User, error)
	SetRole(ctx context.Context, id string, role Role) error
	SetStatus(ctx context.Context, id string, status UserStatus) error
}

var (
	ErrNotFound           = errors.New("user_not_found")
	ErrInvalidID          = errors.New("invalid_user_id")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrWeakPassword       = errors.New("weak_password")
	ErrMissingName        = errors.New("missing_full_name")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountInactive    = errors.New("account_inactive")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidResetToken  = errors.New("invalid_reset_token")
)

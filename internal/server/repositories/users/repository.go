package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/server/models"
)

type Repository interface {
	// Create stores user and fills in ID and timestamps. A duplicate email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// SetResetCode replaces any pending reset code for the user.
	SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error
	// RedeemReset stores passwordHash and clears the reset fields in one
	// write, but only if code is on file for email and unexpired at now.
	// Otherwise it returns common.ErrResetCodeInvalid and changes nothing.
	RedeemReset(ctx context.Context, email, code, passwordHash string, now time.Time) error
}

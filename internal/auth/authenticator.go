package auth

import (
	"context"

	"github.com/mmynk/payup/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password, passkeys, OAuth, etc.)
// without changing the service layer code.
type Authenticator interface {
	// SignIn verifies the credential for email, creating the account on the
	// first sign-in. created reports whether a new user was registered.
	SignIn(ctx context.Context, email, displayName, credential string) (user *models.User, created bool, err error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}

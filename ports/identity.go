package ports

import (
	"context"

	"github.com/domecloud/dsigner/core"
)

// IdentityProvider is the external service owning signup, sign-in and email
// verification, and issuing bearer session tokens.
type IdentityProvider interface {
	// SignUp registers a new user. The provider sends the confirmation email.
	SignUp(ctx context.Context, email, password string) (*core.Identity, error)

	// SignIn authenticates a user and issues a session token.
	SignIn(ctx context.Context, email, password string) (*core.Identity, *core.Session, error)

	// GetUser resolves an access token to the identity that owns it.
	GetUser(ctx context.Context, accessToken string) (*core.Identity, error)

	// Resend asks the provider to send a fresh signup OTP.
	Resend(ctx context.Context, email string) error
}

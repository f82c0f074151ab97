package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/domecloud/dsigner/core"
	"github.com/domecloud/dsigner/ports"
)

// AuthService fronts the identity provider for signup, sign-in and email
// verification, and hooks wallet provisioning into the sign-in path.
type AuthService struct {
	identity    ports.IdentityProvider
	provisioner *WalletProvisioner
	logger      *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(identity ports.IdentityProvider, provisioner *WalletProvisioner, logger *zap.Logger) *AuthService {
	return &AuthService{
		identity:    identity,
		provisioner: provisioner,
		logger:      logger.Named("auth"),
	}
}

// SignInResult bundles the signed-in user, their session and the bound wallet
type SignInResult struct {
	User    *core.Identity
	Session *core.Session
	Wallet  string
}

// SignUp registers a new user with the identity provider. No local state
// changes: the wallet is provisioned lazily on first sign-in.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*core.Identity, error) {
	return s.identity.SignUp(ctx, email, password)
}

// SignIn authenticates the user and ensures their custodial wallet exists,
// so the caller always receives the session token and wallet address together.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	identity, session, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	binding, err := s.provisioner.Ensure(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("signed in",
		zap.String("identity_id", identity.ID),
		zap.String("wallet", binding.Address))

	return &SignInResult{
		User:    identity,
		Session: session,
		Wallet:  binding.Address,
	}, nil
}

// NewOTP asks the identity provider to resend the signup OTP
func (s *AuthService) NewOTP(ctx context.Context, email string) error {
	return s.identity.Resend(ctx, email)
}

// Verify confirms an email verification token and returns the owning identity
func (s *AuthService) Verify(ctx context.Context, token string) (*core.Identity, error) {
	return s.identity.GetUser(ctx, token)
}

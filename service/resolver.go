package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/domecloud/dsigner/core"
	"github.com/domecloud/dsigner/ports"
)

// SessionResolver resolves a bearer access token to the custodial wallet
// bound to the token's identity. It is read-only: it never creates bindings,
// so it is safe to call concurrently and repeatedly for the same token.
type SessionResolver struct {
	identity ports.IdentityProvider
	bindings ports.BindingStore
	logger   *zap.Logger
}

// NewSessionResolver creates a new session resolver
func NewSessionResolver(identity ports.IdentityProvider, bindings ports.BindingStore, logger *zap.Logger) *SessionResolver {
	return &SessionResolver{
		identity: identity,
		bindings: bindings,
		logger:   logger.Named("resolver"),
	}
}

// Resolve validates the token against the identity provider and looks up the
// wallet binding for the resulting identity. Any identity-provider failure,
// including a timeout, surfaces as core.ErrInvalidToken: the caller cannot be
// authenticated right now, whatever the transport-level reason.
func (r *SessionResolver) Resolve(ctx context.Context, accessToken string) (*core.WalletBinding, error) {
	if accessToken == "" {
		return nil, core.ErrInvalidToken
	}

	identity, err := r.identity.GetUser(ctx, accessToken)
	if err != nil {
		r.logger.Debug("token rejected by identity provider", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	binding, err := r.bindings.Get(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	return binding, nil
}

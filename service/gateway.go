package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/domecloud/dsigner/core"
	"github.com/domecloud/dsigner/ports"
)

// SigningGateway forwards signing requests to the custodial provider on
// behalf of an authenticated session. The token is resolved before anything
// else so an invalid token never costs an external signing call, and the
// provider's signed artifact is relayed back verbatim.
type SigningGateway struct {
	resolver  *SessionResolver
	custodian ports.Custodian
	logger    *zap.Logger

	// now is injectable so message idempotency keys can be pinned in tests.
	now func() time.Time
}

// NewSigningGateway creates a new signing gateway
func NewSigningGateway(resolver *SessionResolver, custodian ports.Custodian, logger *zap.Logger) *SigningGateway {
	return &SigningGateway{
		resolver:  resolver,
		custodian: custodian,
		logger:    logger.Named("gateway"),
		now:       time.Now,
	}
}

// SignTransaction normalizes the transaction, derives its idempotency key
// from the wallet and nonce, and forwards it for signing. The result is the
// signed transaction hex exactly as the provider returned it.
func (g *SigningGateway) SignTransaction(ctx context.Context, accessToken string, tx *core.Transaction) (string, error) {
	binding, err := g.resolver.Resolve(ctx, accessToken)
	if err != nil {
		return "", err
	}

	if err := tx.Normalize(); err != nil {
		return "", err
	}

	key := core.TransactionIdempotencyKey(binding.Address, tx.Nonce.BigInt())

	signed, err := g.custodian.SignTransaction(ctx, binding.Address, tx, key)
	if err != nil {
		return "", fmt.Errorf("%w: sign transaction: %v", core.ErrProvider, err)
	}
	if signed == "" {
		return "", fmt.Errorf("%w: no signed transaction in response", core.ErrProvider)
	}

	g.logger.Info("signed transaction",
		zap.String("wallet", binding.Address),
		zap.String("idempotency_key", key))

	return signed, nil
}

// SignMessage forwards a message for signing. Messages have no sequence
// number, so the idempotency key is distinguished by the current instant and
// retries are never collapsed here; the provider is the dedup authority.
func (g *SigningGateway) SignMessage(ctx context.Context, accessToken, message string) (string, error) {
	binding, err := g.resolver.Resolve(ctx, accessToken)
	if err != nil {
		return "", err
	}

	key := core.MessageIdempotencyKey(binding.Address, g.now())

	signed, err := g.custodian.SignMessage(ctx, binding.Address, message, key)
	if err != nil {
		return "", fmt.Errorf("%w: sign message: %v", core.ErrProvider, err)
	}
	if signed == "" {
		return "", fmt.Errorf("%w: no signed message in response", core.ErrProvider)
	}

	g.logger.Info("signed message",
		zap.String("wallet", binding.Address),
		zap.String("idempotency_key", key))

	return signed, nil
}

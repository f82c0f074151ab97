package ports

import (
	"context"

	"github.com/domecloud/dsigner/core"
)

// Custodian is the external service holding private keys and performing the
// actual cryptographic signing. Signing operations carry an idempotency key so
// the provider can deduplicate retried requests.
type Custodian interface {
	// CreateWallet provisions a new backend wallet and returns its address.
	CreateWallet(ctx context.Context, label string) (string, error)

	// SignTransaction signs a normalized transaction with the given wallet and
	// returns the signed transaction hex.
	SignTransaction(ctx context.Context, wallet string, tx *core.Transaction, idempotencyKey string) (string, error)

	// SignMessage signs a plain-text message with the given wallet and returns
	// the signature hex.
	SignMessage(ctx context.Context, wallet, message, idempotencyKey string) (string, error)
}

package ports

import (
	"context"

	"github.com/domecloud/dsigner/core"
)

// EventPublisher notifies other systems about newly provisioned wallets
type EventPublisher interface {
	PublishWalletProvisioned(ctx context.Context, binding *core.WalletBinding) error
}

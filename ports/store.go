package ports

import (
	"context"

	"github.com/domecloud/dsigner/core"
)

// BindingStore persists identity to wallet bindings. The relation is
// append-only: bindings are never updated or deleted once created.
type BindingStore interface {
	// Get returns the binding for an identity, or core.ErrNoBinding.
	Get(ctx context.Context, identityID string) (*core.WalletBinding, error)

	// Insert stores the binding unless one already exists for the identity.
	// It returns the durable binding either way, so a losing concurrent insert
	// observes the winner's address instead of an error.
	Insert(ctx context.Context, binding *core.WalletBinding) (*core.WalletBinding, error)
}

package dsigner

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/domecloud/dsigner/core"
)

// Signer is the capability set every dsigner-compatible signer satisfies.
// Callers depend on this set, never on a concrete adapter, so a remote
// delegating signer and a future local-key signer are interchangeable.
type Signer interface {
	// GetAddress returns the wallet address bound to the signer
	GetAddress() (common.Address, error)

	// SignTransaction signs a transaction and returns the signed hex
	SignTransaction(ctx context.Context, tx *core.Transaction) (string, error)

	// SignMessage signs a plain-text message and returns the signature hex
	SignMessage(ctx context.Context, message string) (string, error)

	// Connect rebinds the signer to a different chain RPC provider without
	// touching its credentials. Pure and synchronous.
	Connect(provider Provider) Signer
}

// Provider is the subset of an Ethereum RPC client the signer uses to fill
// missing transaction fields before delegation.
type Provider interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

var _ Provider = (*ethclient.Client)(nil)

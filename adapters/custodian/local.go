package custodian

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	dcore "github.com/domecloud/dsigner/core"
	"github.com/domecloud/dsigner/ports"
)

// LocalCustodian keeps generated secp256k1 keys in memory and signs with them
// directly: EIP-1559 transactions and EIP-191 personal messages. It honors
// idempotency keys the way a hosted custodian would, returning the cached
// artifact for a repeated key instead of signing again.
//
// Keys never leave the process and are lost on restart; this adapter exists
// for development and tests, not for custody.
type LocalCustodian struct {
	keys map[common.Address]*ecdsa.PrivateKey
	seen map[string]string
	mu   sync.Mutex
}

var _ ports.Custodian = (*LocalCustodian)(nil)

// NewLocalCustodian creates a new in-process custodian
func NewLocalCustodian() *LocalCustodian {
	return &LocalCustodian{
		keys: make(map[common.Address]*ecdsa.PrivateKey),
		seen: make(map[string]string),
	}
}

// CreateWallet generates a fresh key pair and returns its address
func (c *LocalCustodian) CreateWallet(ctx context.Context, label string) (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}

	address := crypto.PubkeyToAddress(key.PublicKey)

	c.mu.Lock()
	c.keys[address] = key
	c.mu.Unlock()

	return address.Hex(), nil
}

// SignTransaction signs a normalized transaction as an EIP-1559 transaction
// and returns the RLP-encoded signed transaction hex.
func (c *LocalCustodian) SignTransaction(ctx context.Context, wallet string, tx *dcore.Transaction, idempotencyKey string) (string, error) {
	if tx.Nonce == nil {
		return "", dcore.ErrMissingNonce
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if artifact, ok := c.seen[idempotencyKey]; ok {
		return artifact, nil
	}

	key, err := c.keyFor(wallet)
	if err != nil {
		return "", err
	}

	chainID := big.NewInt(1)
	if tx.ChainID != nil {
		chainID = tx.ChainID.BigInt()
	}

	var to *common.Address
	if tx.To != "" {
		addr := common.HexToAddress(tx.To)
		to = &addr
	}

	var data []byte
	if tx.Data != "" {
		if data, err = hexutil.Decode(tx.Data); err != nil {
			return "", fmt.Errorf("invalid data field: %w", err)
		}
	}

	inner := &types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     tx.Nonce.Uint64(),
		GasTipCap: quantityOrZero(tx.MaxPriorityFeePerGas),
		GasFeeCap: quantityOrZero(tx.MaxFeePerGas),
		Gas:       quantityOrZero(tx.GasLimit).Uint64(),
		To:        to,
		Value:     quantityOrZero(tx.Value),
		Data:      data,
	}

	signed, err := types.SignTx(types.NewTx(inner), types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to encode transaction: %w", err)
	}

	artifact := hexutil.Encode(raw)
	c.seen[idempotencyKey] = artifact
	return artifact, nil
}

// SignMessage signs the EIP-191 personal-message hash of the given text and
// returns the 65-byte signature hex with the legacy 27/28 recovery id.
func (c *LocalCustodian) SignMessage(ctx context.Context, wallet, message, idempotencyKey string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if artifact, ok := c.seen[idempotencyKey]; ok {
		return artifact, nil
	}

	key, err := c.keyFor(wallet)
	if err != nil {
		return "", err
	}

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[64] += 27

	artifact := hexutil.Encode(sig)
	c.seen[idempotencyKey] = artifact
	return artifact, nil
}

// keyFor must be called with the mutex held
func (c *LocalCustodian) keyFor(wallet string) (*ecdsa.PrivateKey, error) {
	if !common.IsHexAddress(wallet) {
		return nil, fmt.Errorf("invalid wallet address %q", wallet)
	}
	key, exists := c.keys[common.HexToAddress(wallet)]
	if !exists {
		return nil, errors.New("unknown backend wallet")
	}
	return key, nil
}

func quantityOrZero(q *dcore.Quantity) *big.Int {
	if q == nil {
		return new(big.Int)
	}
	return q.BigInt()
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/domecloud/dsigner/adapters/store"
	"github.com/domecloud/dsigner/core"
)

const gatewayWallet = "0x5c4CF997239C6E6ac1EdEAB25Cb900FD06B8E265"

func newTestGateway(t *testing.T, custodian *fakeCustodian) *SigningGateway {
	t.Helper()

	identity := newFakeIdentity()
	identity.grant("good-token", &core.Identity{ID: "user-1", Email: "a@b.c"})

	bindings := store.NewMemoryStore()
	_, err := bindings.Insert(context.Background(), &core.WalletBinding{
		IdentityID: "user-1",
		Address:    gatewayWallet,
		Email:      "a@b.c",
	})
	require.NoError(t, err)

	resolver := NewSessionResolver(identity, bindings, zap.NewNop())
	return NewSigningGateway(resolver, custodian, zap.NewNop())
}

func TestGatewayRejectsBeforeSigning(t *testing.T) {
	custodian := newFakeCustodian()
	gateway := newTestGateway(t, custodian)

	tx := &core.Transaction{Nonce: core.QuantityFromUint64(7)}

	_, err := gateway.SignTransaction(context.Background(), "bad-token", tx)
	require.ErrorIs(t, err, core.ErrInvalidToken)

	_, err = gateway.SignMessage(context.Background(), "bad-token", "hello")
	require.ErrorIs(t, err, core.ErrInvalidToken)

	// The custodian must never have been consulted.
	_, signTx, signMsg := custodian.calls()
	require.Zero(t, signTx)
	require.Zero(t, signMsg)
}

func TestGatewayTransactionKeyDeterministic(t *testing.T) {
	custodian := newFakeCustodian()
	gateway := newTestGateway(t, custodian)

	for i := 0; i < 3; i++ {
		tx := &core.Transaction{Nonce: core.QuantityFromUint64(7)}
		_, err := gateway.SignTransaction(context.Background(), "good-token", tx)
		require.NoError(t, err)
	}

	keys := custodian.keys()
	require.Len(t, keys, 3)
	require.Equal(t, "dsigner_tx_0x5c4cf997239c6e6ac1edeab25cb900fd06b8e265_0x7", keys[0])
	require.Equal(t, keys[0], keys[1])
	require.Equal(t, keys[1], keys[2])
}

func TestGatewayMissingNonce(t *testing.T) {
	custodian := newFakeCustodian()
	gateway := newTestGateway(t, custodian)

	_, err := gateway.SignTransaction(context.Background(), "good-token", &core.Transaction{})
	require.ErrorIs(t, err, core.ErrMissingNonce)

	_, signTx, _ := custodian.calls()
	require.Zero(t, signTx)
}

func TestGatewayMessageKeyUsesClock(t *testing.T) {
	custodian := newFakeCustodian()
	gateway := newTestGateway(t, custodian)
	gateway.now = func() time.Time { return time.UnixMilli(1700000000000) }

	_, err := gateway.SignMessage(context.Background(), "good-token", "hello")
	require.NoError(t, err)

	keys := custodian.keys()
	require.Len(t, keys, 1)
	require.Equal(t, "dsigner_msg_0x5c4cf997239c6e6ac1edeab25cb900fd06b8e265_1700000000000", keys[0])
}

func TestGatewayProviderErrors(t *testing.T) {
	t.Run("custodian failure", func(t *testing.T) {
		custodian := newFakeCustodian()
		custodian.signErr = errors.New("engine down")
		gateway := newTestGateway(t, custodian)

		tx := &core.Transaction{Nonce: core.QuantityFromUint64(0)}
		_, err := gateway.SignTransaction(context.Background(), "good-token", tx)
		require.ErrorIs(t, err, core.ErrProvider)
	})

	t.Run("empty artifact", func(t *testing.T) {
		custodian := newFakeCustodian()
		custodian.signArtifact = ""
		gateway := newTestGateway(t, custodian)

		_, err := gateway.SignMessage(context.Background(), "good-token", "hello")
		require.ErrorIs(t, err, core.ErrProvider)
	})
}

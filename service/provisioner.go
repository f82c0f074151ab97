package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/domecloud/dsigner/core"
	"github.com/domecloud/dsigner/ports"
)

// WalletProvisioner creates the custodial wallet for an identity on its first
// sign-in. It is invoked only from the sign-in path, which keeps ordinary
// address lookup read-only.
type WalletProvisioner struct {
	custodian ports.Custodian
	bindings  ports.BindingStore
	events    ports.EventPublisher
	logger    *zap.Logger
}

// NewWalletProvisioner creates a new wallet provisioner
func NewWalletProvisioner(custodian ports.Custodian, bindings ports.BindingStore, events ports.EventPublisher, logger *zap.Logger) *WalletProvisioner {
	return &WalletProvisioner{
		custodian: custodian,
		bindings:  bindings,
		events:    events,
		logger:    logger.Named("provisioner"),
	}
}

// Ensure returns the wallet binding for an identity, creating the custodial
// wallet and persisting the binding when none exists yet. Uniqueness is
// enforced by the store's insert-if-absent, not by in-process locking: two
// concurrent sign-ins race on the insert and the loser adopts the winner's
// address.
func (p *WalletProvisioner) Ensure(ctx context.Context, identity *core.Identity) (*core.WalletBinding, error) {
	binding, err := p.bindings.Get(ctx, identity.ID)
	if err == nil {
		return binding, nil
	}
	if !errors.Is(err, core.ErrNoBinding) {
		return nil, err
	}

	address, err := p.custodian.CreateWallet(ctx, identity.ID)
	if err != nil {
		// Fatal to the sign-in: no partial binding is left behind.
		return nil, fmt.Errorf("%w: create wallet: %v", core.ErrProvider, err)
	}

	winner, err := p.bindings.Insert(ctx, &core.WalletBinding{
		IdentityID: identity.ID,
		Address:    address,
		Email:      identity.Email,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return nil, err
	}

	if winner.Address != address {
		// Lost the race against a concurrent sign-in. The freshly created
		// wallet stays with the custodian unused; the binding is authoritative.
		p.logger.Debug("concurrent provisioning, adopting existing binding",
			zap.String("identity_id", identity.ID),
			zap.String("wallet", winner.Address))
		return winner, nil
	}

	p.logger.Info("provisioned custodial wallet",
		zap.String("identity_id", identity.ID),
		zap.String("wallet", winner.Address))

	if p.events != nil {
		if err := p.events.PublishWalletProvisioned(ctx, winner); err != nil {
			// The binding is durable, which is the part that matters.
			p.logger.Warn("failed to publish wallet provisioned event", zap.Error(err))
		}
	}

	return winner, nil
}

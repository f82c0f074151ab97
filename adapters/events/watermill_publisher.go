package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/domecloud/dsigner/core"
	"github.com/domecloud/dsigner/ports"
)

// ProvisionedTopic is the topic wallet provisioning events are published to
const ProvisionedTopic = "dsigner.wallet.provisioned"

// WalletProvisionedEvent notifies other systems that an identity received
// its custodial wallet
type WalletProvisionedEvent struct {
	IdentityID string `json:"identity_id"`
	Wallet     string `json:"wallet"`
	Email      string `json:"email"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     ProvisionedTopic,
	}
}

// PublishWalletProvisioned publishes a wallet provisioned event
func (p *WatermillPublisher) PublishWalletProvisioned(ctx context.Context, binding *core.WalletBinding) error {
	event := WalletProvisionedEvent{
		IdentityID: binding.IdentityID,
		Wallet:     binding.Address,
		Email:      binding.Email,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

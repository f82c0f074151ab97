package custodian

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/domecloud/dsigner/core"
	"github.com/domecloud/dsigner/ports"
)

const defaultTimeout = 15 * time.Second

// EngineCustodian implements the Custodian interface against an engine-style
// backend wallet API. The target wallet and the idempotency key ride in
// headers; the signed artifact comes back under "result".
type EngineCustodian struct {
	baseURL string
	bearer  string
	client  *http.Client
}

// NewEngineCustodian creates a new engine custodian client
func NewEngineCustodian(baseURL, bearerToken string) ports.Custodian {
	return &EngineCustodian{
		baseURL: strings.TrimRight(baseURL, "/"),
		bearer:  bearerToken,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type engineEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *engineError    `json:"error"`
}

type engineError struct {
	Message string `json:"message"`
}

type createWalletResult struct {
	Status        string `json:"status"`
	WalletAddress string `json:"walletAddress"`
}

// CreateWallet provisions a new backend wallet labeled with the identity ID
func (c *EngineCustodian) CreateWallet(ctx context.Context, label string) (string, error) {
	body := map[string]string{"label": label}
	raw, err := c.post(ctx, "/backend-wallet/create", body, nil)
	if err != nil {
		return "", err
	}

	var result createWalletResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrProvider, err)
	}
	if result.Status != "success" || result.WalletAddress == "" {
		return "", fmt.Errorf("%w: wallet creation status %q", core.ErrProvider, result.Status)
	}

	return result.WalletAddress, nil
}

// SignTransaction forwards a normalized transaction for signing
func (c *EngineCustodian) SignTransaction(ctx context.Context, wallet string, tx *core.Transaction, idempotencyKey string) (string, error) {
	body := map[string]any{"transaction": tx}
	raw, err := c.post(ctx, "/backend-wallet/sign-transaction", body, signingHeaders(wallet, idempotencyKey))
	if err != nil {
		return "", err
	}
	return decodeArtifact(raw)
}

// SignMessage forwards a plain-text message for signing
func (c *EngineCustodian) SignMessage(ctx context.Context, wallet, message, idempotencyKey string) (string, error) {
	body := map[string]any{"message": message, "isBytes": false}
	raw, err := c.post(ctx, "/backend-wallet/sign-message", body, signingHeaders(wallet, idempotencyKey))
	if err != nil {
		return "", err
	}
	return decodeArtifact(raw)
}

func signingHeaders(wallet, idempotencyKey string) map[string]string {
	return map[string]string{
		"x-backend-wallet-address": wallet,
		"x-idempotency-key":        idempotencyKey,
	}
}

// decodeArtifact expects the result to be the signed hex string itself
func decodeArtifact(raw json.RawMessage) (string, error) {
	var artifact string
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrProvider, err)
	}
	if artifact == "" {
		return "", fmt.Errorf("%w: empty signing result", core.ErrProvider)
	}
	return artifact, nil
}

func (c *EngineCustodian) post(ctx context.Context, path string, body any, headers map[string]string) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("custodial provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var envelope engineEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProvider, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := "unknown error"
		if envelope.Error != nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
		return nil, fmt.Errorf("custodial provider: %s (status %d)", msg, resp.StatusCode)
	}

	if envelope.Result == nil {
		return nil, fmt.Errorf("%w: response missing result", core.ErrProvider)
	}
	return envelope.Result, nil
}

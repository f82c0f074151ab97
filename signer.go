// Package dsigner provides a client-side Ethereum signer that holds no key
// material. Every signing operation is delegated over HTTP to a dsigner
// backend, authorized with a bearer session token obtained by signing in.
package dsigner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/domecloud/dsigner/core"
)

const defaultTimeout = 30 * time.Second

// Config configures a RemoteSigner. There is deliberately no address field:
// the bound address only ever comes from the backend, never from the caller.
type Config struct {
	// APIURL is the base URL of the dsigner backend
	APIURL string

	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client

	// Provider is the chain RPC provider used to fill missing transaction
	// fields. Optional; Connect can set it later.
	Provider Provider
}

// RemoteSigner implements the Signer interface by delegating to a dsigner
// backend. It starts unbound; SignIn or SetAccessToken bind it to a wallet
// address, always storing token and address in one atomic update.
type RemoteSigner struct {
	apiURL string
	client *http.Client

	mu          sync.RWMutex
	provider    Provider
	accessToken string
	address     common.Address
	bound       bool
}

var _ Signer = (*RemoteSigner)(nil)

// New creates a new unbound remote signer
func New(cfg Config) *RemoteSigner {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	return &RemoteSigner{
		apiURL:   strings.TrimRight(cfg.APIURL, "/"),
		client:   client,
		provider: cfg.Provider,
	}
}

// SignUp registers a new user. Check the inbox for the confirmation email
// afterwards; no local state changes.
func (s *RemoteSigner) SignUp(ctx context.Context, email, password string) (*core.Identity, error) {
	var out struct {
		User  *core.Identity `json:"user"`
		Error string         `json:"error"`
	}
	status, err := s.post(ctx, "/auth/signup", "", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || out.User == nil {
		return nil, fmt.Errorf("signup failed: %s", errText(out.Error, status))
	}
	return out.User, nil
}

// SignIn authenticates with email and password and binds the signer to the
// wallet the backend returns. Token and address are stored together; there is
// no intermediate state with one set and not the other.
func (s *RemoteSigner) SignIn(ctx context.Context, email, password string) (*core.Identity, error) {
	var out struct {
		User *struct {
			core.Identity
			Wallet string `json:"wallet"`
		} `json:"user"`
		Session *struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
		Error string `json:"error"`
	}
	status, err := s.post(ctx, "/auth/signin", "", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || out.User == nil || out.Session == nil {
		return nil, fmt.Errorf("sign-in failed: %s", errText(out.Error, status))
	}
	if out.Session.AccessToken == "" || !common.IsHexAddress(out.User.Wallet) {
		return nil, fmt.Errorf("sign-in failed: backend returned no wallet binding")
	}

	s.mu.Lock()
	s.accessToken = out.Session.AccessToken
	s.address = common.HexToAddress(out.User.Wallet)
	s.bound = true
	s.mu.Unlock()

	return &out.User.Identity, nil
}

// SetAccessToken adopts an existing session token, resolving the bound
// address from the backend before any state is kept. On failure the signer
// rolls back to unbound: a half-set token is never retained.
func (s *RemoteSigner) SetAccessToken(ctx context.Context, accessToken string) error {
	var out struct {
		Wallet string `json:"wallet"`
		Error  string `json:"error"`
	}
	status, err := s.get(ctx, "/wallet/getAddress", accessToken, &out)

	if err != nil || status != http.StatusOK || !common.IsHexAddress(out.Wallet) {
		s.mu.Lock()
		s.accessToken = ""
		s.address = common.Address{}
		s.bound = false
		s.mu.Unlock()

		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
		}
		return fmt.Errorf("%w: %s", ErrInvalidAccessToken, errText(out.Error, status))
	}

	s.mu.Lock()
	s.accessToken = accessToken
	s.address = common.HexToAddress(out.Wallet)
	s.bound = true
	s.mu.Unlock()

	return nil
}

// GetAddress returns the bound wallet address. Pure local read.
func (s *RemoteSigner) GetAddress() (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.bound {
		return common.Address{}, ErrNotSignedIn
	}
	return s.address, nil
}

// SignTransaction fills missing fields from the connected provider,
// normalizes the transaction and delegates signing to the backend.
func (s *RemoteSigner) SignTransaction(ctx context.Context, tx *core.Transaction) (string, error) {
	token, address, provider, err := s.session()
	if err != nil {
		return "", err
	}

	filled, err := populateTransaction(ctx, tx, address, provider)
	if err != nil {
		return "", err
	}
	if err := filled.Normalize(); err != nil {
		return "", err
	}

	var out struct {
		SignedTransaction string `json:"signedTransaction"`
		Error             string `json:"error"`
	}
	status, err := s.post(ctx, "/wallet/signTransaction", token, map[string]any{"transaction": filled}, &out)
	if err != nil {
		return "", fmt.Errorf("transaction signing failed: %w", err)
	}
	if status == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: sign in or set a fresh access token", ErrInvalidAccessToken)
	}
	if out.SignedTransaction == "" {
		return "", fmt.Errorf("%w: %s", ErrSigningFailed, errText(out.Error, status))
	}

	return out.SignedTransaction, nil
}

// SignMessage delegates message signing to the backend
func (s *RemoteSigner) SignMessage(ctx context.Context, message string) (string, error) {
	token, _, _, err := s.session()
	if err != nil {
		return "", err
	}

	var out struct {
		SignedMessage string `json:"signedMessage"`
		Error         string `json:"error"`
	}
	status, err := s.post(ctx, "/wallet/signMessage", token, map[string]string{"message": message}, &out)
	if err != nil {
		return "", fmt.Errorf("message signing failed: %w", err)
	}
	if status == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: sign in or set a fresh access token", ErrInvalidAccessToken)
	}
	if out.SignedMessage == "" {
		return "", fmt.Errorf("%w: %s", ErrSigningFailed, errText(out.Error, status))
	}

	return out.SignedMessage, nil
}

// Connect rebinds the signer to a different chain RPC provider. Credentials
// and address are untouched; no network call is made.
func (s *RemoteSigner) Connect(provider Provider) Signer {
	s.mu.Lock()
	s.provider = provider
	s.mu.Unlock()
	return s
}

// session snapshots the bound credentials for one remote call
func (s *RemoteSigner) session() (string, common.Address, Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.bound {
		return "", common.Address{}, nil, ErrNotSignedIn
	}
	return s.accessToken, s.address, s.provider, nil
}

// populateTransaction fills nonce, chain id and fee fields from the provider
// when they are missing. Without a provider the nonce must already be set,
// checked before any network call.
func populateTransaction(ctx context.Context, tx *core.Transaction, from common.Address, provider Provider) (*core.Transaction, error) {
	filled := *tx

	if provider == nil {
		if filled.Nonce == nil {
			return nil, core.ErrMissingNonce
		}
		return &filled, nil
	}

	if filled.Nonce == nil {
		nonce, err := provider.PendingNonceAt(ctx, from)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch nonce: %w", err)
		}
		filled.Nonce = core.QuantityFromUint64(nonce)
	}

	if filled.ChainID == nil {
		chainID, err := provider.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch chain id: %w", err)
		}
		filled.ChainID = core.NewQuantity(chainID)
	}

	if filled.MaxFeePerGas == nil && filled.GasPrice == nil {
		tip, err := provider.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch gas tip cap: %w", err)
		}
		price, err := provider.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch gas price: %w", err)
		}
		filled.MaxPriorityFeePerGas = core.NewQuantity(tip)
		filled.MaxFeePerGas = core.NewQuantity(price)
	}

	return &filled, nil
}

func (s *RemoteSigner) post(ctx context.Context, path, token string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}
	return s.do(ctx, http.MethodPost, path, token, bytes.NewReader(payload), out)
}

func (s *RemoteSigner) get(ctx context.Context, path, token string, out any) (int, error) {
	return s.do(ctx, http.MethodGet, path, token, nil, out)
}

func (s *RemoteSigner) do(ctx context.Context, method, path, token string, body io.Reader, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.apiURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("access_token", token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func errText(apiError string, status int) string {
	if apiError != "" {
		return apiError
	}
	return fmt.Sprintf("unexpected response (status %d)", status)
}

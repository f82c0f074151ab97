package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/domecloud/dsigner/core"
)

// fakeIdentity is an IdentityProvider test double keyed by access token
type fakeIdentity struct {
	mu           sync.Mutex
	usersByToken map[string]*core.Identity
	getUserCalls int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{usersByToken: make(map[string]*core.Identity)}
}

func (f *fakeIdentity) grant(token string, identity *core.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usersByToken[token] = identity
}

func (f *fakeIdentity) SignUp(ctx context.Context, email, password string) (*core.Identity, error) {
	return &core.Identity{ID: "id-" + email, Email: email}, nil
}

func (f *fakeIdentity) SignIn(ctx context.Context, email, password string) (*core.Identity, *core.Session, error) {
	identity := &core.Identity{ID: "id-" + email, Email: email}
	token := "token-" + email
	f.grant(token, identity)
	return identity, &core.Session{IdentityID: identity.ID, AccessToken: token}, nil
}

func (f *fakeIdentity) GetUser(ctx context.Context, accessToken string) (*core.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getUserCalls++
	identity, ok := f.usersByToken[accessToken]
	if !ok {
		return nil, errors.New("user not found")
	}
	return identity, nil
}

func (f *fakeIdentity) Resend(ctx context.Context, email string) error {
	return nil
}

// fakeCustodian is a Custodian test double that records every call
type fakeCustodian struct {
	mu           sync.Mutex
	createCalls  int
	signTxCalls  int
	signMsgCalls int
	observedKeys []string
	createErr    error
	signArtifact string
	signErr      error
}

func newFakeCustodian() *fakeCustodian {
	return &fakeCustodian{signArtifact: "0xsigned"}
}

func (f *fakeCustodian) CreateWallet(ctx context.Context, label string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return fmt.Sprintf("0x%040x", f.createCalls), nil
}

func (f *fakeCustodian) SignTransaction(ctx context.Context, wallet string, tx *core.Transaction, idempotencyKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signTxCalls++
	f.observedKeys = append(f.observedKeys, idempotencyKey)
	return f.signArtifact, f.signErr
}

func (f *fakeCustodian) SignMessage(ctx context.Context, wallet, message, idempotencyKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signMsgCalls++
	f.observedKeys = append(f.observedKeys, idempotencyKey)
	return f.signArtifact, f.signErr
}

func (f *fakeCustodian) calls() (create, signTx, signMsg int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.signTxCalls, f.signMsgCalls
}

func (f *fakeCustodian) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.observedKeys...)
}

// fakePublisher is an EventPublisher test double
type fakePublisher struct {
	mu        sync.Mutex
	published []*core.WalletBinding
}

func (f *fakePublisher) PublishWalletProvisioned(ctx context.Context, binding *core.WalletBinding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, binding)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

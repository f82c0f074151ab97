package store

import (
	"context"
	"sync"

	"github.com/domecloud/dsigner/core"
	"github.com/domecloud/dsigner/ports"
)

// MemoryStore is an in-memory implementation of the BindingStore interface,
// for tests and single-node development.
type MemoryStore struct {
	bindings map[string]core.WalletBinding
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.BindingStore {
	return &MemoryStore{
		bindings: make(map[string]core.WalletBinding),
	}
}

// Get returns the binding for an identity
func (s *MemoryStore) Get(ctx context.Context, identityID string) (*core.WalletBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	binding, exists := s.bindings[identityID]
	if !exists {
		return nil, core.ErrNoBinding
	}

	return &binding, nil
}

// Insert stores the binding unless one already exists for the identity.
// The map write under the lock is the uniqueness-enforced insert.
func (s *MemoryStore) Insert(ctx context.Context, binding *core.WalletBinding) (*core.WalletBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.bindings[binding.IdentityID]; exists {
		return &existing, nil
	}

	s.bindings[binding.IdentityID] = *binding
	stored := s.bindings[binding.IdentityID]
	return &stored, nil
}

package core

import "time"

// Identity is a user as known to the identity provider
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Session is a bearer credential issued by the identity provider on sign-in.
// It is opaque to this system beyond the identity it resolves to.
type Session struct {
	IdentityID  string    `json:"-"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// WalletBinding is the durable mapping from an identity to its one custodial
// wallet address. Created exactly once per identity and never mutated.
type WalletBinding struct {
	IdentityID string    `json:"identity_id"`
	Address    string    `json:"wallet"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

package core

import "errors"

var (
	// ErrInvalidToken is returned when an access token is not recognized by the identity provider
	ErrInvalidToken = errors.New("invalid access token")

	// ErrNoBinding is returned when an identity has no custodial wallet bound yet
	ErrNoBinding = errors.New("no wallet bound to identity")

	// ErrProvider is returned when a downstream provider fails or responds with an unexpected shape
	ErrProvider = errors.New("provider returned an unexpected response")

	// ErrMissingNonce is returned when a transaction is submitted for signing without a nonce
	ErrMissingNonce = errors.New("transaction nonce is required")

	// ErrInvalidQuantity is returned when a numeric transaction field cannot be canonicalized
	ErrInvalidQuantity = errors.New("invalid numeric quantity")
)

package dsigner

import "errors"

var (
	// ErrNotSignedIn is returned when the signer is used before it is bound
	// to a wallet address
	ErrNotSignedIn = errors.New("not signed in")

	// ErrInvalidAccessToken is returned when the backend rejects the
	// signer's access token
	ErrInvalidAccessToken = errors.New("invalid access token")

	// ErrSigningFailed is returned when the backend responds without a
	// signed artifact
	ErrSigningFailed = errors.New("signing failed")
)

package store

import "errors"

var (
	// ErrNoCredentials is returned when a credential store is missing,
	// unreadable, or holds no usable credential.
	ErrNoCredentials = errors.New("no credentials found")

	// ErrCredentialNotFound is returned when a wallet update does not match
	// any line of the account store.
	ErrCredentialNotFound = errors.New("credential not found in account store")

	// ErrIncompleteAccount is returned when an account is missing its token,
	// email or password.
	ErrIncompleteAccount = errors.New("account requires token, email and password")
)

package model

import "regexp"

// walletAddressPattern matches a base58 encoded Solana public key.
var walletAddressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// Credential is one automated account.
type Credential struct {
	// Secret is the bearer token sent in the Authorization header.
	// It is never empty for a loaded credential.
	Secret string `json:"token"`

	// Label identifies the credential in status output.
	// It is "Token_N" for the plain store and the email for the account store.
	Label string `json:"-"`

	// Email and Password are only known for credentials from the account store.
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`

	// WalletAddress is the linked public wallet address, if any.
	WalletAddress string `json:"walletAddress,omitempty"`
}

// HasWallet reports whether the credential already carries a valid wallet address.
func (c *Credential) HasWallet() bool {
	return IsValidWalletAddress(c.WalletAddress)
}

// IsValidWalletAddress reports whether s looks like a base58 public key.
func IsValidWalletAddress(s string) bool {
	return walletAddressPattern.MatchString(s)
}

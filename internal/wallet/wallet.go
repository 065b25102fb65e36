// Package wallet generates Solana-compatible ed25519 keypairs.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
)

// Keypair is a freshly generated wallet.
type Keypair struct {
	// Address is the base58 encoded public key.
	Address string

	// Secret is the base64 encoded 64-byte private key. It is shown to the
	// operator once and never persisted.
	Secret string
}

// Generator creates keypairs from a randomness source.
type Generator struct {
	rand io.Reader
}

// NewGenerator creates a Generator reading from r, or from crypto/rand when r is nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Generate creates a new keypair.
func (g *Generator) Generate() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(g.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return &Keypair{
		Address: base58.Encode(pub),
		Secret:  base64.StdEncoding.EncodeToString(priv),
	}, nil
}

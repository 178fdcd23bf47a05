// Package account manages the key pairs and addresses that sign calls to the
// medical NFT registry.
//
// Keys are secp256k1 (go-sdk primitives/ec). An account's address is
// SHA256(compressed public key); deterministic accounts are derived from a
// BIP39 seed along m/44'/283'/0'/0/{index}.
package account

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

// Account holds a signing key and the address it controls.
type Account struct {
	PrivateKey *ec.PrivateKey `json:"-"`
	PublicKey  *ec.PublicKey  `json:"-"`
	Address    Address        `json:"address"`
	Path       string         `json:"path,omitempty"` // derivation path, empty for random keys
}

// NewAccount generates an account from a fresh random key.
func NewAccount() (*Account, error) {
	priv, err := ec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("account: generate key: %w", err)
	}
	return FromPrivateKey(priv)
}

// FromPrivateKey wraps an existing private key.
func FromPrivateKey(priv *ec.PrivateKey) (*Account, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: private key", ErrNilKey)
	}
	pub := priv.PubKey()
	addr, err := AddressFromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &Account{PrivateKey: priv, PublicKey: pub, Address: addr}, nil
}

// Sign signs a 32-byte digest and returns the DER-encoded signature.
func (a *Account) Sign(digest []byte) ([]byte, error) {
	if a == nil || a.PrivateKey == nil {
		return nil, fmt.Errorf("%w: signing key", ErrNilKey)
	}
	sig, err := a.PrivateKey.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return sig.Serialize(), nil
}

// PublicKeyBytes returns the compressed public key.
func (a *Account) PublicKeyBytes() []byte {
	return a.PublicKey.Compressed()
}

// VerifySignature checks a DER signature over digest against a compressed
// public key and returns the address that key controls.
func VerifySignature(pubKey, digest, sig []byte) (Address, error) {
	pub, err := ec.ParsePubKey(pubKey)
	if err != nil {
		return ZeroAddress, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	parsed, err := ec.ParseDERSignature(sig)
	if err != nil {
		return ZeroAddress, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if !parsed.Verify(digest, pub) {
		return ZeroAddress, ErrInvalidSignature
	}
	return AddressFromPublicKey(pub)
}

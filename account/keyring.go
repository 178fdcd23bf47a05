package account

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"
)

const (
	// BIP44 path constants.
	PurposeBIP44  = 44
	CoinType      = 283
	RegistryChain = 0

	// Hardened is the BIP32 hardened offset.
	Hardened = 0x80000000
)

// Keyring derives deterministic accounts from a BIP39 seed.
type Keyring struct {
	masterKey *bip32.ExtendedKey
}

// NewKeyring creates a Keyring from a BIP39 seed.
func NewKeyring(seed []byte) (*Keyring, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	masterKey, err := bip32.NewMaster(seed, &chaincfg.MainNet)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	return &Keyring{masterKey: masterKey}, nil
}

// Derive returns the account at m/44'/283'/0'/0/index.
func (k *Keyring) Derive(index uint32) (*Account, error) {
	if index >= Hardened {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	// m/44'
	purpose, err := k.masterKey.Child(PurposeBIP44 + Hardened)
	if err != nil {
		return nil, fmt.Errorf("%w: purpose derivation: %w", ErrDerivationFailed, err)
	}

	// m/44'/283'
	coin, err := purpose.Child(CoinType + Hardened)
	if err != nil {
		return nil, fmt.Errorf("%w: coin type derivation: %w", ErrDerivationFailed, err)
	}

	// m/44'/283'/0'
	acct, err := coin.Child(Hardened)
	if err != nil {
		return nil, fmt.Errorf("%w: account derivation: %w", ErrDerivationFailed, err)
	}

	// m/44'/283'/0'/0
	chain, err := acct.Child(RegistryChain)
	if err != nil {
		return nil, fmt.Errorf("%w: chain derivation: %w", ErrDerivationFailed, err)
	}

	child, err := chain.Child(index)
	if err != nil {
		return nil, fmt.Errorf("%w: index derivation: %w", ErrDerivationFailed, err)
	}

	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}

	a, err := FromPrivateKey(priv)
	if err != nil {
		return nil, err
	}
	a.Path = fmt.Sprintf("m/44'/%d'/0'/%d/%d", CoinType, RegistryChain, index)
	return a, nil
}

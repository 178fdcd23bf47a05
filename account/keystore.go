package account

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Keystore is the on-disk form of an encrypted seed.
type Keystore struct {
	Version    int    `json:"version"`
	SealedSeed string `json:"sealed_seed"` // hex of EncryptSeed output
	Address    string `json:"address"`     // address of account 0, informational
}

const keystoreVersion = 1

// SaveKeystore seals seed with password and writes it to path.
func SaveKeystore(path string, seed []byte, password string) (*Keystore, error) {
	kr, err := NewKeyring(seed)
	if err != nil {
		return nil, err
	}
	first, err := kr.Derive(0)
	if err != nil {
		return nil, err
	}
	sealed, err := EncryptSeed(seed, password)
	if err != nil {
		return nil, err
	}

	ks := &Keystore{
		Version:    keystoreVersion,
		SealedSeed: hex.EncodeToString(sealed),
		Address:    first.Address.String(),
	}
	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("account: encode keystore: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("account: create keystore directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("account: write keystore: %w", err)
	}
	return ks, nil
}

// LoadKeystore reads the keystore at path and returns a Keyring for its seed.
func LoadKeystore(path, password string) (*Keyring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeystoreNotFound, path)
		}
		return nil, fmt.Errorf("account: read keystore: %w", err)
	}

	var ks Keystore
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("account: parse keystore: %w", err)
	}
	sealed, err := hex.DecodeString(ks.SealedSeed)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	seed, err := DecryptSeed(sealed, password)
	if err != nil {
		return nil, err
	}
	return NewKeyring(seed)
}

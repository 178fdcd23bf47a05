// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the mednftd configuration file (TOML).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// EnvKeystorePassword names the environment variable holding the keystore password.
const EnvKeystorePassword = "MEDNFT_KEYSTORE_PASSWORD"

// Config holds the daemon settings.
type Config struct {
	DataDir    string `toml:"datadir"`
	ListenAddr string `toml:"listen"`
	LogLevel   string `toml:"loglevel"`
	LogFile    string `toml:"logfile"`
	LogJSON    bool   `toml:"logjson"`

	// Policy is "open" or "owner-or-admin".
	Policy string `toml:"policy"`

	// IPFSAPI is the host:port of an IPFS node. Empty keeps content on local disk.
	IPFSAPI string `toml:"ipfs_api"`

	// Faucet is the devnet balance granted to the admin account on first start.
	Faucet uint64 `toml:"faucet"`

	// Keystore is the encrypted seed file. Empty means {datadir}/keystore.json.
	Keystore string `toml:"keystore"`
}

// DefaultDataDir returns ~/.mednft, or .mednft when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mednft"
	}
	return filepath.Join(home, ".mednft")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:    DefaultDataDir(),
		ListenAddr: ":8080",
		LogLevel:   "info",
		Policy:     "open",
		Faucet:     100_000_000,
	}
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// DBPath returns the bbolt database location.
func (c Config) DBPath() string { return filepath.Join(c.DataDir, "mednft.db") }

// IndexDBPath returns the database holding the fingerprint to CID index.
// It is separate from DBPath so content commands run next to a live daemon.
func (c Config) IndexDBPath() string { return filepath.Join(c.DataDir, "content-index.db") }

// ContentDir returns the local content store directory.
func (c Config) ContentDir() string { return filepath.Join(c.DataDir, "content") }

// KeystorePath returns the keystore file, defaulting into the data directory.
func (c Config) KeystorePath() string {
	if c.Keystore != "" {
		return c.Keystore
	}
	return filepath.Join(c.DataDir, "keystore.json")
}

// KeystorePassword reads the keystore password from the environment.
func KeystorePassword() string { return os.Getenv(EnvKeystorePassword) }

// LoadConfig reads the TOML file at path over DefaultConfig.
// Unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as TOML, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("config: create file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, "# MedNFT Configuration"); err != nil {
		return fmt.Errorf("config: write header: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}

package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mednft/libmednft-go/account"
	"github.com/mednft/libmednft-go/config"
	"github.com/mednft/libmednft-go/content"
	"github.com/mednft/libmednft-go/registry"
	"github.com/mednft/libmednft-go/state"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"mednftd"}, args...))
	return out.String(), err
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Faucet = 5 * registry.UnitaryPrice

	mnemonic, err := account.GenerateMnemonic(account.Mnemonic12Words)
	require.NoError(t, err)
	seed, err := account.SeedFromMnemonic(mnemonic, "")
	require.NoError(t, err)
	_, err = account.SaveKeystore(cfg.KeystorePath(), seed, "pw")
	require.NoError(t, err)
	return cfg
}

func TestOpenNode_DeploysOnce(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	n, err := openNode(ctx, cfg, "pw", nil)
	require.NoError(t, err)
	appID := n.appID
	admin := n.admin.Address
	assert.Equal(t, cfg.Faucet, n.net.Balance(admin))

	client := registry.NewClient(n.net, appID)
	id, err := client.Mint(ctx, n.admin, sha256.Sum256([]byte("ct.dcm")), registry.UnitaryPrice)
	require.NoError(t, err)
	require.NoError(t, n.Close())

	n, err = openNode(ctx, cfg, "pw", nil)
	require.NoError(t, err)
	defer n.Close()
	assert.Equal(t, appID, n.appID)
	assert.Len(t, n.net.Apps(), 1)
	assert.Equal(t, cfg.Faucet-registry.UnitaryPrice, n.net.Balance(admin))

	g, err := n.net.Global(appID)
	require.NoError(t, err)
	rec, ok, err := registry.Lookup(g, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, admin, rec.Owner)
}

func TestOpenNode_Errors(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	_, err := openNode(ctx, cfg, "wrong", nil)
	assert.ErrorIs(t, err, account.ErrDecryptionFailed)

	cfg.Keystore = filepath.Join(t.TempDir(), "missing.json")
	_, err = openNode(ctx, cfg, "pw", nil)
	assert.ErrorIs(t, err, account.ErrKeystoreNotFound)

	cfg.Policy = "nobody"
	_, err = openNode(ctx, cfg, "pw", nil)
	assert.Error(t, err)
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "--datadir", dir, "init")
	require.NoError(t, err)
	assert.Equal(t, config.ConfigPath(dir), strings.TrimSpace(out))

	cfg, err := config.LoadConfig(config.ConfigPath(dir))
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)

	_, err = run(t, "--datadir", dir, "init")
	assert.Error(t, err)
	_, err = run(t, "--datadir", dir, "init", "--force")
	assert.NoError(t, err)
}

func TestKeygenCommand(t *testing.T) {
	dir := t.TempDir()

	t.Setenv(config.EnvKeystorePassword, "")
	_, err := run(t, "--datadir", dir, "keygen")
	require.Error(t, err)

	t.Setenv(config.EnvKeystorePassword, "secret")
	_, err = run(t, "--datadir", dir, "keygen", "--words", "15")
	require.Error(t, err)

	out, err := run(t, "--datadir", dir, "keygen", "--words", "24")
	require.NoError(t, err)
	assert.Contains(t, out, "admin:")

	var mnemonic string
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "mnemonic: "); ok {
			mnemonic = rest
		}
	}
	assert.Len(t, strings.Fields(mnemonic), 24)

	kr, err := account.LoadKeystore(filepath.Join(dir, "keystore.json"), "secret")
	require.NoError(t, err)
	first, err := kr.Derive(0)
	require.NoError(t, err)
	assert.Contains(t, out, first.Address.String())

	_, err = run(t, "--datadir", dir, "keygen")
	assert.Error(t, err, "existing keystore must not be overwritten")
}

func TestFingerprintCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(t.TempDir(), "report.pdf")
	data := []byte("discharge summary")
	require.NoError(t, os.WriteFile(file, data, 0600))

	out, err := run(t, "--datadir", dir, "fingerprint", file)
	require.NoError(t, err)
	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), strings.TrimSpace(out))

	fs, err := content.NewFileStore(filepath.Join(dir, "content"))
	require.NoError(t, err)
	got, err := fs.Get(context.Background(), content.Fingerprint(sum))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = run(t, "--datadir", dir, "fingerprint")
	assert.Error(t, err)
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Policy = "owner-or-admin"
	require.NoError(t, config.SaveConfig(config.ConfigPath(dir), cfg))

	_, err := run(t, "--datadir", dir, "--log-level", "verbose", "fingerprint", "x")
	assert.ErrorIs(t, err, config.ErrInvalidLogLevel)

	_, err = run(t, "--datadir", dir, "fingerprint", "--ipfs-api", "nohost", "x")
	assert.ErrorIs(t, err, config.ErrInvalidIPFSAddr)
}

func TestOpenContentStore_IPFSIndexBesideRunningNode(t *testing.T) {
	cfg := testConfig(t)
	n, err := openNode(context.Background(), cfg, "pw", nil)
	require.NoError(t, err)
	defer n.Close()

	cfg.IPFSAPI = "127.0.0.1:1"
	store, closeStore, err := openContentStore(cfg)
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &content.IPFSStore{}, store)

	_, err = state.OpenBoltDB(cfg.DBPath())
	assert.ErrorIs(t, err, state.ErrDatabaseInUse)
}

// Command mednftd runs a medical NFT registry on an in-process ledger and
// serves it over HTTP.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mednft/libmednft-go/config"
)

var (
	flagDataDir = &cli.StringFlag{
		Name:  "datadir",
		Value: config.DefaultDataDir(),
		Usage: "directory holding the database, keystore and content",
	}
	flagConfig = &cli.StringFlag{
		Name:  "config",
		Usage: "configuration file (default {datadir}/config.toml)",
	}
	flagListen = &cli.StringFlag{
		Name:  "listen-addr",
		Usage: "address to listen on for the HTTP API",
	}
	flagLogLevel = &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn, error or disabled",
	}
	flagLogJSON = &cli.BoolFlag{
		Name:  "log-json",
		Usage: "log in JSON format",
	}
	flagPolicy = &cli.StringFlag{
		Name:  "policy",
		Usage: "authorization policy: 'open' or 'owner-or-admin'",
	}
	flagIPFS = &cli.StringFlag{
		Name:  "ipfs-api",
		Usage: "host:port of an IPFS node used for content storage",
	}
	flagWords = &cli.IntFlag{
		Name:  "words",
		Value: 12,
		Usage: "mnemonic length, 12 or 24",
	}
	flagForce = &cli.BoolFlag{
		Name:  "force",
		Usage: "overwrite an existing file",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "mednftd",
		Usage: "medical NFT registry daemon",
		Flags: []cli.Flag{flagDataDir, flagConfig, flagLogLevel, flagLogJSON},
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "write a default configuration file",
				Flags:  []cli.Flag{flagForce},
				Action: runInit,
			},
			{
				Name:   "keygen",
				Usage:  "create the admin keystore (password from " + config.EnvKeystorePassword + ")",
				Flags:  []cli.Flag{flagWords, flagForce},
				Action: runKeygen,
			},
			{
				Name:   "serve",
				Usage:  "run the ledger, deploy the registry once and serve the HTTP API",
				Flags:  []cli.Flag{flagListen, flagPolicy},
				Action: runServe,
			},
			{
				Name:      "fingerprint",
				Usage:     "store a file in the content store and print its fingerprint",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{flagIPFS},
				Action:    runFingerprint,
			},
		},
	}
}

// loadConfig reads the config file, falling back to defaults when it is
// missing, and applies command line overrides.
func loadConfig(cCtx *cli.Context) (config.Config, error) {
	dataDir := cCtx.String(flagDataDir.Name)
	path := cCtx.String(flagConfig.Name)
	if path == "" {
		path = config.ConfigPath(dataDir)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return cfg, err
	}
	if cCtx.IsSet(flagDataDir.Name) || errors.Is(err, config.ErrConfigNotFound) {
		cfg.DataDir = dataDir
	}
	overrides := []struct {
		flag string
		dst  *string
	}{
		{flagListen.Name, &cfg.ListenAddr},
		{flagLogLevel.Name, &cfg.LogLevel},
		{flagPolicy.Name, &cfg.Policy},
		{flagIPFS.Name, &cfg.IPFSAPI},
	}
	for _, o := range overrides {
		if cCtx.IsSet(o.flag) {
			*o.dst = cCtx.String(o.flag)
		}
	}
	if cCtx.IsSet(flagLogJSON.Name) {
		cfg.LogJSON = cCtx.Bool(flagLogJSON.Name)
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func runInit(cCtx *cli.Context) error {
	cfg := config.DefaultConfig()
	cfg.DataDir = cCtx.String(flagDataDir.Name)
	path := cCtx.String(flagConfig.Name)
	if path == "" {
		path = config.ConfigPath(cfg.DataDir)
	}
	if _, err := os.Stat(path); err == nil && !cCtx.Bool(flagForce.Name) {
		return fmt.Errorf("%s already exists (use --force)", path)
	}
	if err := config.SaveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Fprintln(cCtx.App.Writer, path)
	return nil
}

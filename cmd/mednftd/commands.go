package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mednft/libmednft-go/account"
	"github.com/mednft/libmednft-go/config"
	"github.com/mednft/libmednft-go/content"
	"github.com/mednft/libmednft-go/httpapi"
	"github.com/mednft/libmednft-go/logging"
	"github.com/mednft/libmednft-go/state"
)

func runServe(cCtx *cli.Context) error {
	cfg, err := loadConfig(cCtx)
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		JSON:    cfg.LogJSON,
		File:    cfg.LogFile,
		Service: "mednftd",
	})
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := openNode(ctx, cfg, config.KeystorePassword(), &logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	defer n.Close()

	logger.Info().
		Uint64("app_id", n.appID).
		Str("admin", n.admin.Address.String()).
		Str("policy", cfg.Policy).
		Uint64("round", n.net.Round()).
		Msg("registry ready")

	srv, err := httpapi.New(httpapi.Config{
		ListenAddr:               cfg.ListenAddr,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		Logger:                   &logger,
		Metrics:                  n.metrics,
		Gatherer:                 n.reg,
	}, n.net)
	if err != nil {
		return err
	}
	srv.RunInBackground()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	srv.Shutdown()
	return nil
}

func runKeygen(cCtx *cli.Context) error {
	cfg, err := loadConfig(cCtx)
	if err != nil {
		return err
	}
	path := cfg.KeystorePath()
	if _, err := os.Stat(path); err == nil && !cCtx.Bool(flagForce.Name) {
		return fmt.Errorf("%s already exists (use --force)", path)
	}
	password := config.KeystorePassword()
	if password == "" {
		return fmt.Errorf("%s must be set", config.EnvKeystorePassword)
	}

	bits := account.Mnemonic12Words
	switch cCtx.Int(flagWords.Name) {
	case 12:
	case 24:
		bits = account.Mnemonic24Words
	default:
		return fmt.Errorf("--words must be 12 or 24")
	}

	mnemonic, err := account.GenerateMnemonic(bits)
	if err != nil {
		return err
	}
	seed, err := account.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return err
	}
	ks, err := account.SaveKeystore(path, seed, password)
	if err != nil {
		return err
	}

	w := cCtx.App.Writer
	fmt.Fprintf(w, "keystore: %s\n", path)
	fmt.Fprintf(w, "admin:    %s\n", ks.Address)
	fmt.Fprintf(w, "mnemonic: %s\n", mnemonic)
	return nil
}

func runFingerprint(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return errors.New("usage: mednftd fingerprint FILE")
	}
	cfg, err := loadConfig(cCtx)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(cCtx.Args().First())
	if err != nil {
		return err
	}

	store, closeStore, err := openContentStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	fp, err := store.Put(cCtx.Context, data)
	if err != nil {
		return err
	}
	fmt.Fprintln(cCtx.App.Writer, fp)
	return nil
}

// openContentStore returns the IPFS store when an IPFS node is configured and
// the local file store otherwise.
func openContentStore(cfg config.Config) (content.Store, func() error, error) {
	if cfg.IPFSAPI == "" {
		fs, err := content.NewFileStore(cfg.ContentDir())
		if err != nil {
			return nil, nil, err
		}
		return fs, func() error { return nil }, nil
	}

	db, err := state.OpenBoltDB(cfg.IndexDBPath())
	if err != nil {
		return nil, nil, err
	}
	st, err := content.NewIPFSStore(cfg.IPFSAPI, db.Namespace("cids"), nil)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return st, db.Close, nil
}

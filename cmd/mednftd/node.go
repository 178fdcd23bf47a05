package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/mednft/libmednft-go/account"
	"github.com/mednft/libmednft-go/config"
	"github.com/mednft/libmednft-go/ledger"
	"github.com/mednft/libmednft-go/metrics"
	"github.com/mednft/libmednft-go/registry"
	"github.com/mednft/libmednft-go/state"
)

// node is a running ledger with one deployed registry.
type node struct {
	db    *state.BoltDB
	net   *ledger.Devnet
	admin *account.Account
	appID uint64

	reg     *prometheus.Registry
	metrics *metrics.Metrics
}

// openNode opens the database, restores the ledger and makes sure the admin's
// registry exists.
func openNode(ctx context.Context, cfg config.Config, password string, log *zerolog.Logger) (*node, error) {
	policy, err := registry.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	kr, err := account.LoadKeystore(cfg.KeystorePath(), password)
	if err != nil {
		return nil, fmt.Errorf("load keystore (run 'mednftd keygen' first): %w", err)
	}
	admin, err := kr.Derive(0)
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	db, err := state.OpenBoltDB(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	net, err := ledger.NewDevnet(ledger.Options{
		Programs: map[string]ledger.Program{
			registry.ProgramName: registry.New(registry.Options{Policy: policy, Logger: log, Metrics: m}),
		},
		Globals:   func(appID uint64) state.Store { return db.Global(appID) },
		Persister: db,
		Logger:    log,
		Metrics:   m,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	appID, err := ensureRegistry(ctx, net, admin, cfg.Faucet)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &node{db: db, net: net, admin: admin, appID: appID, reg: promReg, metrics: m}, nil
}

func (n *node) Close() error { return n.db.Close() }

// ensureRegistry returns the admin's registry, funding the admin and
// deploying it on first start.
func ensureRegistry(ctx context.Context, net *ledger.Devnet, admin *account.Account, faucet uint64) (uint64, error) {
	for _, app := range net.Apps() {
		if app.Creator == admin.Address && app.Program == registry.ProgramName {
			return app.ID, nil
		}
	}
	if net.Balance(admin.Address) == 0 && faucet > 0 {
		if err := net.Fund(admin.Address, faucet); err != nil {
			return 0, err
		}
	}
	appID, err := registry.Deploy(ctx, net, admin)
	if err != nil {
		return 0, fmt.Errorf("deploy registry: %w", err)
	}
	return appID, nil
}

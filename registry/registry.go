// Package registry implements the medical NFT registry: the approval logic
// run by the ledger for every call addressed to a deployed registry.
//
// A registry mints single-unit assets against a fixed payment, keeps one
// record per token (content fingerprint and current owner) in its global
// state, and moves custody with two asymmetric operations: share sends the
// unit out of the registry's own holding, revoke claws it back to the caller.
// Code replacement and deletion are always refused.
package registry

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mednft/libmednft-go/ledger"
	"github.com/mednft/libmednft-go/logging"
	"github.com/mednft/libmednft-go/metrics"
)

const (
	// ProgramName is the name the registry is deployed under.
	ProgramName = "medical-nft"

	// PaymentSlot is the group index of the mint payment.
	PaymentSlot = 1

	// AssetUnitName is the unit name of every minted asset.
	AssetUnitName = "MEDNFT"

	// AssetNamePrefix prefixes the decimal token id in asset names.
	AssetNamePrefix = "MedicalNFT_"
)

// AssetName returns the asset name for token id, e.g. "MedicalNFT_7".
func AssetName(id uint64) string {
	return fmt.Sprintf("%s%d", AssetNamePrefix, id)
}

// CallKind is the first application argument of a registry call.
type CallKind string

const (
	CallMint   CallKind = "mint"
	CallShare  CallKind = "share"
	CallRevoke CallKind = "revoke"
	CallGetNFT CallKind = "get_nft"
)

// Policy selects who may share and revoke.
type Policy uint8

const (
	// PolicyOpen lets any caller share or revoke any existing token.
	PolicyOpen Policy = iota

	// PolicyOwnerOrAdmin lets only the recorded owner share and only the
	// registry creator revoke.
	PolicyOwnerOrAdmin
)

func (p Policy) String() string {
	switch p {
	case PolicyOpen:
		return "open"
	case PolicyOwnerOrAdmin:
		return "owner-or-admin"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// ParsePolicy parses "open" or "owner-or-admin". Empty means open.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open":
		return PolicyOpen, nil
	case "owner-or-admin":
		return PolicyOwnerOrAdmin, nil
	}
	return PolicyOpen, fmt.Errorf("registry: unknown policy %q", s)
}

// Options configures a Registry.
type Options struct {
	Policy  Policy
	Logger  *zerolog.Logger
	Metrics *metrics.Metrics
}

// Registry is the registry's approval program.
type Registry struct {
	policy  Policy
	log     zerolog.Logger
	metrics *metrics.Metrics
}

var _ ledger.Program = (*Registry)(nil)

// New creates a registry program.
func New(opts Options) *Registry {
	r := &Registry{policy: opts.Policy, log: zerolog.Nop(), metrics: opts.Metrics}
	if opts.Logger != nil {
		r.log = logging.Component(*opts.Logger, "registry")
	}
	return r
}

// Policy returns the authorization policy in force.
func (r *Registry) Policy() Policy { return r.policy }

// Approve evaluates one call addressed to the registry.
func (r *Registry) Approve(ctx *ledger.EvalContext) (*ledger.Result, error) {
	label := callLabel(ctx)
	res, err := r.dispatch(ctx)

	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
		r.log.Debug().Err(err).Uint64("app", ctx.AppID).Str("call", label).
			Stringer("sender", ctx.Sender()).Msg("call rejected")
	} else {
		r.log.Debug().Uint64("app", ctx.AppID).Str("call", label).
			Stringer("sender", ctx.Sender()).Msg("call approved")
	}
	r.metrics.IncrementCall(label, outcome)
	return res, err
}

func (r *Registry) dispatch(ctx *ledger.EvalContext) (*ledger.Result, error) {
	if ctx.Creating {
		return nil, r.initialize(ctx)
	}
	switch ctx.Txn().OnCompletion {
	case ledger.OptIn:
		return nil, r.attach(ctx)
	case ledger.CloseOut, ledger.ClearState:
		return nil, r.detach(ctx)
	case ledger.UpdateApplication:
		return nil, fmt.Errorf("%w: replace logic", ErrDisallowedLifecycleTransition)
	case ledger.DeleteApplication:
		return nil, fmt.Errorf("%w: delete", ErrDisallowedLifecycleTransition)
	}

	first, ok := ctx.Arg(0)
	if !ok {
		return nil, fmt.Errorf("%w: no arguments", ErrUnknownCallKind)
	}
	switch CallKind(first) {
	case CallMint:
		return r.mint(ctx)
	case CallShare:
		return r.share(ctx)
	case CallRevoke:
		return r.revoke(ctx)
	case CallGetNFT:
		return r.getNFT(ctx)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCallKind, first)
}

// initialize sets the price and a zero token count on creation.
func (r *Registry) initialize(ctx *ledger.EvalContext) error {
	if err := Initialize(ctx.Global); err != nil {
		return err
	}
	r.log.Info().Uint64("app", ctx.AppID).Stringer("creator", ctx.Creator).
		Uint64("price", UnitaryPrice).Msg("registry initialized")
	return nil
}

// attach accepts an opt-in. It has no state effect.
func (r *Registry) attach(*ledger.EvalContext) error { return nil }

// detach accepts a close-out. It has no state effect.
func (r *Registry) detach(*ledger.EvalContext) error { return nil }

// getNFT returns the raw stored record of a token, empty when absent.
func (r *Registry) getNFT(ctx *ledger.EvalContext) (*ledger.Result, error) {
	id, err := tokenIDArg(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := ReadRaw(ctx.Global, id)
	if err != nil {
		return nil, err
	}
	return &ledger.Result{Return: raw}, nil
}

func tokenIDArg(ctx *ledger.EvalContext) (uint64, error) {
	arg, ok := ctx.Arg(1)
	if !ok {
		return 0, fmt.Errorf("%w: missing token id", ErrInvalidArguments)
	}
	return btoi(arg)
}

func callLabel(ctx *ledger.EvalContext) string {
	if ctx.Creating {
		return "create"
	}
	if oc := ctx.Txn().OnCompletion; oc != ledger.NoOp {
		return oc.String()
	}
	first, _ := ctx.Arg(0)
	switch k := CallKind(first); k {
	case CallMint, CallShare, CallRevoke, CallGetNFT:
		return string(k)
	}
	return "unknown"
}

package registry

import (
	"fmt"

	"github.com/mednft/libmednft-go/account"
	"github.com/mednft/libmednft-go/ledger"
)

// share moves the token's unit out of the registry's holding to the
// recipient given as the second argument and records the recipient as owner.
func (r *Registry) share(ctx *ledger.EvalContext) (*ledger.Result, error) {
	id, err := tokenIDArg(ctx)
	if err != nil {
		return nil, err
	}
	raw, ok := ctx.Arg(2)
	if !ok {
		return nil, fmt.Errorf("%w: missing recipient", ErrInvalidArguments)
	}
	recipient, err := account.AddressFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient: %w", ErrInvalidArguments, err)
	}

	st, err := LoadState(ctx.Global)
	if err != nil {
		return nil, err
	}
	rec, ok := st.Record(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownToken, id)
	}
	if r.policy == PolicyOwnerOrAdmin && ctx.Sender() != rec.Owner {
		return nil, fmt.Errorf("%w: only the owner may share token %d", ErrUnauthorized, id)
	}

	if err := transferFromRegistry(ctx, id, recipient); err != nil {
		return nil, err
	}
	st.putRecord(id, rec.WithOwner(recipient))
	if err := st.Flush(ctx.Global); err != nil {
		return nil, err
	}

	r.log.Info().Uint64("app", ctx.AppID).Uint64("token", id).Stringer("to", recipient).Msg("token shared")
	return nil, nil
}

// revoke claws the token's unit back from the account referenced at index 1
// to the caller and records the caller as owner.
func (r *Registry) revoke(ctx *ledger.EvalContext) (*ledger.Result, error) {
	id, err := tokenIDArg(ctx)
	if err != nil {
		return nil, err
	}

	st, err := LoadState(ctx.Global)
	if err != nil {
		return nil, err
	}
	rec, ok := st.Record(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownToken, id)
	}
	currentOwner, err := ctx.AccountRef(1)
	if err != nil {
		return nil, fmt.Errorf("%w: current owner: %w", ErrInvalidArguments, err)
	}
	caller := ctx.Sender()
	if r.policy == PolicyOwnerOrAdmin && caller != ctx.Creator {
		return nil, fmt.Errorf("%w: only the registry creator may revoke token %d", ErrUnauthorized, id)
	}

	if err := clawbackToCaller(ctx, id, currentOwner); err != nil {
		return nil, err
	}
	st.putRecord(id, rec.WithOwner(caller))
	if err := st.Flush(ctx.Global); err != nil {
		return nil, err
	}

	r.log.Info().Uint64("app", ctx.AppID).Uint64("token", id).Stringer("from", currentOwner).
		Stringer("to", caller).Msg("token revoked")
	return nil, nil
}

// transferFromRegistry sends one unit of asset id from the registry account.
func transferFromRegistry(ctx *ledger.EvalContext, id uint64, to account.Address) error {
	_, err := ctx.Submit(ledger.AssetTransfer{AssetID: id, Amount: 1, To: to})
	if err != nil {
		return fmt.Errorf("%w: transfer asset %d: %w", ErrLedgerOperationFailed, id, err)
	}
	return nil
}

// clawbackToCaller takes one unit of asset id from holder and gives it to
// the caller, using the registry's clawback authority.
func clawbackToCaller(ctx *ledger.EvalContext, id uint64, holder account.Address) error {
	_, err := ctx.Submit(ledger.AssetTransfer{AssetID: id, Amount: 1, RevokeFrom: holder, To: ctx.Sender()})
	if err != nil {
		return fmt.Errorf("%w: claw back asset %d: %w", ErrLedgerOperationFailed, id, err)
	}
	return nil
}

package registry

import (
	"fmt"

	"github.com/mednft/libmednft-go/ledger"
)

// mint validates the payment at PaymentSlot, creates a single-unit asset
// managed and clawable by the registry, and records the caller as owner of
// the new token. The new token id is returned as 8 big-endian bytes.
func (r *Registry) mint(ctx *ledger.EvalContext) (*ledger.Result, error) {
	arg, ok := ctx.Arg(1)
	if !ok {
		return nil, fmt.Errorf("%w: missing fingerprint", ErrInvalidArguments)
	}
	fp, err := ParseFingerprint(arg)
	if err != nil {
		return nil, err
	}

	st, err := LoadState(ctx.Global)
	if err != nil {
		return nil, err
	}
	if err := checkPayment(ctx, st.UnitaryPrice); err != nil {
		return nil, err
	}
	if st.TokenCount >= MaxTokens {
		return nil, fmt.Errorf("%w: %d of %d minted", ErrCapacityExceeded, st.TokenCount, MaxTokens)
	}

	caller := ctx.Sender()
	newID := st.TokenCount + 1
	res, err := ctx.Submit(ledger.AssetConfig{
		Total:     1,
		Decimals:  0,
		UnitName:  AssetUnitName,
		AssetName: AssetName(newID),
		Manager:   ctx.AppAddress,
		Clawback:  ctx.AppAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create asset: %w", ErrLedgerOperationFailed, err)
	}
	if res.AssetID != newID {
		// share and revoke address the asset by token id.
		return nil, fmt.Errorf("%w: created asset %d for token %d", ErrLedgerOperationFailed, res.AssetID, newID)
	}

	id, err := st.appendToken(TokenRecord{Fingerprint: fp, Owner: caller})
	if err != nil {
		return nil, err
	}
	if err := st.Flush(ctx.Global); err != nil {
		return nil, err
	}

	r.metrics.IncrementMinted()
	r.log.Info().Uint64("app", ctx.AppID).Uint64("token", id).Stringer("owner", caller).Msg("token minted")
	return &ledger.Result{Return: itob(id)}, nil
}

// checkPayment requires the group transaction at PaymentSlot to pay at
// least price from the caller to the registry account.
func checkPayment(ctx *ledger.EvalContext, price uint64) error {
	pay, err := ctx.GroupTxn(PaymentSlot)
	if err != nil {
		return fmt.Errorf("%w: no transaction at slot %d", ErrInvalidPayment, PaymentSlot)
	}
	switch {
	case pay.Type != ledger.TypePayment:
		return fmt.Errorf("%w: slot %d is %q, not a payment", ErrInvalidPayment, PaymentSlot, pay.Type)
	case pay.Sender != ctx.Sender():
		return fmt.Errorf("%w: paid by %s, not the caller", ErrInvalidPayment, pay.Sender)
	case pay.Receiver != ctx.AppAddress:
		return fmt.Errorf("%w: paid to %s, not the registry", ErrInvalidPayment, pay.Receiver)
	case pay.Amount < price:
		return fmt.Errorf("%w: amount %d below price %d", ErrInvalidPayment, pay.Amount, price)
	}
	return nil
}

package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mednft/libmednft-go/account"
	"github.com/mednft/libmednft-go/state"
)

// Program is the approval logic of a deployed application. It runs once for
// every application call addressed to it. Returning an error rejects the
// whole group.
type Program interface {
	Approve(ctx *EvalContext) (*Result, error)
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(ctx *EvalContext) (*Result, error)

// Approve calls f(ctx).
func (f ProgramFunc) Approve(ctx *EvalContext) (*Result, error) { return f(ctx) }

// Result is what an approving program hands back to the caller.
type Result struct {
	Return []byte
}

// InnerOp is a ledger operation submitted by a running program.
type InnerOp interface {
	innerOp()
}

// AssetConfig creates a new asset held entirely by the submitting application.
type AssetConfig struct {
	Total     uint64
	Decimals  uint32
	UnitName  string
	AssetName string
	Manager   account.Address
	Clawback  account.Address
}

// AssetTransfer moves units of an asset. With RevokeFrom unset the units come
// from the submitter's own holding; otherwise they are clawed back from
// RevokeFrom, which requires the submitter to be the asset's clawback address.
type AssetTransfer struct {
	AssetID    uint64
	Amount     uint64
	RevokeFrom account.Address
	To         account.Address
}

func (AssetConfig) innerOp()   {}
func (AssetTransfer) innerOp() {}

// InnerResult reports the effect of an inner operation.
type InnerResult struct {
	AssetID uint64 // created or moved asset
}

// Executor applies inner operations on behalf of sender.
type Executor interface {
	Execute(sender account.Address, op InnerOp) (InnerResult, error)
}

// EvalContext is the view a Program gets of the call being evaluated.
type EvalContext struct {
	Context    context.Context
	Group      []Txn
	Index      int
	AppID      uint64
	AppAddress account.Address
	Creator    account.Address
	Creating   bool
	Global     state.Store
	Executor   Executor
	Logger     zerolog.Logger
}

// Txn returns the application call being evaluated.
func (c *EvalContext) Txn() *Txn { return &c.Group[c.Index] }

// Sender returns the caller.
func (c *EvalContext) Sender() account.Address { return c.Group[c.Index].Sender }

// GroupTxn returns transaction i of the group.
func (c *EvalContext) GroupTxn(i int) (*Txn, error) {
	if i < 0 || i >= len(c.Group) {
		return nil, fmt.Errorf("%w: group index %d of %d", ErrIndexOutOfRange, i, len(c.Group))
	}
	return &c.Group[i], nil
}

// Arg returns application argument i.
func (c *EvalContext) Arg(i int) ([]byte, bool) {
	args := c.Txn().Args
	if i < 0 || i >= len(args) {
		return nil, false
	}
	return args[i], true
}

// NumArgs returns the number of application arguments.
func (c *EvalContext) NumArgs() int { return len(c.Txn().Args) }

// AccountRef resolves account reference i: 0 is the sender, i > 0 is
// Accounts[i-1].
func (c *EvalContext) AccountRef(i int) (account.Address, error) {
	t := c.Txn()
	if i == 0 {
		return t.Sender, nil
	}
	if i < 0 || i > len(t.Accounts) {
		return account.ZeroAddress, fmt.Errorf("%w: account reference %d of %d", ErrIndexOutOfRange, i, len(t.Accounts))
	}
	return t.Accounts[i-1], nil
}

// Submit executes op as the application account.
func (c *EvalContext) Submit(op InnerOp) (InnerResult, error) {
	if c.Executor == nil {
		return InnerResult{}, fmt.Errorf("%w: executor", ErrNilParam)
	}
	return c.Executor.Execute(c.AppAddress, op)
}

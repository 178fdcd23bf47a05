package ledger

import "github.com/mednft/libmednft-go/account"

// MockExecutor is a test double for Executor.
// ExecuteFn must be set before Execute is called.
type MockExecutor struct {
	ExecuteFn func(sender account.Address, op InnerOp) (InnerResult, error)
}

var _ Executor = (*MockExecutor)(nil)

func (m *MockExecutor) Execute(sender account.Address, op InnerOp) (InnerResult, error) {
	return m.ExecuteFn(sender, op)
}

// RecordingExecutor records every submitted op and answers asset creations
// with sequential ids starting at 1.
type RecordingExecutor struct {
	Ops     []InnerOp
	Senders []account.Address
	Fail    error // returned for every op when set
	next    uint64
}

var _ Executor = (*RecordingExecutor)(nil)

func (r *RecordingExecutor) Execute(sender account.Address, op InnerOp) (InnerResult, error) {
	if r.Fail != nil {
		return InnerResult{}, r.Fail
	}
	r.Ops = append(r.Ops, op)
	r.Senders = append(r.Senders, sender)
	switch o := op.(type) {
	case AssetConfig:
		r.next++
		return InnerResult{AssetID: r.next}, nil
	case AssetTransfer:
		return InnerResult{AssetID: o.AssetID}, nil
	}
	return InnerResult{}, nil
}

package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mednft/libmednft-go/account"
)

func newTestAccount(t *testing.T) *account.Account {
	t.Helper()
	a, err := account.NewAccount()
	require.NoError(t, err)
	return a
}

func TestTxn_Validate(t *testing.T) {
	snd := newTestAccount(t).Address
	rcv := newTestAccount(t).Address

	tests := []struct {
		name    string
		txn     Txn
		wantErr bool
	}{
		{"payment", Txn{Type: TypePayment, Sender: snd, Receiver: rcv, Amount: 1}, false},
		{"payment without receiver", Txn{Type: TypePayment, Sender: snd}, true},
		{"missing sender", Txn{Type: TypePayment, Receiver: rcv}, true},
		{"app create", Txn{Type: TypeAppCall, Sender: snd, Program: "p"}, false},
		{"app create without program", Txn{Type: TypeAppCall, Sender: snd}, true},
		{"app create with optin", Txn{Type: TypeAppCall, Sender: snd, Program: "p", OnCompletion: OptIn}, true},
		{"app call", Txn{Type: TypeAppCall, Sender: snd, AppID: 1, OnCompletion: DeleteApplication}, false},
		{"bad on-completion", Txn{Type: TypeAppCall, Sender: snd, AppID: 1, OnCompletion: 9}, true},
		{"asset transfer", Txn{Type: TypeAssetTransfer, Sender: snd, XferAsset: 1, AssetReceiver: rcv}, false},
		{"asset transfer without asset", Txn{Type: TypeAssetTransfer, Sender: snd, AssetReceiver: rcv}, true},
		{"asset transfer without receiver", Txn{Type: TypeAssetTransfer, Sender: snd, XferAsset: 1}, true},
		{"unknown type", Txn{Type: "keyreg", Sender: snd}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.txn.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTxn)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTxn_IDChangesWithContent(t *testing.T) {
	snd := newTestAccount(t).Address
	a := Txn{Type: TypeAppCall, Sender: snd, AppID: 1, Args: [][]byte{[]byte("get_nft")}}
	b := a
	b.Args = [][]byte{[]byte("mint")}

	assert.Equal(t, a.ID(), a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEqual(t, GroupID([]Txn{a, b}), GroupID([]Txn{b, a}))
}

func TestSignVerify(t *testing.T) {
	acct := newTestAccount(t)
	other := newTestAccount(t)
	txn := Txn{Type: TypePayment, Sender: acct.Address, Receiver: other.Address, Amount: 5}

	stx, err := Sign(txn, acct)
	require.NoError(t, err)
	require.NoError(t, stx.Verify())

	// Tampering with the transaction breaks the signature.
	stx.Txn.Amount = 6
	assert.ErrorIs(t, stx.Verify(), ErrBadSignature)

	// A valid signature by a non-sender key is rejected.
	forged, err := Sign(Txn{Type: TypePayment, Sender: other.Address, Receiver: other.Address}, other)
	require.NoError(t, err)
	forged.Txn.Sender = acct.Address
	assert.ErrorIs(t, forged.Verify(), ErrBadSignature)

	_, err = Sign(txn, other)
	assert.ErrorIs(t, err, ErrBadSignature)
	_, err = Sign(txn, nil)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestSignedTxn_JSON(t *testing.T) {
	acct := newTestAccount(t)
	txn := Txn{
		Type:         TypeAppCall,
		Sender:       acct.Address,
		AppID:        3,
		OnCompletion: OptIn,
		Args:         [][]byte{[]byte("share"), {0, 1}},
		Accounts:     []account.Address{acct.Address},
	}
	stx, err := Sign(txn, acct)
	require.NoError(t, err)

	data, err := json.Marshal(stx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"apan":"optin"`)

	var back SignedTxn
	require.NoError(t, json.Unmarshal(data, &back))
	assert.NoError(t, back.Verify())
	assert.Equal(t, txn.ID(), back.Txn.ID())
}

func TestOnCompletion_Text(t *testing.T) {
	for oc := NoOp; oc <= DeleteApplication; oc++ {
		text, err := oc.MarshalText()
		require.NoError(t, err)
		var back OnCompletion
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, oc, back)
	}
	var oc OnCompletion
	assert.ErrorIs(t, oc.UnmarshalText([]byte("destroy")), ErrInvalidTxn)
	_, err := OnCompletion(42).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidTxn)
}

func TestApplicationAddress(t *testing.T) {
	assert.Equal(t, ApplicationAddress(1), ApplicationAddress(1))
	assert.NotEqual(t, ApplicationAddress(1), ApplicationAddress(2))
	assert.False(t, ApplicationAddress(1).IsZero())
}

func TestEvalContext_References(t *testing.T) {
	snd := newTestAccount(t).Address
	ref := newTestAccount(t).Address
	ctx := &EvalContext{
		Group: []Txn{
			{Type: TypeAppCall, Sender: snd, AppID: 1, Args: [][]byte{[]byte("revoke")}, Accounts: []account.Address{ref}},
			{Type: TypePayment, Sender: snd, Receiver: ref},
		},
	}

	got, err := ctx.AccountRef(0)
	require.NoError(t, err)
	assert.Equal(t, snd, got)
	got, err = ctx.AccountRef(1)
	require.NoError(t, err)
	assert.Equal(t, ref, got)
	_, err = ctx.AccountRef(2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	pay, err := ctx.GroupTxn(1)
	require.NoError(t, err)
	assert.Equal(t, TypePayment, pay.Type)
	_, err = ctx.GroupTxn(2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	arg, ok := ctx.Arg(0)
	assert.True(t, ok)
	assert.Equal(t, "revoke", string(arg))
	_, ok = ctx.Arg(1)
	assert.False(t, ok)
	assert.Equal(t, 1, ctx.NumArgs())

	_, err = ctx.Submit(AssetConfig{Total: 1})
	assert.ErrorIs(t, err, ErrNilParam)
}

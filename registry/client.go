package registry

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mednft/libmednft-go/account"
	"github.com/mednft/libmednft-go/ledger"
)

// Submitter applies signed call groups. *ledger.Devnet implements it.
type Submitter interface {
	SubmitGroup(ctx context.Context, stxns []ledger.SignedTxn) (*ledger.GroupResult, error)
}

// CreateTxn deploys a new registry.
func CreateTxn(creator account.Address) ledger.Txn {
	return ledger.Txn{Type: ledger.TypeAppCall, Sender: creator, Program: ProgramName}
}

// MintGroup returns the [call, payment] group minting a token for fp.
func MintGroup(caller account.Address, appID uint64, fp [FingerprintSize]byte, amount uint64) []ledger.Txn {
	return []ledger.Txn{
		{
			Type:   ledger.TypeAppCall,
			Sender: caller,
			AppID:  appID,
			Args:   [][]byte{[]byte(CallMint), fp[:]},
		},
		{
			Type:     ledger.TypePayment,
			Sender:   caller,
			Receiver: ledger.ApplicationAddress(appID),
			Amount:   amount,
		},
	}
}

// ShareTxn transfers token id from the registry to recipient.
func ShareTxn(caller account.Address, appID, id uint64, recipient account.Address) ledger.Txn {
	return ledger.Txn{
		Type:   ledger.TypeAppCall,
		Sender: caller,
		AppID:  appID,
		Args:   [][]byte{[]byte(CallShare), itob(id), recipient.Bytes()},
	}
}

// RevokeTxn claws token id back from currentOwner to caller.
func RevokeTxn(caller account.Address, appID, id uint64, currentOwner account.Address) ledger.Txn {
	return ledger.Txn{
		Type:     ledger.TypeAppCall,
		Sender:   caller,
		AppID:    appID,
		Args:     [][]byte{[]byte(CallRevoke), itob(id)},
		Accounts: []account.Address{currentOwner},
	}
}

// GetNFTTxn queries the record of token id.
func GetNFTTxn(caller account.Address, appID, id uint64) ledger.Txn {
	return ledger.Txn{
		Type:   ledger.TypeAppCall,
		Sender: caller,
		AppID:  appID,
		Args:   [][]byte{[]byte(CallGetNFT), itob(id)},
	}
}

// LifecycleTxn is an argument-less call with the given on-completion.
func LifecycleTxn(caller account.Address, appID uint64, oc ledger.OnCompletion) ledger.Txn {
	return ledger.Txn{Type: ledger.TypeAppCall, Sender: caller, AppID: appID, OnCompletion: oc}
}

// AssetOptInTxn opts holder into asset id so it can receive the token.
func AssetOptInTxn(holder account.Address, assetID uint64) ledger.Txn {
	return ledger.Txn{Type: ledger.TypeAssetTransfer, Sender: holder, XferAsset: assetID, AssetReceiver: holder}
}

// Client signs and submits registry calls for one deployed registry.
type Client struct {
	net   Submitter
	appID uint64
}

// NewClient returns a client for registry appID.
func NewClient(net Submitter, appID uint64) *Client {
	return &Client{net: net, appID: appID}
}

// Deploy creates a registry owned by admin and returns its application id.
func Deploy(ctx context.Context, net Submitter, admin *account.Account) (uint64, error) {
	res, err := submit(ctx, net, admin, CreateTxn(admin.Address))
	if err != nil {
		return 0, err
	}
	return res.Txns[0].CreatedApp, nil
}

// AppID returns the registry's application id.
func (c *Client) AppID() uint64 { return c.appID }

// Mint pays amount and mints a token for fp, returning the token id.
func (c *Client) Mint(ctx context.Context, caller *account.Account, fp [FingerprintSize]byte, amount uint64) (uint64, error) {
	res, err := submit(ctx, c.net, caller, MintGroup(caller.Address, c.appID, fp, amount)...)
	if err != nil {
		return 0, err
	}
	ret := res.Txns[0].Return
	if len(ret) != 8 {
		return 0, fmt.Errorf("registry: mint returned %d bytes", len(ret))
	}
	return binary.BigEndian.Uint64(ret), nil
}

// Share transfers token id from the registry to recipient.
func (c *Client) Share(ctx context.Context, caller *account.Account, id uint64, recipient account.Address) error {
	_, err := submit(ctx, c.net, caller, ShareTxn(caller.Address, c.appID, id, recipient))
	return err
}

// Revoke claws token id back from currentOwner to caller.
func (c *Client) Revoke(ctx context.Context, caller *account.Account, id uint64, currentOwner account.Address) error {
	_, err := submit(ctx, c.net, caller, RevokeTxn(caller.Address, c.appID, id, currentOwner))
	return err
}

// GetNFT returns the raw record of token id, empty when absent.
func (c *Client) GetNFT(ctx context.Context, caller *account.Account, id uint64) ([]byte, error) {
	res, err := submit(ctx, c.net, caller, GetNFTTxn(caller.Address, c.appID, id))
	if err != nil {
		return nil, err
	}
	return res.Txns[0].Return, nil
}

// OptInAsset opts holder into the asset of token id.
func (c *Client) OptInAsset(ctx context.Context, holder *account.Account, assetID uint64) error {
	_, err := submit(ctx, c.net, holder, AssetOptInTxn(holder.Address, assetID))
	return err
}

// submit signs every txn with signer and submits them as one group.
func submit(ctx context.Context, net Submitter, signer *account.Account, txns ...ledger.Txn) (*ledger.GroupResult, error) {
	if signer == nil {
		return nil, fmt.Errorf("registry: nil signer")
	}
	stxns := make([]ledger.SignedTxn, len(txns))
	for i, txn := range txns {
		stx, err := ledger.Sign(txn, signer)
		if err != nil {
			return nil, err
		}
		stxns[i] = stx
	}
	return net.SubmitGroup(ctx, stxns)
}

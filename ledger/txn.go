package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mednft/libmednft-go/account"
)

// MaxGroupSize is the largest number of transactions in one group.
const MaxGroupSize = 16

// TxType names a transaction type.
type TxType string

const (
	TypePayment       TxType = "pay"
	TypeAppCall       TxType = "appl"
	TypeAssetTransfer TxType = "axfer"
)

// OnCompletion selects the lifecycle action of an application call.
type OnCompletion uint8

const (
	NoOp OnCompletion = iota
	OptIn
	CloseOut
	ClearState
	UpdateApplication
	DeleteApplication
)

var onCompletionNames = [...]string{"noop", "optin", "closeout", "clearstate", "update", "delete"}

func (oc OnCompletion) String() string {
	if int(oc) < len(onCompletionNames) {
		return onCompletionNames[oc]
	}
	return fmt.Sprintf("OnCompletion(%d)", uint8(oc))
}

// MarshalText implements encoding.TextMarshaler.
func (oc OnCompletion) MarshalText() ([]byte, error) {
	if int(oc) >= len(onCompletionNames) {
		return nil, fmt.Errorf("%w: on-completion %d", ErrInvalidTxn, oc)
	}
	return []byte(oc.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (oc *OnCompletion) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range onCompletionNames {
		if n == name {
			*oc = OnCompletion(i)
			return nil
		}
	}
	return fmt.Errorf("%w: on-completion %q", ErrInvalidTxn, text)
}

// Txn is one transaction of a call group. Which fields apply depends on Type.
type Txn struct {
	Type   TxType          `json:"type"`
	Sender account.Address `json:"snd"`
	Note   []byte          `json:"note,omitempty"`

	// Payment
	Receiver account.Address `json:"rcv"`
	Amount   uint64          `json:"amt,omitempty"`

	// Application call. AppID 0 creates the application running Program.
	AppID        uint64            `json:"apid,omitempty"`
	OnCompletion OnCompletion      `json:"apan"`
	Args         [][]byte          `json:"apaa,omitempty"`
	Accounts     []account.Address `json:"apat,omitempty"`
	Program      string            `json:"apap,omitempty"`

	// Asset transfer. A zero amount sent to oneself opts into the asset.
	// A non-zero AssetSender makes this a clawback by the asset's clawback address.
	XferAsset     uint64          `json:"xaid,omitempty"`
	AssetAmount   uint64          `json:"aamt,omitempty"`
	AssetSender   account.Address `json:"asnd"`
	AssetReceiver account.Address `json:"arcv"`
}

// ID returns the transaction id: SHA256("TX" || JSON(txn)).
func (t *Txn) ID() [32]byte {
	data, _ := json.Marshal(t) // all fields are marshalable
	h := sha256.New()
	h.Write([]byte("TX"))
	h.Write(data)
	var id [32]byte
	copy(id[:], h.Sum(nil))
	return id
}

// Validate checks the fields required by the transaction type.
func (t *Txn) Validate() error {
	if t.Sender.IsZero() {
		return fmt.Errorf("%w: missing sender", ErrInvalidTxn)
	}
	switch t.Type {
	case TypePayment:
		if t.Receiver.IsZero() {
			return fmt.Errorf("%w: payment without receiver", ErrInvalidTxn)
		}
	case TypeAppCall:
		if t.OnCompletion > DeleteApplication {
			return fmt.Errorf("%w: on-completion %d", ErrInvalidTxn, t.OnCompletion)
		}
		if t.AppID == 0 && t.Program == "" {
			return fmt.Errorf("%w: application create without program", ErrInvalidTxn)
		}
		if t.AppID == 0 && t.OnCompletion != NoOp {
			return fmt.Errorf("%w: application create with %s", ErrInvalidTxn, t.OnCompletion)
		}
	case TypeAssetTransfer:
		if t.XferAsset == 0 {
			return fmt.Errorf("%w: asset transfer without asset", ErrInvalidTxn)
		}
		if t.AssetReceiver.IsZero() {
			return fmt.Errorf("%w: asset transfer without receiver", ErrInvalidTxn)
		}
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidTxn, t.Type)
	}
	return nil
}

// SignedTxn is a transaction with its sender's signature.
type SignedTxn struct {
	Txn    Txn    `json:"txn"`
	PubKey []byte `json:"pk"`
	Sig    []byte `json:"sig"`
}

// Sign signs txn with acct, which must be the sender.
func Sign(txn Txn, acct *account.Account) (SignedTxn, error) {
	if acct == nil {
		return SignedTxn{}, fmt.Errorf("%w: account", ErrNilParam)
	}
	if acct.Address != txn.Sender {
		return SignedTxn{}, fmt.Errorf("%w: signer %s is not sender %s", ErrBadSignature, acct.Address, txn.Sender)
	}
	id := txn.ID()
	sig, err := acct.Sign(id[:])
	if err != nil {
		return SignedTxn{}, err
	}
	return SignedTxn{Txn: txn, PubKey: acct.PublicKeyBytes(), Sig: sig}, nil
}

// Verify checks that the signature covers the transaction and belongs to its sender.
func (s *SignedTxn) Verify() error {
	id := s.Txn.ID()
	addr, err := account.VerifySignature(s.PubKey, id[:], s.Sig)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	if addr != s.Txn.Sender {
		return fmt.Errorf("%w: key does not control sender", ErrBadSignature)
	}
	return nil
}

// GroupID returns SHA256("TG" || id_0 || ... || id_n).
func GroupID(txns []Txn) [32]byte {
	h := sha256.New()
	h.Write([]byte("TG"))
	for i := range txns {
		id := txns[i].ID()
		h.Write(id[:])
	}
	var gid [32]byte
	copy(gid[:], h.Sum(nil))
	return gid
}

// ApplicationAddress returns the account controlled by application appID:
// SHA256("appID" || BE64(appID)).
func ApplicationAddress(appID uint64) account.Address {
	buf := make([]byte, 0, 13)
	buf = append(buf, "appID"...)
	buf = binary.BigEndian.AppendUint64(buf, appID)
	return account.Address(sha256.Sum256(buf))
}

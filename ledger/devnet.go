package ledger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mednft/libmednft-go/account"
	"github.com/mednft/libmednft-go/logging"
	"github.com/mednft/libmednft-go/metrics"
	"github.com/mednft/libmednft-go/state"
)

// snapshotBlob is the Persister key of the serialized ledger.
const snapshotBlob = "ledger/snapshot"

// Asset is a ledger asset.
type Asset struct {
	ID       uint64          `json:"id"`
	Total    uint64          `json:"total"`
	Decimals uint32          `json:"decimals"`
	UnitName string          `json:"unit_name"`
	Name     string          `json:"name"`
	Creator  account.Address `json:"creator"`
	Manager  account.Address `json:"manager"`
	Clawback account.Address `json:"clawback"`
}

// App is a deployed application.
type App struct {
	ID      uint64          `json:"id"`
	Creator account.Address `json:"creator"`
	Program string          `json:"program"`
	Address account.Address `json:"address"`
}

type accountState struct {
	Balance uint64            `json:"balance"`
	Apps    map[uint64]bool   `json:"apps,omitempty"`
	Assets  map[uint64]uint64 `json:"assets,omitempty"` // key present = opted in
}

type snapshot struct {
	Round     uint64                            `json:"round"`
	NextApp   uint64                            `json:"next_app"`
	NextAsset uint64                            `json:"next_asset"`
	Accounts  map[account.Address]*accountState `json:"accounts"`
	Apps      map[uint64]*App                   `json:"apps"`
	Assets    map[uint64]*Asset                 `json:"assets"`
}

func newSnapshot() *snapshot {
	return &snapshot{
		NextApp:   1,
		NextAsset: 1,
		Accounts:  make(map[account.Address]*accountState),
		Apps:      make(map[uint64]*App),
		Assets:    make(map[uint64]*Asset),
	}
}

func (s *snapshot) clone() *snapshot {
	c := &snapshot{
		Round:     s.Round,
		NextApp:   s.NextApp,
		NextAsset: s.NextAsset,
		Accounts:  make(map[account.Address]*accountState, len(s.Accounts)),
		Apps:      make(map[uint64]*App, len(s.Apps)),
		Assets:    make(map[uint64]*Asset, len(s.Assets)),
	}
	for addr, a := range s.Accounts {
		ac := &accountState{Balance: a.Balance}
		if a.Apps != nil {
			ac.Apps = make(map[uint64]bool, len(a.Apps))
			for k, v := range a.Apps {
				ac.Apps[k] = v
			}
		}
		if a.Assets != nil {
			ac.Assets = make(map[uint64]uint64, len(a.Assets))
			for k, v := range a.Assets {
				ac.Assets[k] = v
			}
		}
		c.Accounts[addr] = ac
	}
	for id, app := range s.Apps {
		cp := *app
		c.Apps[id] = &cp
	}
	for id, as := range s.Assets {
		cp := *as
		c.Assets[id] = &cp
	}
	return c
}

func (s *snapshot) account(addr account.Address) *accountState {
	a, ok := s.Accounts[addr]
	if !ok {
		a = &accountState{}
		s.Accounts[addr] = a
	}
	return a
}

// Persister stores the serialized ledger. state.BoltDB implements it.
type Persister interface {
	PutBlob(name string, data []byte) error
	GetBlob(name string) ([]byte, error)
}

// Options configures a Devnet.
type Options struct {
	// Programs maps program names to their logic.
	Programs map[string]Program

	// Globals returns the global store of an application.
	// Nil keeps every application's state in memory.
	Globals func(appID uint64) state.Store

	// Persister saves the ledger after every committed group. Optional.
	Persister Persister

	Logger  *zerolog.Logger
	Metrics *metrics.Metrics
}

// Devnet is an in-process ledger. It applies call groups one at a time and
// either commits every effect of a group or none.
type Devnet struct {
	mu        sync.RWMutex
	snap      *snapshot
	programs  map[string]Program
	globals   map[uint64]state.Store
	newGlobal func(appID uint64) state.Store
	persist   Persister
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

// NewDevnet creates a devnet, restoring the persisted ledger if one exists.
func NewDevnet(opts Options) (*Devnet, error) {
	d := &Devnet{
		snap:      newSnapshot(),
		programs:  make(map[string]Program, len(opts.Programs)),
		globals:   make(map[uint64]state.Store),
		newGlobal: opts.Globals,
		persist:   opts.Persister,
		log:       zerolog.Nop(),
		metrics:   opts.Metrics,
	}
	if opts.Logger != nil {
		d.log = logging.Component(*opts.Logger, "ledger")
	}
	if d.newGlobal == nil {
		d.newGlobal = func(uint64) state.Store { return state.NewMemStore() }
	}
	for name, p := range opts.Programs {
		d.programs[name] = p
	}

	if d.persist != nil {
		data, err := d.persist.GetBlob(snapshotBlob)
		switch {
		case errors.Is(err, state.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("ledger: load snapshot: %w", err)
		default:
			snap := newSnapshot()
			if err := json.Unmarshal(data, snap); err != nil {
				return nil, fmt.Errorf("ledger: decode snapshot: %w", err)
			}
			d.snap = snap
			d.log.Info().Uint64("round", snap.Round).Int("apps", len(snap.Apps)).Msg("ledger restored")
		}
	}
	return d, nil
}

// RegisterProgram makes p available for application creation under name.
func (d *Devnet) RegisterProgram(name string, p Program) error {
	if p == nil {
		return fmt.Errorf("%w: program", ErrNilParam)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.programs[name] = p
	return nil
}

// Fund credits amount to addr outside of any group.
func (d *Devnet) Fund(addr account.Address, amount uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap.account(addr).Balance += amount
	return d.save()
}

// TxnResult describes one applied transaction.
type TxnResult struct {
	ID            string   `json:"id"`
	CreatedApp    uint64   `json:"created_app,omitempty"`
	CreatedAssets []uint64 `json:"created_assets,omitempty"`
	Return        []byte   `json:"return,omitempty"`
}

// GroupResult describes a committed group.
type GroupResult struct {
	GroupID string      `json:"group_id"`
	Round   uint64      `json:"round"`
	Txns    []TxnResult `json:"txns"`
}

// SubmitGroup verifies and applies a call group atomically. A rejection
// is a *RejectError and leaves the ledger unchanged.
func (d *Devnet) SubmitGroup(ctx context.Context, stxns []SignedTxn) (*GroupResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(stxns) == 0 {
		return nil, ErrEmptyGroup
	}
	if len(stxns) > MaxGroupSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrGroupTooLarge, len(stxns), MaxGroupSize)
	}

	group := make([]Txn, len(stxns))
	for i := range stxns {
		if err := stxns[i].Txn.Validate(); err != nil {
			return nil, d.rejected("", reject(i, err))
		}
		if err := stxns[i].Verify(); err != nil {
			return nil, d.rejected("", reject(i, err))
		}
		group[i] = stxns[i].Txn
	}
	gid := GroupID(group)
	gidHex := hex.EncodeToString(gid[:])

	start := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	defer func() { d.metrics.ObserveGroupLatency(time.Since(start)) }()

	e := &groupEval{
		d:        d,
		ctx:      ctx,
		work:     d.snap.clone(),
		overlays: make(map[uint64]*state.Overlay),
		group:    group,
	}
	res := &GroupResult{GroupID: gidHex, Round: d.snap.Round + 1, Txns: make([]TxnResult, len(group))}
	for i := range group {
		tr, err := e.apply(i)
		if err != nil {
			return nil, d.rejected(gidHex, reject(i, err))
		}
		res.Txns[i] = tr
	}

	// TODO: commit every app's overlay and the snapshot in one bbolt
	// transaction. Today each overlay commits on its own, so a failure on the
	// second app leaves the first app's writes in place, and a crash before
	// save splits global state from the snapshot.
	for appID, o := range e.overlays {
		if err := o.Commit(); err != nil {
			return nil, d.rejected(gidHex, fmt.Errorf("ledger: commit global state of app %d: %w", appID, err))
		}
	}
	e.work.Round++
	d.snap = e.work

	// The group is committed from here on. A failed save only loses it on
	// restart, so the caller still gets the result.
	if err := d.save(); err != nil {
		d.log.Error().Err(err).Str("group", gidHex).Uint64("round", res.Round).Msg("persist ledger")
	}

	d.metrics.IncrementGroup("committed")
	d.log.Debug().Str("group", gidHex).Int("txns", len(group)).Uint64("round", res.Round).Msg("group committed")
	return res, nil
}

func (d *Devnet) rejected(gid string, err error) error {
	d.metrics.IncrementGroup("rejected")
	d.log.Info().Err(err).Str("group", gid).Msg("group rejected")
	return err
}

// save persists the ledger. Callers hold d.mu.
func (d *Devnet) save() error {
	if d.persist == nil {
		return nil
	}
	data, err := json.Marshal(d.snap)
	if err != nil {
		return fmt.Errorf("ledger: encode snapshot: %w", err)
	}
	if err := d.persist.PutBlob(snapshotBlob, data); err != nil {
		return fmt.Errorf("ledger: save snapshot: %w", err)
	}
	return nil
}

// global returns the cached base store of appID. Callers hold d.mu.
func (d *Devnet) global(appID uint64) state.Store {
	s, ok := d.globals[appID]
	if !ok {
		s = d.newGlobal(appID)
		d.globals[appID] = s
	}
	return s
}

// groupEval applies one group to a working copy of the ledger.
type groupEval struct {
	d        *Devnet
	ctx      context.Context
	work     *snapshot
	overlays map[uint64]*state.Overlay
	group    []Txn
	created  []uint64 // assets created by the txn being applied
}

func (e *groupEval) apply(i int) (TxnResult, error) {
	t := &e.group[i]
	id := t.ID()
	tr := TxnResult{ID: hex.EncodeToString(id[:])}

	switch t.Type {
	case TypePayment:
		return tr, e.pay(t)
	case TypeAssetTransfer:
		return tr, e.assetTransfer(t)
	case TypeAppCall:
		e.created = nil
		appID, ret, err := e.appCall(i)
		if err != nil {
			return tr, err
		}
		if t.AppID == 0 {
			tr.CreatedApp = appID
		}
		tr.CreatedAssets = e.created
		tr.Return = ret
		return tr, nil
	}
	return tr, fmt.Errorf("%w: type %q", ErrInvalidTxn, t.Type)
}

func (e *groupEval) pay(t *Txn) error {
	from := e.work.account(t.Sender)
	if from.Balance < t.Amount {
		return fmt.Errorf("%w: balance %d < %d", ErrInsufficientFunds, from.Balance, t.Amount)
	}
	from.Balance -= t.Amount
	e.work.account(t.Receiver).Balance += t.Amount
	return nil
}

func (e *groupEval) assetTransfer(t *Txn) error {
	asset, ok := e.work.Assets[t.XferAsset]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAsset, t.XferAsset)
	}
	if !t.AssetSender.IsZero() {
		if asset.Clawback != t.Sender {
			return fmt.Errorf("%w: asset %d", ErrNotClawback, asset.ID)
		}
		return e.moveAsset(asset.ID, t.AssetSender, t.AssetReceiver, t.AssetAmount)
	}
	if t.Sender == t.AssetReceiver && t.AssetAmount == 0 {
		holder := e.work.account(t.Sender)
		if holder.Assets == nil {
			holder.Assets = make(map[uint64]uint64)
		}
		if _, opted := holder.Assets[asset.ID]; !opted {
			holder.Assets[asset.ID] = 0
		}
		return nil
	}
	return e.moveAsset(asset.ID, t.Sender, t.AssetReceiver, t.AssetAmount)
}

func (e *groupEval) moveAsset(assetID uint64, from, to account.Address, amount uint64) error {
	src := e.work.account(from)
	have, ok := src.Assets[assetID]
	if !ok {
		return fmt.Errorf("%w: %s does not hold asset %d", ErrNotOptedIn, from, assetID)
	}
	dst := e.work.account(to)
	if _, ok := dst.Assets[assetID]; !ok {
		return fmt.Errorf("%w: %s has not opted into asset %d", ErrNotOptedIn, to, assetID)
	}
	if have < amount {
		return fmt.Errorf("%w: %s holds %d of asset %d, need %d", ErrInsufficientAsset, from, have, assetID, amount)
	}
	src.Assets[assetID] -= amount
	dst.Assets[assetID] += amount
	return nil
}

func (e *groupEval) appCall(i int) (uint64, []byte, error) {
	t := &e.group[i]
	creating := t.AppID == 0

	var app *App
	if creating {
		if _, ok := e.d.programs[t.Program]; !ok {
			return 0, nil, fmt.Errorf("%w: %q", ErrUnknownProgram, t.Program)
		}
		id := e.work.NextApp
		e.work.NextApp++
		app = &App{ID: id, Creator: t.Sender, Program: t.Program, Address: ApplicationAddress(id)}
		e.work.Apps[id] = app
		e.work.account(app.Address)
	} else {
		var ok bool
		if app, ok = e.work.Apps[t.AppID]; !ok {
			return 0, nil, fmt.Errorf("%w: %d", ErrUnknownApp, t.AppID)
		}
	}

	sender := e.work.account(t.Sender)
	opted := sender.Apps[app.ID]
	switch t.OnCompletion {
	case ClearState:
		// Clearing state never runs the program and cannot be refused.
		if !opted {
			return app.ID, nil, fmt.Errorf("%w: app %d", ErrNotOptedIn, app.ID)
		}
		delete(sender.Apps, app.ID)
		return app.ID, nil, nil
	case OptIn:
		if opted {
			return app.ID, nil, fmt.Errorf("%w: app %d", ErrAlreadyOptedIn, app.ID)
		}
	case CloseOut:
		if !opted {
			return app.ID, nil, fmt.Errorf("%w: app %d", ErrNotOptedIn, app.ID)
		}
	}

	prog, ok := e.d.programs[app.Program]
	if !ok {
		return app.ID, nil, fmt.Errorf("%w: %q", ErrUnknownProgram, app.Program)
	}
	global := e.global(app.ID)
	result, err := prog.Approve(&EvalContext{
		Context:    e.ctx,
		Group:      e.group,
		Index:      i,
		AppID:      app.ID,
		AppAddress: app.Address,
		Creator:    app.Creator,
		Creating:   creating,
		Global:     global,
		Executor:   (*innerExecutor)(e),
		Logger:     e.d.log,
	})
	if err != nil {
		return app.ID, nil, fmt.Errorf("%w: %w", ErrProgramRejected, err)
	}

	switch t.OnCompletion {
	case OptIn:
		if sender.Apps == nil {
			sender.Apps = make(map[uint64]bool)
		}
		sender.Apps[app.ID] = true
	case CloseOut:
		delete(sender.Apps, app.ID)
	case UpdateApplication:
		if t.Program != "" {
			if _, ok := e.d.programs[t.Program]; !ok {
				return app.ID, nil, fmt.Errorf("%w: %q", ErrUnknownProgram, t.Program)
			}
			app.Program = t.Program
		}
	case DeleteApplication:
		keys, err := global.Keys()
		if err != nil {
			return app.ID, nil, err
		}
		for _, k := range keys {
			if err := global.Delete(k); err != nil {
				return app.ID, nil, err
			}
		}
		delete(e.work.Apps, app.ID)
	}

	if result == nil {
		return app.ID, nil, nil
	}
	return app.ID, result.Return, nil
}

func (e *groupEval) global(appID uint64) *state.Overlay {
	o, ok := e.overlays[appID]
	if !ok {
		// NewOverlay only fails on a nil base.
		o, _ = state.NewOverlay(e.d.global(appID))
		e.overlays[appID] = o
	}
	return o
}

// innerExecutor applies inner operations to the group's working copy.
type innerExecutor groupEval

func (x *innerExecutor) Execute(sender account.Address, op InnerOp) (InnerResult, error) {
	e := (*groupEval)(x)
	switch o := op.(type) {
	case AssetConfig:
		id := e.work.NextAsset
		e.work.NextAsset++
		e.work.Assets[id] = &Asset{
			ID:       id,
			Total:    o.Total,
			Decimals: o.Decimals,
			UnitName: o.UnitName,
			Name:     o.AssetName,
			Creator:  sender,
			Manager:  o.Manager,
			Clawback: o.Clawback,
		}
		creator := e.work.account(sender)
		if creator.Assets == nil {
			creator.Assets = make(map[uint64]uint64)
		}
		creator.Assets[id] = o.Total
		e.created = append(e.created, id)
		return InnerResult{AssetID: id}, nil

	case AssetTransfer:
		asset, ok := e.work.Assets[o.AssetID]
		if !ok {
			return InnerResult{}, fmt.Errorf("%w: %d", ErrUnknownAsset, o.AssetID)
		}
		from := sender
		if !o.RevokeFrom.IsZero() {
			if asset.Clawback != sender {
				return InnerResult{}, fmt.Errorf("%w: asset %d", ErrNotClawback, asset.ID)
			}
			from = o.RevokeFrom
		}
		if err := e.moveAsset(asset.ID, from, o.To, o.Amount); err != nil {
			return InnerResult{}, err
		}
		return InnerResult{AssetID: asset.ID}, nil
	}
	return InnerResult{}, fmt.Errorf("%w: inner op %T", ErrInvalidTxn, op)
}

// --- read access ---

// Round returns the number of committed groups.
func (d *Devnet) Round() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap.Round
}

// Balance returns addr's balance.
func (d *Devnet) Balance(addr account.Address) uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if a, ok := d.snap.Accounts[addr]; ok {
		return a.Balance
	}
	return 0
}

// AssetHolding returns addr's units of assetID and whether addr opted in.
func (d *Devnet) AssetHolding(addr account.Address, assetID uint64) (uint64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.snap.Accounts[addr]
	if !ok {
		return 0, false
	}
	n, ok := a.Assets[assetID]
	return n, ok
}

// OptedIn reports whether addr has opted into appID.
func (d *Devnet) OptedIn(addr account.Address, appID uint64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.snap.Accounts[addr]
	return ok && a.Apps[appID]
}

// App returns the application with id.
func (d *Devnet) App(id uint64) (App, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	app, ok := d.snap.Apps[id]
	if !ok {
		return App{}, fmt.Errorf("%w: %d", ErrUnknownApp, id)
	}
	return *app, nil
}

// Apps returns all applications ordered by id.
func (d *Devnet) Apps() []App {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]App, 0, len(d.snap.Apps))
	for _, app := range d.snap.Apps {
		out = append(out, *app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Asset returns the asset with id.
func (d *Devnet) Asset(id uint64) (Asset, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	as, ok := d.snap.Assets[id]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %d", ErrUnknownAsset, id)
	}
	return *as, nil
}

// ReadGlobal runs fn over the committed global state of appID while holding
// the ledger lock, so no group commits in between fn's reads.
func (d *Devnet) ReadGlobal(appID uint64, fn func(state.Store) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.snap.Apps[appID]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownApp, appID)
	}
	return fn(d.global(appID))
}

// Global returns the committed global state of appID. Reads through it are
// not isolated from later commits; use ReadGlobal for a consistent view.
func (d *Devnet) Global(appID uint64) (state.Store, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.snap.Apps[appID]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownApp, appID)
	}
	return d.global(appID), nil
}

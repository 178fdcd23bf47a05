package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mednft/libmednft-go/account"
	"github.com/mednft/libmednft-go/ledger"
	"github.com/mednft/libmednft-go/metrics"
	"github.com/mednft/libmednft-go/registry"
	"github.com/mednft/libmednft-go/state"
)

type fixture struct {
	t      *testing.T
	net    *ledger.Devnet
	client *registry.Client
	admin  *account.Account
	user   *account.Account
	srv    *Server
	ts     *httptest.Server
	reg    *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	net, err := ledger.NewDevnet(ledger.Options{
		Programs: map[string]ledger.Program{
			registry.ProgramName: registry.New(registry.Options{}),
			"noop": ledger.ProgramFunc(func(*ledger.EvalContext) (*ledger.Result, error) {
				return &ledger.Result{}, nil
			}),
		},
	})
	require.NoError(t, err)

	admin, err := account.NewAccount()
	require.NoError(t, err)
	user, err := account.NewAccount()
	require.NoError(t, err)
	for _, a := range []*account.Account{admin, user} {
		require.NoError(t, net.Fund(a.Address, 10*registry.UnitaryPrice))
	}
	appID, err := registry.Deploy(context.Background(), net, admin)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srv, err := New(Config{Metrics: metrics.New(reg), Gatherer: reg}, net)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{
		t: t, net: net, client: registry.NewClient(net, appID),
		admin: admin, user: user, srv: srv, ts: ts, reg: reg,
	}
}

func (f *fixture) get(path string, out any) int {
	f.t.Helper()
	resp, err := http.Get(f.ts.URL + path)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	assert.NotEmpty(f.t, resp.Header.Get(RequestIDHeader))
	if out != nil {
		require.NoError(f.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) post(body []byte, out any) int {
	f.t.Helper()
	resp, err := http.Post(f.ts.URL+"/v1/groups", "application/json", bytes.NewReader(body))
	require.NoError(f.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(f.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) signedGroup(signer *account.Account, txns ...ledger.Txn) []byte {
	f.t.Helper()
	stxns := make([]ledger.SignedTxn, len(txns))
	for i, txn := range txns {
		stx, err := ledger.Sign(txn, signer)
		require.NoError(f.t, err)
		stxns[i] = stx
	}
	body, err := json.Marshal(stxns)
	require.NoError(f.t, err)
	return body
}

func (f *fixture) appPath() string {
	return "/v1/registries/" + strconv.FormatUint(f.client.AppID(), 10)
}

func TestNew_NilLedger(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	var body map[string]any
	assert.Equal(t, http.StatusOK, f.get("/livez", &body))
	assert.Equal(t, "alive", body["status"])

	assert.Equal(t, http.StatusOK, f.get("/readyz", &body))
	assert.Equal(t, "ready", body["status"])

	f.srv.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, f.get("/readyz", &body))
	assert.Equal(t, "not ready", body["status"])
}

func TestRegistryView(t *testing.T) {
	f := newFixture(t)
	fp := sha256.Sum256([]byte("scan.dcm"))
	id, err := f.client.Mint(context.Background(), f.user, fp, registry.UnitaryPrice)
	require.NoError(t, err)

	var view RegistryView
	require.Equal(t, http.StatusOK, f.get(f.appPath(), &view))
	assert.Equal(t, f.client.AppID(), view.AppID)
	assert.Equal(t, ledger.ApplicationAddress(f.client.AppID()), view.Address)
	assert.Equal(t, f.admin.Address, view.Creator)
	assert.Equal(t, registry.UnitaryPrice, view.UnitaryPrice)
	assert.Equal(t, uint64(1), view.TokenCount)
	assert.Equal(t, registry.MaxTokens, view.Capacity)
	assert.Equal(t, []uint64{id}, view.Tokens)
}

func TestNFTView(t *testing.T) {
	f := newFixture(t)
	fp := sha256.Sum256([]byte("xray.png"))
	id, err := f.client.Mint(context.Background(), f.user, fp, registry.UnitaryPrice)
	require.NoError(t, err)

	var nft NFTView
	require.Equal(t, http.StatusOK, f.get(f.appPath()+"/nfts/"+strconv.FormatUint(id, 10), &nft))
	assert.Equal(t, id, nft.TokenID)
	assert.Equal(t, "MedicalNFT_1", nft.AssetName)
	assert.Equal(t, hex.EncodeToString(fp[:]), nft.Fingerprint)
	assert.Equal(t, f.user.Address, nft.Owner)
}

func TestReadErrors(t *testing.T) {
	f := newFixture(t)

	res, err := ledger.Sign(ledger.Txn{Type: ledger.TypeAppCall, Sender: f.admin.Address, Program: "noop"}, f.admin)
	require.NoError(t, err)
	created, err := f.net.SubmitGroup(context.Background(), []ledger.SignedTxn{res})
	require.NoError(t, err)
	noopApp := strconv.FormatUint(created.Txns[0].CreatedApp, 10)

	tests := []struct {
		name   string
		path   string
		status int
		kind   string
	}{
		{"bad app id", "/v1/registries/abc", http.StatusBadRequest, ""},
		{"unknown app", "/v1/registries/999", http.StatusNotFound, ""},
		{"not a registry", "/v1/registries/" + noopApp, http.StatusNotFound, ""},
		{"bad token id", f.appPath() + "/nfts/x", http.StatusBadRequest, ""},
		{"unknown token", f.appPath() + "/nfts/7", http.StatusNotFound, "UnknownToken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e ErrorResponse
			assert.Equal(t, tt.status, f.get(tt.path, &e))
			assert.NotEmpty(t, e.Error)
			assert.Equal(t, tt.kind, e.Kind)
		})
	}
}

func TestSubmitGroup_Mint(t *testing.T) {
	f := newFixture(t)
	fp := sha256.Sum256([]byte("mri.dcm"))
	body := f.signedGroup(f.user, registry.MintGroup(f.user.Address, f.client.AppID(), fp, registry.UnitaryPrice)...)

	var res ledger.GroupResult
	require.Equal(t, http.StatusOK, f.post(body, &res))
	require.Len(t, res.Txns, 2)
	require.Len(t, res.Txns[0].Return, 8)
	assert.Equal(t, uint64(1), binary.BigEndian.Uint64(res.Txns[0].Return))
	assert.Equal(t, uint64(1), res.Txns[0].CreatedAssets[0])
}

func TestSubmitGroup_Rejections(t *testing.T) {
	f := newFixture(t)
	fp := sha256.Sum256([]byte("mri.dcm"))
	appID := f.client.AppID()

	t.Run("underpayment", func(t *testing.T) {
		body := f.signedGroup(f.user, registry.MintGroup(f.user.Address, appID, fp, registry.UnitaryPrice-1)...)
		var e ErrorResponse
		assert.Equal(t, http.StatusUnprocessableEntity, f.post(body, &e))
		assert.Equal(t, "InvalidPayment", e.Kind)
		require.NotNil(t, e.Index)
		assert.Equal(t, 0, *e.Index)
	})

	t.Run("unknown call kind", func(t *testing.T) {
		txn := ledger.Txn{Type: ledger.TypeAppCall, Sender: f.user.Address, AppID: appID, Args: [][]byte{[]byte("burn")}}
		var e ErrorResponse
		assert.Equal(t, http.StatusUnprocessableEntity, f.post(f.signedGroup(f.user, txn), &e))
		assert.Equal(t, "UnknownCallKind", e.Kind)
	})

	t.Run("delete", func(t *testing.T) {
		var e ErrorResponse
		body := f.signedGroup(f.admin, registry.LifecycleTxn(f.admin.Address, appID, ledger.DeleteApplication))
		assert.Equal(t, http.StatusUnprocessableEntity, f.post(body, &e))
		assert.Equal(t, "DisallowedLifecycleTransition", e.Kind)
	})

	t.Run("empty group", func(t *testing.T) {
		var e ErrorResponse
		assert.Equal(t, http.StatusBadRequest, f.post([]byte(`[]`), &e))
	})

	t.Run("malformed body", func(t *testing.T) {
		var e ErrorResponse
		assert.Equal(t, http.StatusBadRequest, f.post([]byte(`{"not":"a list"}`), &e))
	})

	var view RegistryView
	require.Equal(t, http.StatusOK, f.get(f.appPath(), &view))
	assert.Zero(t, view.TokenCount)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.get("/livez", nil))

	resp, err := http.Get(f.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `mednft_http_requests_total{code="200",route="/livez"} 1`)
}

type countingLedger struct {
	*ledger.Devnet
	reads int
}

func (c *countingLedger) ReadGlobal(appID uint64, fn func(state.Store) error) error {
	c.reads++
	return c.Devnet.ReadGlobal(appID, fn)
}

func TestReadsGoThroughLedgerLock(t *testing.T) {
	f := newFixture(t)
	_, err := f.client.Mint(context.Background(), f.user, sha256.Sum256([]byte("ct.dcm")), registry.UnitaryPrice)
	require.NoError(t, err)

	cl := &countingLedger{Devnet: f.net}
	srv, err := New(Config{}, cl)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, path := range []string{f.appPath(), f.appPath() + "/nfts/1"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
	assert.Equal(t, 2, cl.reads)
}

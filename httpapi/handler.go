package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mednft/libmednft-go/account"
	"github.com/mednft/libmednft-go/ledger"
	"github.com/mednft/libmednft-go/registry"
	"github.com/mednft/libmednft-go/state"
)

// maxBodySize caps POST bodies (1MB).
const maxBodySize = 1 << 20

// RegistryView is the JSON form of a registry's global state.
type RegistryView struct {
	AppID        uint64          `json:"app_id"`
	Address      account.Address `json:"address"`
	Creator      account.Address `json:"creator"`
	UnitaryPrice uint64          `json:"unitary_price"`
	TokenCount   uint64          `json:"token_count"`
	Capacity     uint64          `json:"capacity"`
	Tokens       []uint64        `json:"tokens"`
}

// NFTView is the JSON form of one token record.
type NFTView struct {
	TokenID     uint64          `json:"token_id"`
	AssetName   string          `json:"asset_name"`
	Fingerprint string          `json:"fingerprint"`
	Owner       account.Address `json:"owner"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Index *int   `json:"index,omitempty"`
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	app, err := s.registryApp(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var st *registry.State
	err = s.ledger.ReadGlobal(app.ID, func(store state.Store) error {
		var err error
		st, err = registry.LoadState(store)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	tokens := st.TokenIDs()
	if tokens == nil {
		tokens = []uint64{}
	}
	writeJSON(w, http.StatusOK, RegistryView{
		AppID:        app.ID,
		Address:      app.Address,
		Creator:      app.Creator,
		UnitaryPrice: st.UnitaryPrice,
		TokenCount:   st.TokenCount,
		Capacity:     registry.MaxTokens,
		Tokens:       tokens,
	})
}

func (s *Server) handleNFT(w http.ResponseWriter, r *http.Request) {
	app, err := s.registryApp(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "tokenID"), 10, 64)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: token id: %w", ErrBadRequest, err))
		return
	}
	var (
		rec registry.TokenRecord
		ok  bool
	)
	err = s.ledger.ReadGlobal(app.ID, func(store state.Store) error {
		var err error
		rec, ok, err = registry.Lookup(store, id)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, fmt.Errorf("%w: %d", registry.ErrUnknownToken, id))
		return
	}
	writeJSON(w, http.StatusOK, NFTView{
		TokenID:     id,
		AssetName:   registry.AssetName(id),
		Fingerprint: hex.EncodeToString(rec.Fingerprint[:]),
		Owner:       rec.Owner,
	})
}

func (s *Server) handleSubmitGroup(w http.ResponseWriter, r *http.Request) {
	var stxns []ledger.SignedTxn
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&stxns); err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	res, err := s.ledger.SubmitGroup(r.Context(), stxns)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// registryApp resolves the {appID} path parameter to a registry application.
func (s *Server) registryApp(r *http.Request) (ledger.App, error) {
	appID, err := strconv.ParseUint(chi.URLParam(r, "appID"), 10, 64)
	if err != nil {
		return ledger.App{}, fmt.Errorf("%w: app id: %w", ErrBadRequest, err)
	}
	app, err := s.ledger.App(appID)
	if err != nil {
		return ledger.App{}, err
	}
	if app.Program != registry.ProgramName {
		return ledger.App{}, fmt.Errorf("%w: %d runs %q", ErrNotRegistry, appID, app.Program)
	}
	return app, nil
}

// statusOf maps an error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ledger.ErrEmptyGroup),
		errors.Is(err, ledger.ErrGroupTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnknownApp),
		errors.Is(err, ErrNotRegistry),
		errors.Is(err, registry.ErrUnknownToken):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrGroupRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, registry.ErrNotInitialized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	resp := ErrorResponse{Error: err.Error()}
	if k := registry.KindOf(err); k != registry.KindInternal {
		resp.Kind = k.String()
	}
	var rej *ledger.RejectError
	if errors.As(err, &rej) {
		idx := rej.Index
		resp.Index = &idx
	}
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

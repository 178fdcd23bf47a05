package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/rs/zerolog"

	"github.com/mednft/libmednft-go/logging"
	"github.com/mednft/libmednft-go/state"
)

// Shell is the part of the IPFS HTTP API client IPFSStore uses.
// *shell.Shell implements it.
type Shell interface {
	IsUp() bool
	Add(r io.Reader, options ...shell.AddOpts) (string, error)
	Cat(path string) (io.ReadCloser, error)
}

var _ Shell = (*shell.Shell)(nil)

// IPFSStore keeps content on an IPFS node. IPFS addresses content by CID,
// so a fingerprint → CID index is kept in a state.Store.
type IPFSStore struct {
	sh    Shell
	index state.Store
	log   zerolog.Logger
}

var _ Store = (*IPFSStore)(nil)

// NewIPFSStore connects to the IPFS API at apiURL (host:port).
func NewIPFSStore(apiURL string, index state.Store, log *zerolog.Logger) (*IPFSStore, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("%w: empty IPFS API address", ErrBackendUnavailable)
	}
	return NewIPFSStoreWithShell(shell.NewShell(apiURL), index, log)
}

// NewIPFSStoreWithShell builds an IPFSStore over an existing shell.
func NewIPFSStoreWithShell(sh Shell, index state.Store, log *zerolog.Logger) (*IPFSStore, error) {
	if sh == nil || index == nil {
		return nil, fmt.Errorf("content: IPFS store needs a shell and an index")
	}
	s := &IPFSStore{sh: sh, index: index, log: zerolog.Nop()}
	if log != nil {
		s.log = logging.Component(*log, "ipfs")
	}
	return s, nil
}

// Put adds data to IPFS and indexes its CID under the fingerprint.
func (s *IPFSStore) Put(ctx context.Context, data []byte) (Fingerprint, error) {
	if len(data) == 0 {
		return Fingerprint{}, ErrEmptyContent
	}
	if err := ctx.Err(); err != nil {
		return Fingerprint{}, err
	}
	fp := Sum(data)
	if _, ok, err := s.cid(fp); err != nil || ok {
		return fp, err
	}
	if !s.sh.IsUp() {
		s.log.Warn().Msg("IPFS node unavailable")
		return fp, ErrBackendUnavailable
	}

	cid, err := s.sh.Add(bytes.NewReader(data))
	if err != nil {
		return fp, fmt.Errorf("content: add to IPFS: %w", err)
	}
	if err := s.index.Put(fp[:], state.Bytes([]byte(cid))); err != nil {
		return fp, fmt.Errorf("content: index CID: %w", err)
	}
	s.log.Debug().Str("cid", cid).Stringer("fingerprint", fp).Int("size", len(data)).Msg("stored content")
	return fp, nil
}

// Get fetches the content for fp from IPFS.
func (s *IPFSStore) Get(ctx context.Context, fp Fingerprint) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cid, ok, err := s.cid(fp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fp)
	}
	if !s.sh.IsUp() {
		s.log.Warn().Msg("IPFS node unavailable")
		return nil, ErrBackendUnavailable
	}

	r, err := s.sh.Cat("/ipfs/" + cid)
	if err != nil {
		if strings.Contains(err.Error(), "no link named") {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fp)
		}
		return nil, fmt.Errorf("content: fetch from IPFS: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("content: read from IPFS: %w", err)
	}
	if err := verify(fp, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Has reports whether fp is indexed.
func (s *IPFSStore) Has(_ context.Context, fp Fingerprint) (bool, error) {
	_, ok, err := s.cid(fp)
	return ok, err
}

func (s *IPFSStore) cid(fp Fingerprint) (string, bool, error) {
	v, ok, err := s.index.Get(fp[:])
	if err != nil || !ok {
		return "", false, err
	}
	raw, err := v.AsBytes()
	if err != nil {
		return "", false, err
	}
	return string(raw), true, nil
}

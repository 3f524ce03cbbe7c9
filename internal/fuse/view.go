package fuse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/systemshift/stampdag/internal/codec"
	"github.com/systemshift/stampdag/internal/proof"
	"github.com/systemshift/stampdag/internal/store"
)

// view renders the files of the mount from the repository.
type view struct {
	repo    *store.Repository
	oracles proof.Oracles
	verify  []proof.VerifyOption
	log     zerolog.Logger
}

func errno(err error) syscall.Errno {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidName) {
		return syscall.ENOENT
	}
	return syscall.EIO
}

func (v *view) exists(name string) bool {
	head, err := v.repo.Head(name)
	return err == nil && !head.Deleted
}

func (v *view) proofFile(name string) ([]byte, error) {
	dt, err := v.repo.Load(name)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(dt)
}

func (v *view) info(name string) ([]byte, error) {
	dt, err := v.repo.Load(name)
	if err != nil {
		return nil, err
	}
	return []byte(proof.FormatDetached(dt, false)), nil
}

func (v *view) digest(name string) ([]byte, error) {
	head, err := v.repo.Head(name)
	if err != nil {
		return nil, err
	}
	if head.Deleted {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, name)
	}
	return []byte(head.FileHashOp + " " + head.Digest + "\n"), nil
}

// verifyReport runs the verifier. Configuration problems are rendered into
// the file rather than failing the read.
func (v *view) verifyReport(ctx context.Context, name string) ([]byte, error) {
	dt, err := v.repo.Load(name)
	if err != nil {
		return nil, err
	}
	report, err := proof.VerifyAllAttestations(ctx, dt.Timestamp, v.oracles, v.verify...)
	if err != nil {
		v.log.Warn().Err(err).Str("name", name).Msg("verify failed")
		return []byte(fmt.Sprintf("error: %v\n", err)), nil
	}
	return []byte(proof.FormatReport(report)), nil
}

type revisionView struct {
	CID        string    `json:"cid"`
	Saved      time.Time `json:"saved"`
	Prev       string    `json:"prev,omitempty"`
	Deleted    bool      `json:"deleted,omitempty"`
	FileHashOp string    `json:"file_hash_op"`
	Digest     string    `json:"digest"`
	Size       int       `json:"size"`
	Tree       string    `json:"tree,omitempty"`
}

func (v *view) revision(name string, idx int) ([]byte, error) {
	revs, err := v.repo.History(name, idx+1)
	if err != nil {
		return nil, err
	}
	if idx >= len(revs) {
		return nil, fmt.Errorf("%w: %s revision %d", store.ErrNotFound, name, idx)
	}
	rev := revs[idx]
	out := revisionView{
		CID:        store.FormatCID(rev.CID),
		Saved:      rev.Saved,
		Prev:       rev.Prev,
		Deleted:    rev.Deleted,
		FileHashOp: rev.FileHashOp,
		Digest:     rev.Digest,
		Size:       len(rev.Proof),
	}
	if !rev.Deleted {
		dt, err := rev.Detached()
		if err != nil {
			return nil, err
		}
		out.Tree = proof.FormatTree(dt.Timestamp, false)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}


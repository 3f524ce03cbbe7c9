package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/systemshift/stampdag/internal/proof"
)

// HeaderEntry is one block in a headers file. MerkleRoot is in the
// byte-reversed hex form printed by block explorers and bitcoind.
type HeaderEntry struct {
	Height     uint64 `json:"height"`
	MerkleRoot string `json:"merkleroot"`
	Time       int64  `json:"time"`
}

// Static answers lookups from headers known in advance. It is used for
// offline verification and in tests.
type Static struct {
	mu      sync.RWMutex
	headers map[uint64]proof.BlockHeader
}

var _ proof.BlockHeaderOracle = (*Static)(nil)

// NewStatic creates an empty Static oracle.
func NewStatic() *Static {
	return &Static{headers: make(map[uint64]proof.BlockHeader)}
}

// Add records the header of the block at height.
func (s *Static) Add(height uint64, merkleRoot []byte, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[height] = proof.BlockHeader{MerkleRoot: append([]byte(nil), merkleRoot...), Time: t}
}

func (s *Static) Lookup(ctx context.Context, height uint64) (proof.BlockHeader, error) {
	if err := ctx.Err(); err != nil {
		return proof.BlockHeader{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	hdr, ok := s.headers[height]
	if !ok {
		return proof.BlockHeader{}, fmt.Errorf("block %d: %w", height, proof.ErrNotFound)
	}
	return hdr, nil
}

// LoadStatic reads a JSON array of HeaderEntry values.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read headers file: %w", err)
	}
	var entries []HeaderEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse headers file: %w", err)
	}
	s := NewStatic()
	for _, e := range entries {
		root, err := chainhash.NewHashFromStr(e.MerkleRoot)
		if err != nil {
			return nil, fmt.Errorf("block %d merkle root: %w", e.Height, err)
		}
		s.Add(e.Height, root[:], time.Unix(e.Time, 0).UTC())
	}
	return s, nil
}

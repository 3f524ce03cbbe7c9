package proof

import (
	"context"
	"time"
)

// BlockHeader is what an oracle knows about one block: the merkle root a
// blockchain attestation commits to and the block time.
type BlockHeader struct {
	MerkleRoot []byte
	Time       time.Time
}

// BlockHeaderOracle resolves block heights of one chain. Lookup returns an
// error wrapping ErrNotFound, ErrUnavailable or ErrTimeout on failure.
type BlockHeaderOracle interface {
	Lookup(ctx context.Context, height uint64) (BlockHeader, error)
}

// Oracles maps each rankable attestation class to the oracle for its chain.
type Oracles map[Kind]BlockHeaderOracle

// OracleFunc adapts a function to BlockHeaderOracle.
type OracleFunc func(ctx context.Context, height uint64) (BlockHeader, error)

func (f OracleFunc) Lookup(ctx context.Context, height uint64) (BlockHeader, error) {
	return f(ctx, height)
}

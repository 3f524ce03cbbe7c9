package proof

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// DetachedTimestamp is a proof for a file stored apart from it: the root msg
// is the digest of the file under FileHashOp.
type DetachedTimestamp struct {
	FileHashOp Op
	Timestamp  *Timestamp
}

// Digest returns the file digest the proof starts from.
func (d *DetachedTimestamp) Digest() []byte {
	return d.Timestamp.Msg()
}

func newHasher(k OpKind) (hash.Hash, error) {
	switch k {
	case OpSHA1:
		return sha1.New(), nil
	case OpSHA256:
		return sha256.New(), nil
	case OpRIPEMD160:
		return ripemd160.New(), nil
	case OpKeccak256:
		return sha3.NewLegacyKeccak256(), nil
	}
	return nil, fmt.Errorf("%s is not a hash op", k)
}

// DigestSize returns the output length of a hash op.
func DigestSize(k OpKind) (int, error) {
	h, err := newHasher(k)
	if err != nil {
		return 0, err
	}
	return h.Size(), nil
}

// NewDetachedFromReader hashes r with op and returns an empty proof rooted
// at the digest.
func NewDetachedFromReader(op Op, r io.Reader) (*DetachedTimestamp, error) {
	h, err := newHasher(op.kind)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return nil, fmt.Errorf("hash file: %w", err)
	}
	return &DetachedTimestamp{FileHashOp: op, Timestamp: New(h.Sum(nil))}, nil
}

// MatchesReader reports whether the content of r hashes to the proof digest.
func (d *DetachedTimestamp) MatchesReader(r io.Reader) (bool, error) {
	fresh, err := NewDetachedFromReader(d.FileHashOp, r)
	if err != nil {
		return false, err
	}
	return bytes.Equal(fresh.Timestamp.msg, d.Timestamp.msg), nil
}

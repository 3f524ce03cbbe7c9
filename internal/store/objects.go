package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
)

// ErrCorrupt is returned when an object no longer hashes to its CID.
var ErrCorrupt = errors.New("store: object corrupt")

// ObjectStore keeps CID-addressed immutable objects as files.
type ObjectStore struct {
	dir string
}

// NewObjectStore creates an ObjectStore rooted at dir.
func NewObjectStore(dir string) (*ObjectStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create objects dir: %w", err)
	}
	return &ObjectStore{dir: dir}, nil
}

// ComputeCID computes a CIDv1 (raw codec, SHA2-256) for data.
func ComputeCID(data []byte) (gocid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return gocid.Undef, fmt.Errorf("multihash: %w", err)
	}
	return gocid.NewCidV1(gocid.Raw, mh), nil
}

// FormatCID returns the base32lower form of c, used for filenames and
// envelope links.
func FormatCID(c gocid.Cid) string {
	encoded, _ := multibase.Encode(multibase.Base32, c.Bytes())
	return encoded
}

// ParseCID is the inverse of FormatCID.
func ParseCID(s string) (gocid.Cid, error) {
	_, raw, err := multibase.Decode(s)
	if err != nil {
		return gocid.Undef, fmt.Errorf("decode cid %q: %w", s, err)
	}
	return gocid.Cast(raw)
}

func (s *ObjectStore) path(c gocid.Cid) string {
	return filepath.Join(s.dir, FormatCID(c))
}

// Put stores data and returns its CID. Storing an existing object is a no-op.
func (s *ObjectStore) Put(data []byte) (gocid.Cid, error) {
	c, err := ComputeCID(data)
	if err != nil {
		return gocid.Undef, err
	}
	path := s.path(c)
	if _, err := os.Stat(path); err == nil {
		return c, nil
	}
	if err := SafeWrite(path, data, 0644); err != nil {
		return gocid.Undef, fmt.Errorf("write object: %w", err)
	}
	return c, nil
}

// Get reads the object c and checks it still matches its CID.
func (s *ObjectStore) Get(c gocid.Cid) ([]byte, error) {
	data, err := os.ReadFile(s.path(c))
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", c, err)
	}
	got, err := ComputeCID(data)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(got.Hash(), c.Hash()) {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, c)
	}
	return data, nil
}

// Has reports whether the object c exists.
func (s *ObjectStore) Has(c gocid.Cid) bool {
	_, err := os.Stat(s.path(c))
	return err == nil
}

package store

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	gocid "github.com/ipfs/go-cid"

	"github.com/systemshift/stampdag/internal/codec"
	"github.com/systemshift/stampdag/internal/proof"
)

const envelopeVersion = 1

// Envelope is the on-disk record of one revision of a named proof.
type Envelope struct {
	V          int       `json:"v"`
	Name       string    `json:"name"`
	Digest     string    `json:"digest"`
	FileHashOp string    `json:"file_hash_op"`
	Proof      []byte    `json:"proof,omitempty"`
	Saved      time.Time `json:"saved"`
	Prev       string    `json:"prev,omitempty"`
	Deleted    bool      `json:"deleted,omitempty"`
}

// Revision is an envelope together with the CID it is stored under.
type Revision struct {
	CID gocid.Cid
	Envelope
}

func newEnvelope(name string, dt *proof.DetachedTimestamp, prev gocid.Cid) (*Envelope, error) {
	data, err := codec.Marshal(dt)
	if err != nil {
		return nil, fmt.Errorf("encode proof: %w", err)
	}
	env := &Envelope{
		V:          envelopeVersion,
		Name:       name,
		Digest:     hex.EncodeToString(dt.Digest()),
		FileHashOp: dt.FileHashOp.String(),
		Proof:      data,
		Saved:      time.Now().UTC(),
	}
	if prev.Defined() {
		env.Prev = FormatCID(prev)
	}
	return env, nil
}

// Detached decodes the proof carried by the envelope and checks it against
// the recorded digest.
func (e *Envelope) Detached() (*proof.DetachedTimestamp, error) {
	if e.Deleted {
		return nil, fmt.Errorf("%w: %s is deleted", ErrNotFound, e.Name)
	}
	dt, err := codec.Unmarshal(e.Proof)
	if err != nil {
		return nil, fmt.Errorf("decode proof %s: %w", e.Name, err)
	}
	if got := hex.EncodeToString(dt.Digest()); got != e.Digest {
		return nil, fmt.Errorf("%w: %s digest %s, envelope says %s", ErrCorrupt, e.Name, got, e.Digest)
	}
	if got := dt.FileHashOp.String(); got != e.FileHashOp {
		return nil, fmt.Errorf("%w: %s hashed with %s, envelope says %s", ErrCorrupt, e.Name, got, e.FileHashOp)
	}
	return dt, nil
}

func decodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.V != envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", env.V)
	}
	return &env, nil
}

// CanonicalJSON produces a deterministic JSON encoding with sorted keys, so
// equal envelopes always land on the same CID.
func CanonicalJSON(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return canonicalEncode(raw)
}

func canonicalEncode(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			keyBytes, _ := json.Marshal(k)
			buf = append(buf, keyBytes...)
			buf = append(buf, ':')
			valBytes, err := canonicalEncode(val[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, valBytes...)
		}
		return append(buf, '}'), nil

	case []interface{}:
		buf := []byte{'['}
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			itemBytes, err := canonicalEncode(item)
			if err != nil {
				return nil, err
			}
			buf = append(buf, itemBytes...)
		}
		return append(buf, ']'), nil

	default:
		return json.Marshal(v)
	}
}

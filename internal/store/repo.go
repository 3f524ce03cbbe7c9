package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	gocid "github.com/ipfs/go-cid"
	"github.com/rs/zerolog"

	"github.com/systemshift/stampdag/internal/proof"
)

// DirName is the directory the repository keeps under the data dir.
const DirName = ".stampdag"

// ErrMismatch is returned when two proofs for one name start from
// different file digests.
var ErrMismatch = errors.New("store: proofs are for different files")

// Repository is the top-level facade over the object and ref stores.
type Repository struct {
	root    string
	Objects *ObjectStore
	Refs    *RefStore
	log     zerolog.Logger
	mu      sync.Mutex
}

// Open opens or creates a repository under dataDir.
func Open(dataDir string, log zerolog.Logger) (*Repository, error) {
	dir := filepath.Join(dataDir, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", dir, err)
	}

	metaPath := filepath.Join(dir, "meta.json")
	if _, err := os.Stat(metaPath); os.IsNotExist(err) {
		meta, _ := CanonicalJSON(map[string]interface{}{
			"version": envelopeVersion,
			"created": time.Now().UTC().Format(time.RFC3339),
		})
		if err := SafeWrite(metaPath, meta, 0644); err != nil {
			return nil, fmt.Errorf("write meta: %w", err)
		}
	}

	objects, err := NewObjectStore(filepath.Join(dir, "objects"))
	if err != nil {
		return nil, err
	}
	refs, err := NewRefStore(filepath.Join(dir, "refs"))
	if err != nil {
		return nil, err
	}

	return &Repository{
		root:    dir,
		Objects: objects,
		Refs:    refs,
		log:     log.With().Str("component", "store").Logger(),
	}, nil
}

// Dir returns the path of the .stampdag directory.
func (r *Repository) Dir() string {
	return r.root
}

// Revision reads the envelope stored under c.
func (r *Repository) Revision(c gocid.Cid) (Revision, error) {
	data, err := r.Objects.Get(c)
	if err != nil {
		return Revision{}, err
	}
	env, err := decodeEnvelope(data)
	if err != nil {
		return Revision{}, fmt.Errorf("revision %s: %w", FormatCID(c), err)
	}
	return Revision{CID: c, Envelope: *env}, nil
}

// Head returns the latest revision of name, which may be a tombstone.
func (r *Repository) Head(name string) (Revision, error) {
	c, err := r.Refs.Get(name)
	if err != nil {
		return Revision{}, err
	}
	return r.Revision(c)
}

// Load returns the current proof stored under name.
func (r *Repository) Load(name string) (*proof.DetachedTimestamp, error) {
	head, err := r.Head(name)
	if err != nil {
		return nil, err
	}
	return head.Detached()
}

// List returns the names of all proofs that are not deleted.
func (r *Repository) List() ([]string, error) {
	names, err := r.Refs.List()
	if err != nil {
		return nil, err
	}
	var live []string
	for _, name := range names {
		head, err := r.Head(name)
		if err != nil {
			r.log.Warn().Err(err).Str("name", name).Msg("skipping unreadable ref")
			continue
		}
		if !head.Deleted {
			live = append(live, name)
		}
	}
	return live, nil
}

// Save stores dt as the new revision of name. When the current revision
// already holds an equal proof nothing is written and saved is false.
func (r *Repository) Save(name string, dt *proof.DetachedTimestamp) (rev Revision, saved bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(name, dt)
}

func (r *Repository) save(name string, dt *proof.DetachedTimestamp) (Revision, bool, error) {
	if !ValidName(name) {
		return Revision{}, false, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := proof.Validate(dt.Timestamp); err != nil {
		return Revision{}, false, fmt.Errorf("save %s: %w", name, err)
	}

	prev := gocid.Undef
	head, err := r.Head(name)
	switch {
	case err == nil:
		prev = head.CID
		if !head.Deleted {
			cur, err := head.Detached()
			if err != nil {
				return Revision{}, false, err
			}
			if sameProof(cur, dt) {
				return head, false, nil
			}
		}
	case !errors.Is(err, ErrNotFound):
		return Revision{}, false, err
	}

	env, err := newEnvelope(name, dt, prev)
	if err != nil {
		return Revision{}, false, err
	}
	rev, err := r.put(env)
	if err != nil {
		return Revision{}, false, err
	}
	r.log.Debug().Str("name", name).Str("cid", FormatCID(rev.CID)).Msg("saved proof")
	return rev, true, nil
}

func sameProof(a, b *proof.DetachedTimestamp) bool {
	return a.FileHashOp == b.FileHashOp &&
		bytes.Equal(a.Digest(), b.Digest()) &&
		proof.Equal(a.Timestamp, b.Timestamp)
}

func (r *Repository) put(env *Envelope) (Revision, error) {
	data, err := CanonicalJSON(env)
	if err != nil {
		return Revision{}, fmt.Errorf("serialize envelope: %w", err)
	}
	c, err := r.Objects.Put(data)
	if err != nil {
		return Revision{}, fmt.Errorf("store envelope: %w", err)
	}
	if err := r.Refs.Set(env.Name, c); err != nil {
		return Revision{}, fmt.Errorf("set ref: %w", err)
	}
	// round-trip through JSON so the returned envelope matches what Revision reads
	var stored Envelope
	if err := json.Unmarshal(data, &stored); err != nil {
		return Revision{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return Revision{CID: c, Envelope: stored}, nil
}

// Delete records a tombstone for name. Earlier revisions stay reachable
// through History.
func (r *Repository) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	head, err := r.Head(name)
	if err != nil {
		return err
	}
	if head.Deleted {
		return fmt.Errorf("%w: %s is already deleted", ErrNotFound, name)
	}
	tombstone := &Envelope{
		V:          envelopeVersion,
		Name:       name,
		Digest:     head.Digest,
		FileHashOp: head.FileHashOp,
		Saved:      time.Now().UTC(),
		Prev:       FormatCID(head.CID),
		Deleted:    true,
	}
	if _, err := r.put(tombstone); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	r.log.Debug().Str("name", name).Msg("deleted proof")
	return nil
}

// Merge unions dt into the proof stored under name, creating it if needed.
func (r *Repository) Merge(name string, dt *proof.DetachedTimestamp) (Revision, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.Load(name)
	if errors.Is(err, ErrNotFound) {
		return r.save(name, dt)
	}
	if err != nil {
		return Revision{}, false, err
	}
	if cur.FileHashOp != dt.FileHashOp || !bytes.Equal(cur.Digest(), dt.Digest()) {
		return Revision{}, false, fmt.Errorf("merge %s: %w", name, ErrMismatch)
	}
	if err := cur.Timestamp.Merge(dt.Timestamp); err != nil {
		return Revision{}, false, fmt.Errorf("merge %s: %w", name, err)
	}
	return r.save(name, cur)
}

// OptimizeOptions selects what Optimize removes.
type OptimizeOptions struct {
	DiscardValues  []proof.Attestation
	DiscardClasses []proof.Kind
	Only           []proof.Kind
}

// Apply prunes a copy of dt and reports whether anything was removed. dt
// itself is left untouched.
func (o OptimizeOptions) Apply(dt *proof.DetachedTimestamp) (*proof.DetachedTimestamp, bool, error) {
	pruned := &proof.DetachedTimestamp{FileHashOp: dt.FileHashOp, Timestamp: dt.Timestamp.Clone()}
	var pruneOpts []proof.PruneOption
	if len(o.Only) > 0 {
		pruneOpts = append(pruneOpts, proof.OnlyClasses(o.Only...))
	}
	if err := proof.PruneTimestamp(pruned.Timestamp, o.DiscardValues, o.DiscardClasses, pruneOpts...); err != nil {
		return nil, false, err
	}
	return pruned, !proof.Equal(dt.Timestamp, pruned.Timestamp), nil
}

// Optimize prunes the stored proof and saves the result when it differs.
func (r *Repository) Optimize(name string, opts OptimizeOptions) (Revision, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.Load(name)
	if err != nil {
		return Revision{}, false, err
	}
	pruned, _, err := opts.Apply(cur)
	if err != nil {
		return Revision{}, false, fmt.Errorf("optimize %s: %w", name, err)
	}
	return r.save(name, pruned)
}

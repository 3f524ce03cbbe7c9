package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	gocid "github.com/ipfs/go-cid"
)

var (
	ErrNotFound    = errors.New("store: proof not found")
	ErrInvalidName = errors.New("store: invalid proof name")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidName reports whether name can be used as a proof name. Names map
// directly onto file names under refs/ and the FUSE proofs/ directory.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// RefStore maps proof names to the CID of their latest envelope. Each ref is
// a file in refs/ whose content is the base32 CID.
type RefStore struct {
	dir string
}

// NewRefStore creates a RefStore rooted at dir.
func NewRefStore(dir string) (*RefStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create refs dir: %w", err)
	}
	return &RefStore{dir: dir}, nil
}

func (r *RefStore) path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(r.dir, name), nil
}

// Set points name at c.
func (r *RefStore) Set(name string, c gocid.Cid) error {
	path, err := r.path(name)
	if err != nil {
		return err
	}
	return SafeWrite(path, []byte(FormatCID(c)+"\n"), 0644)
}

// Get resolves name to a CID.
func (r *RefStore) Get(name string) (gocid.Cid, error) {
	path, err := r.path(name)
	if err != nil {
		return gocid.Undef, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return gocid.Undef, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return gocid.Undef, fmt.Errorf("read ref %s: %w", name, err)
	}
	return ParseCID(strings.TrimSpace(string(data)))
}

// Delete removes the ref for name.
func (r *RefStore) Delete(name string) error {
	path, err := r.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("remove ref %s: %w", name, err)
	}
	return nil
}

// Has reports whether a ref exists for name.
func (r *RefStore) Has(name string) bool {
	path, err := r.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// List returns all ref names in lexical order.
func (r *RefStore) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !ValidName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

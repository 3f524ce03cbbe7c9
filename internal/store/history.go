package store

import (
	gocid "github.com/ipfs/go-cid"
)

// Walk visits revisions starting at from and following prev links until fn
// returns false or the chain ends.
func (r *Repository) Walk(from gocid.Cid, fn func(Revision) bool) error {
	for current := from; current.Defined(); {
		rev, err := r.Revision(current)
		if err != nil {
			return err
		}
		if !fn(rev) || rev.Prev == "" {
			return nil
		}
		if current, err = ParseCID(rev.Prev); err != nil {
			return err
		}
	}
	return nil
}

// History returns up to n revisions of name, newest first. n <= 0 returns
// the whole chain.
func (r *Repository) History(name string, n int) ([]Revision, error) {
	head, err := r.Refs.Get(name)
	if err != nil {
		return nil, err
	}
	var revs []Revision
	err = r.Walk(head, func(rev Revision) bool {
		revs = append(revs, rev)
		return n <= 0 || len(revs) < n
	})
	return revs, err
}

package proof

import "bytes"

// Equal reports whether a and b are structurally identical: same msg, same
// attestation set, same set of edge ops and pairwise equal children. Edge
// order is not compared.
func Equal(a, b *Timestamp) bool {
	return equalNodes(a, b, make(map[[2]*Timestamp]bool))
}

// equalNodes memoizes compared pairs so shared subtrees are visited once.
func equalNodes(a, b *Timestamp, seen map[[2]*Timestamp]bool) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	key := [2]*Timestamp{a, b}
	if eq, ok := seen[key]; ok {
		return eq
	}
	eq := shallowEqual(a, b)
	for i := 0; eq && i < len(a.edges); i++ {
		e := a.edges[i]
		other, ok := b.Child(e.Op)
		eq = ok && equalNodes(e.Child, other, seen)
	}
	seen[key] = eq
	return eq
}

func shallowEqual(a, b *Timestamp) bool {
	return bytes.Equal(a.msg, b.msg) &&
		len(a.edges) == len(b.edges) &&
		a.attestations.Equal(b.attestations)
}

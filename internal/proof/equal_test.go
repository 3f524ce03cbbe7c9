package proof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	build := func() *Timestamp {
		ts := New([]byte("m"))
		ts.AddAttestation(Pending("c"))
		ts.AddOp(Append([]byte{1})).AddAttestation(Bitcoin(1))
		ts.AddOp(SHA256())
		return ts
	}

	a, b := build(), build()
	assert.True(t, Equal(a, b))
	assert.True(t, Equal(a, a))
	assert.False(t, Equal(a, nil))

	// edge order is irrelevant
	c := New([]byte("m"))
	c.AddOp(SHA256())
	c.AddOp(Append([]byte{1})).AddAttestation(Bitcoin(1))
	c.AddAttestation(Pending("c"))
	assert.True(t, Equal(a, c))

	// different attestation set
	b.AddAttestation(Pending("d"))
	assert.False(t, Equal(a, b))

	// different msg
	assert.False(t, Equal(New([]byte("x")), New([]byte("y"))))
}

func TestEqual_DifferentEdgeKeys(t *testing.T) {
	a := New(nil)
	a.AddOp(Append([]byte{1}))
	b := New(nil)
	b.AddOp(Append([]byte{2}))
	assert.False(t, Equal(a, b))

	b.AddOp(Append([]byte{1}))
	a.AddOp(Append([]byte{2}))
	assert.True(t, Equal(a, b))

	a.AddOp(Append([]byte{3}))
	assert.False(t, Equal(a, b))
}

func TestEqual_DeepDifference(t *testing.T) {
	a := New(nil)
	a.AddOp(SHA256()).AddOp(SHA256()).AddAttestation(Bitcoin(2))
	b := New(nil)
	b.AddOp(SHA256()).AddOp(SHA256()).AddAttestation(Bitcoin(3))
	assert.False(t, Equal(a, b))
}

func TestEqual_SharedNodes(t *testing.T) {
	// each level fans out to two edges that meet again in one child, so an
	// unmemoized walk would take 2^depth steps
	root := New([]byte("a"))
	n := root
	for i := 0; i < 64; i++ {
		next := n.AddOp(Append([]byte("a")))
		require.NoError(t, n.AddEdge(Prepend([]byte("a")), next))
		n = next
	}
	n.AddAttestation(Bitcoin(1))

	cp := root.Clone()
	assert.True(t, Equal(root, cp))

	n.AddAttestation(Bitcoin(2))
	assert.False(t, Equal(root, cp))
}

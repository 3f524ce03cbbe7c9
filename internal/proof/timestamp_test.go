package proof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAttestation_SetSemantics(t *testing.T) {
	ts := New(nil)
	assert.True(t, ts.AddAttestation(Pending("c1")))
	assert.False(t, ts.AddAttestation(Pending("c1")))
	assert.True(t, ts.AddAttestation(Pending("c2")))
	assert.True(t, ts.AddAttestation(Bitcoin(1)))
	assert.False(t, ts.AddAttestation(Bitcoin(1)))
	assert.Len(t, ts.Attestations(), 3)

	assert.True(t, ts.RemoveAttestation(Pending("c1")))
	assert.False(t, ts.RemoveAttestation(Pending("c1")))
	assert.False(t, ts.HasAttestation(Pending("c1")))
}

func TestAddOp_ReusesExistingChild(t *testing.T) {
	ts := New([]byte("x"))
	c1 := ts.AddOp(Append([]byte{1}))
	c2 := ts.AddOp(Append([]byte{1}))
	assert.Same(t, c1, c2)
	assert.Equal(t, []byte{'x', 1}, c1.Msg())
	assert.Len(t, ts.Edges(), 1)
}

func TestEdges_InsertionOrder(t *testing.T) {
	ts := New(nil)
	ops := []Op{Append([]byte{3}), SHA256(), Append([]byte{1}), Prepend([]byte{2})}
	for _, op := range ops {
		ts.AddOp(op)
	}
	assert.Equal(t, ops, ts.Ops())
}

func TestAddEdge_RejectsMismatchedMsg(t *testing.T) {
	ts := New([]byte("a"))
	err := ts.AddEdge(Append([]byte("b")), New([]byte("zz")))

	var serr *StructuralError
	require.ErrorAs(t, err, &serr)
	assert.True(t, ts.IsLeaf())
}

func TestAddEdge_RejectsConflictingChild(t *testing.T) {
	ts := New([]byte("a"))
	op := Append([]byte("b"))
	first := New([]byte("ab"))
	require.NoError(t, ts.AddEdge(op, first))

	// same child again is a no-op
	require.NoError(t, ts.AddEdge(op, first))

	err := ts.AddEdge(op, New([]byte("ab")))
	var serr *StructuralError
	require.ErrorAs(t, err, &serr)

	child, ok := ts.Child(op)
	require.True(t, ok)
	assert.Same(t, first, child)
	assert.Len(t, ts.Edges(), 1)
}

func TestAddEdge_RejectsCycle(t *testing.T) {
	root := New([]byte("ab"))
	rev := root.AddOp(Reverse())
	require.Equal(t, []byte("ba"), rev.Msg())

	// reversing "ba" gives back "ab": linking to root would close a cycle
	err := rev.AddEdge(Reverse(), root)
	var serr *StructuralError
	require.ErrorAs(t, err, &serr)
	assert.True(t, rev.IsLeaf())
	assert.NoError(t, Validate(root))

	// a node cannot be its own child either
	same := New([]byte("aa"))
	assert.Error(t, same.AddEdge(Reverse(), same))
}

func TestWalk_CanonicalPreOrder(t *testing.T) {
	root := New(nil)
	a := root.AddOp(Append([]byte{1}))
	a1 := a.AddOp(Append([]byte{1}))
	b := root.AddOp(Append([]byte{2}))
	a2 := a.AddOp(Append([]byte{2}))

	var got []*Timestamp
	root.Walk(func(n *Timestamp) bool {
		got = append(got, n)
		return true
	})
	assert.Equal(t, []*Timestamp{root, a, a1, a2, b}, got)
}

func TestWalk_SharedNodeVisitedOnce(t *testing.T) {
	root := New([]byte("ab"))
	left := root.AddOp(Prepend([]byte("x")))
	shared := New([]byte("xab!"))
	require.NoError(t, left.AddEdge(Append([]byte("!")), shared))
	right := root.AddOp(Append([]byte("!")))
	require.NoError(t, right.AddEdge(Prepend([]byte("x")), shared))

	count := 0
	root.Walk(func(n *Timestamp) bool {
		if n == shared {
			count++
		}
		return true
	})
	assert.Equal(t, 1, count)
	assert.NoError(t, Validate(root))
}

func TestClone_IsIndependent(t *testing.T) {
	root := New(nil)
	child := root.AddOp(Append([]byte{1}))
	child.AddAttestation(Bitcoin(5))

	cp := root.Clone()
	require.True(t, Equal(root, cp))

	cpChild, _ := cp.Child(Append([]byte{1}))
	cpChild.RemoveAttestation(Bitcoin(5))
	assert.True(t, child.HasAttestation(Bitcoin(5)))
	assert.False(t, Equal(root, cp))
}

func TestMerge(t *testing.T) {
	a := New(nil)
	a.AddOp(Append([]byte{1})).AddAttestation(Pending("c1"))

	b := New(nil)
	b.AddOp(Append([]byte{1})).AddAttestation(Bitcoin(10))
	b.AddOp(Append([]byte{2})).AddAttestation(Pending("c2"))

	require.NoError(t, a.Merge(b))

	want := New(nil)
	w1 := want.AddOp(Append([]byte{1}))
	w1.AddAttestation(Pending("c1"))
	w1.AddAttestation(Bitcoin(10))
	want.AddOp(Append([]byte{2})).AddAttestation(Pending("c2"))
	assert.True(t, Equal(a, want))

	// merged subtrees are copies
	bc, _ := b.Child(Append([]byte{2}))
	bc.AddAttestation(Bitcoin(1))
	ac, _ := a.Child(Append([]byte{2}))
	assert.False(t, ac.HasAttestation(Bitcoin(1)))

	assert.Error(t, a.Merge(New([]byte("other"))))
}

func TestKinds(t *testing.T) {
	root := New(nil)
	root.AddAttestation(Pending("c"))
	root.AddOp(SHA256()).AddAttestation(Litecoin(3))

	kinds := root.Kinds()
	assert.True(t, kinds.Contains(KindPending))
	assert.True(t, kinds.Contains(KindLitecoin))
	assert.False(t, kinds.Contains(KindBitcoin))
}

package proof

import (
	"bytes"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Edge is an outgoing link of a node: child.Msg() == Op.Apply(parent.Msg()).
type Edge struct {
	Op    Op
	Child *Timestamp
}

// Timestamp is a proof DAG vertex. It owns a msg, a set of attestations and
// an ordered list of edges keyed by distinct ops. Edge order is the order of
// insertion and defines canonical traversal order.
//
// A Timestamp is not safe for concurrent mutation. Readers may share it as
// long as no mutator runs at the same time.
type Timestamp struct {
	msg          []byte
	attestations mapset.Set[Attestation]
	edges        []Edge
}

// New creates a node holding msg. msg is copied.
func New(msg []byte) *Timestamp {
	return &Timestamp{
		msg:          bytes.Clone(msg),
		attestations: mapset.NewThreadUnsafeSet[Attestation](),
	}
}

// Msg returns a copy of the node value.
func (t *Timestamp) Msg() []byte {
	return bytes.Clone(t.msg)
}

// AddAttestation inserts a, returning false if it was already present.
func (t *Timestamp) AddAttestation(a Attestation) bool {
	return t.attestations.Add(a)
}

// RemoveAttestation deletes a, returning false if it was absent.
func (t *Timestamp) RemoveAttestation(a Attestation) bool {
	if !t.attestations.Contains(a) {
		return false
	}
	t.attestations.Remove(a)
	return true
}

// HasAttestation reports whether a is attached to this node.
func (t *Timestamp) HasAttestation(a Attestation) bool {
	return t.attestations.Contains(a)
}

// Attestations returns the node's attestations in a deterministic order.
// The result is a copy.
func (t *Timestamp) Attestations() []Attestation {
	out := t.attestations.ToSlice()
	slices.SortFunc(out, compareAttestations)
	return out
}

// AttestationSet returns a copy of the attestation set.
func (t *Timestamp) AttestationSet() mapset.Set[Attestation] {
	return t.attestations.Clone()
}

// Edges returns the outgoing edges in insertion order. The slice is a copy;
// the children are not.
func (t *Timestamp) Edges() []Edge {
	return slices.Clone(t.edges)
}

// Ops returns the edge labels in insertion order.
func (t *Timestamp) Ops() []Op {
	ops := make([]Op, len(t.edges))
	for i, e := range t.edges {
		ops[i] = e.Op
	}
	return ops
}

// Child returns the child reached through op.
func (t *Timestamp) Child(op Op) (*Timestamp, bool) {
	if i := t.edgeIndex(op); i >= 0 {
		return t.edges[i].Child, true
	}
	return nil, false
}

// IsLeaf reports whether the node has no outgoing edges.
func (t *Timestamp) IsLeaf() bool {
	return len(t.edges) == 0
}

func (t *Timestamp) edgeIndex(op Op) int {
	for i, e := range t.edges {
		if e.Op == op {
			return i
		}
	}
	return -1
}

// AddOp returns the child for op, creating it with msg op.Apply(t.Msg())
// when the edge does not exist yet.
func (t *Timestamp) AddOp(op Op) *Timestamp {
	if child, ok := t.Child(op); ok {
		return child
	}
	child := New(op.Apply(t.msg))
	t.edges = append(t.edges, Edge{Op: op, Child: child})
	return child
}

// AddEdge links child under op. Adding an identical edge again is a no-op.
// The node is left untouched if the edge would break the msg invariant,
// conflict with an existing edge or close a cycle.
func (t *Timestamp) AddEdge(op Op, child *Timestamp) error {
	if child == nil {
		return &StructuralError{Op: op, Reason: "nil child"}
	}
	if i := t.edgeIndex(op); i >= 0 {
		if t.edges[i].Child == child {
			return nil
		}
		return &StructuralError{Op: op, Reason: "op already leads to a different child"}
	}
	if !bytes.Equal(child.msg, op.Apply(t.msg)) {
		return &StructuralError{Op: op, Reason: "child msg does not match op result"}
	}
	if child.reaches(t) {
		return &StructuralError{Op: op, Reason: "edge would create a cycle"}
	}
	t.edges = append(t.edges, Edge{Op: op, Child: child})
	return nil
}

// removeEdgeAt drops the edge at index i, keeping the order of the rest.
func (t *Timestamp) removeEdgeAt(i int) {
	t.edges = slices.Delete(t.edges, i, i+1)
}

// reaches reports whether target is t or a descendant of t.
func (t *Timestamp) reaches(target *Timestamp) bool {
	seen := mapset.NewThreadUnsafeSet[*Timestamp]()
	stack := []*Timestamp{t}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == target {
			return true
		}
		if !seen.Add(n) {
			continue
		}
		for _, e := range n.edges {
			stack = append(stack, e.Child)
		}
	}
	return false
}

// Walk visits every reachable node once in canonical order: depth-first,
// a node before its children, children in edge insertion order. A node
// reachable along several paths is visited at its first occurrence.
// Returning false from fn stops the walk.
func (t *Timestamp) Walk(fn func(*Timestamp) bool) {
	seen := mapset.NewThreadUnsafeSet[*Timestamp]()
	var visit func(n *Timestamp) bool
	visit = func(n *Timestamp) bool {
		if !seen.Add(n) {
			return true
		}
		if !fn(n) {
			return false
		}
		for _, e := range n.edges {
			if !visit(e.Child) {
				return false
			}
		}
		return true
	}
	visit(t)
}

// Located pairs an attestation with the node it is attached to.
type Located struct {
	Node        *Timestamp
	Attestation Attestation
}

// AllAttestations lists every attestation in the DAG in canonical order.
func (t *Timestamp) AllAttestations() []Located {
	var out []Located
	t.Walk(func(n *Timestamp) bool {
		for _, a := range n.Attestations() {
			out = append(out, Located{Node: n, Attestation: a})
		}
		return true
	})
	return out
}

// Kinds returns the set of attestation classes present anywhere in the DAG.
func (t *Timestamp) Kinds() mapset.Set[Kind] {
	kinds := mapset.NewThreadUnsafeSet[Kind]()
	t.Walk(func(n *Timestamp) bool {
		n.attestations.Each(func(a Attestation) bool {
			kinds.Add(a.kind)
			return false
		})
		return true
	})
	return kinds
}

// Clone deep-copies the DAG. Nodes shared in the original are shared in the
// copy.
func (t *Timestamp) Clone() *Timestamp {
	copies := make(map[*Timestamp]*Timestamp)
	var clone func(n *Timestamp) *Timestamp
	clone = func(n *Timestamp) *Timestamp {
		if c, ok := copies[n]; ok {
			return c
		}
		c := &Timestamp{
			msg:          bytes.Clone(n.msg),
			attestations: n.attestations.Clone(),
			edges:        make([]Edge, 0, len(n.edges)),
		}
		copies[n] = c
		for _, e := range n.edges {
			c.edges = append(c.edges, Edge{Op: e.Op, Child: clone(e.Child)})
		}
		return c
	}
	return clone(t)
}

// Merge adds every attestation and edge of other into t. Both must hold the
// same msg. Edges missing from t are copied from other, so t never shares
// nodes with other afterwards.
func (t *Timestamp) Merge(other *Timestamp) error {
	if !bytes.Equal(t.msg, other.msg) {
		return &StructuralError{Reason: "cannot merge timestamps with different messages"}
	}
	if t == other {
		return nil
	}
	other.attestations.Each(func(a Attestation) bool {
		t.attestations.Add(a)
		return false
	})
	for _, e := range other.edges {
		if mine, ok := t.Child(e.Op); ok {
			if err := mine.Merge(e.Child); err != nil {
				return err
			}
			continue
		}
		if err := t.AddEdge(e.Op, e.Child.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the DAG invariants: every edge satisfies the msg rule and
// no node is its own descendant. Ops and block heights must also be
// representable in a proof file.
func Validate(root *Timestamp) error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[*Timestamp]int)
	var visit func(n *Timestamp) error
	visit = func(n *Timestamp) error {
		color[n] = grey
		for _, a := range n.Attestations() {
			if a.Rankable() && a.height > MaxHeight {
				return &StructuralError{Reason: fmt.Sprintf("%s: height out of range", a)}
			}
		}
		for _, e := range n.edges {
			if err := e.Op.Validate(); err != nil {
				return &StructuralError{Op: e.Op, Reason: err.Error()}
			}
			if e.Child == nil {
				return &StructuralError{Op: e.Op, Reason: "nil child"}
			}
			if color[e.Child] == grey {
				return &StructuralError{Op: e.Op, Reason: "cycle detected"}
			}
			if !bytes.Equal(e.Child.msg, e.Op.Apply(n.msg)) {
				return &StructuralError{Op: e.Op, Reason: "child msg does not match op result"}
			}
			if color[e.Child] == white {
				if err := visit(e.Child); err != nil {
					return err
				}
			}
		}
		color[n] = black
		return nil
	}
	return visit(root)
}

package proof

import "fmt"

// Matcher selects attestations for removal, either every attestation of a
// class or one exact attestation.
type Matcher struct {
	byValue bool
	kind    Kind
	value   Attestation
}

// MatchKind matches any attestation of class k.
func MatchKind(k Kind) Matcher {
	return Matcher{kind: k}
}

// MatchValue matches attestations equal to a.
func MatchValue(a Attestation) Matcher {
	return Matcher{byValue: true, kind: a.kind, value: a}
}

// Matches reports whether a is selected by m.
func (m Matcher) Matches(a Attestation) bool {
	if m.byValue {
		return a == m.value
	}
	return a.kind == m.kind
}

func (m Matcher) String() string {
	if m.byValue {
		return m.value.String()
	}
	return fmt.Sprintf("class(%s)", m.kind)
}

// DiscardAttestations removes from every reachable node each attestation
// selected by any of the matchers. Msgs and edges are never touched.
func DiscardAttestations(root *Timestamp, matchers []Matcher) error {
	if err := Validate(root); err != nil {
		return err
	}
	if len(matchers) == 0 {
		return nil
	}
	root.Walk(func(n *Timestamp) bool {
		for _, a := range n.attestations.ToSlice() {
			for _, m := range matchers {
				if m.Matches(a) {
					n.attestations.Remove(a)
					break
				}
			}
		}
		return true
	})
	return nil
}

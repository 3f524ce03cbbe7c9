package proof

// DiscardSuboptimal keeps only the strongest attestation of the rankable
// class k anywhere in the DAG. The DAG is walked in canonical order and on
// an exact rank tie the attestation visited later wins. Calling it with a
// class that has no rank is a no-op.
func DiscardSuboptimal(root *Timestamp, k Kind) error {
	if err := Validate(root); err != nil {
		return err
	}
	if !k.Rankable() {
		return nil
	}

	var (
		winner  *Located
		discard []Located
	)
	for _, loc := range root.AllAttestations() {
		if loc.Attestation.kind != k {
			continue
		}
		if winner == nil {
			w := loc
			winner = &w
			continue
		}
		if loc.Attestation.AtLeastAsGood(winner.Attestation) {
			discard = append(discard, *winner)
			w := loc
			winner = &w
		} else {
			discard = append(discard, loc)
		}
	}

	for _, loc := range discard {
		loc.Node.attestations.Remove(loc.Attestation)
	}
	return nil
}

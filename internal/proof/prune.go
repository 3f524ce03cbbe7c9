package proof

import mapset "github.com/deckarep/golang-set/v2"

// PruneTree removes every edge whose child subtree holds no attestation.
// The root itself is kept even when nothing below it survives.
func PruneTree(root *Timestamp) error {
	if err := Validate(root); err != nil {
		return err
	}
	alive := make(map[*Timestamp]bool)
	var prune func(n *Timestamp) bool
	prune = func(n *Timestamp) bool {
		if v, ok := alive[n]; ok {
			return v
		}
		for i := len(n.edges) - 1; i >= 0; i-- {
			if !prune(n.edges[i].Child) {
				n.removeEdgeAt(i)
			}
		}
		v := n.attestations.Cardinality() > 0 || len(n.edges) > 0
		alive[n] = v
		return v
	}
	prune(root)
	return nil
}

type pruneConfig struct {
	only mapset.Set[Kind]
}

// PruneOption configures PruneTimestamp.
type PruneOption func(*pruneConfig)

// OnlyClasses limits the suboptimal-discard step to the given classes. By
// default every rankable class still present is reduced.
func OnlyClasses(kinds ...Kind) PruneOption {
	return func(c *pruneConfig) {
		c.only = mapset.NewThreadUnsafeSet(kinds...)
	}
}

// PruneTimestamp shrinks root to its minimal equivalent proof: it discards
// the listed attestations and classes, keeps the strongest attestation of
// each rankable class, then removes dead branches.
func PruneTimestamp(root *Timestamp, discardValues []Attestation, discardClasses []Kind, opts ...PruneOption) error {
	var cfg pruneConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	matchers := make([]Matcher, 0, len(discardValues)+len(discardClasses))
	for _, a := range discardValues {
		matchers = append(matchers, MatchValue(a))
	}
	for _, k := range discardClasses {
		matchers = append(matchers, MatchKind(k))
	}
	if err := DiscardAttestations(root, matchers); err != nil {
		return err
	}

	present := root.Kinds()
	for _, k := range RankableKinds {
		if !present.Contains(k) {
			continue
		}
		if cfg.only != nil && !cfg.only.Contains(k) {
			continue
		}
		if err := DiscardSuboptimal(root, k); err != nil {
			return err
		}
	}

	return PruneTree(root)
}

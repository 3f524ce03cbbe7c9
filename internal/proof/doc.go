// Package proof implements timestamp proof DAGs: nodes linked by
// deterministic byte transforms and anchored by attestations, together with
// the algorithms that verify a proof and shrink it to its minimal form.
package proof

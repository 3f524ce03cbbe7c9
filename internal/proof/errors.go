package proof

import (
	"errors"
	"fmt"
)

// Oracle failures. A timeout is reported as ErrTimeout but is otherwise
// handled exactly like ErrNotFound.
var (
	ErrNotFound           = errors.New("proof: block not found")
	ErrUnavailable        = errors.New("proof: oracle unavailable")
	ErrTimeout            = errors.New("proof: oracle timeout")
	ErrCommitmentMismatch = errors.New("proof: commitment mismatch")
)

// StructuralError reports a graph edit that would break a DAG invariant.
// The DAG is left unchanged when it is returned.
type StructuralError struct {
	Op     Op
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Op == (Op{}) {
		return "proof: structural error: " + e.Reason
	}
	return fmt.Sprintf("proof: structural error on %s: %s", e.Op, e.Reason)
}

// OracleConfigError reports an attestation class that needs an oracle but
// has none registered.
type OracleConfigError struct {
	Kind Kind
}

func (e *OracleConfigError) Error() string {
	return fmt.Sprintf("proof: no oracle configured for %s attestations", e.Kind)
}

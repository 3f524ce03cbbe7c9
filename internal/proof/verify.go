package proof

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLookupTimeout = 10 * time.Second
	defaultConcurrency   = 8
)

// Status is the outcome of checking one attestation.
type Status int

const (
	StatusFailed Status = iota
	StatusVerified
	StatusPending
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusPending:
		return "pending"
	case StatusUnknown:
		return "unknown"
	default:
		return "failed"
	}
}

// Result is the verification outcome of one attestation at one node. Time
// is set for verified results, Err for failed ones.
type Result struct {
	Node        *Timestamp
	Attestation Attestation
	Status      Status
	Time        time.Time
	Err         error
}

// Report maps every (node, attestation) pair of a DAG to its Result.
type Report struct {
	results []Result
	index   map[Located]int
}

// Results returns all results in canonical traversal order.
func (r *Report) Results() []Result {
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Lookup returns the result for attestation a at node n.
func (r *Report) Lookup(n *Timestamp, a Attestation) (Result, bool) {
	i, ok := r.index[Located{Node: n, Attestation: a}]
	if !ok {
		return Result{}, false
	}
	return r.results[i], true
}

// Count returns how many results have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Earliest returns the verified result with the earliest block time.
func (r *Report) Earliest() (Result, bool) {
	var (
		best  Result
		found bool
	)
	for _, res := range r.results {
		if res.Status != StatusVerified {
			continue
		}
		if !found || res.Time.Before(best.Time) {
			best, found = res, true
		}
	}
	return best, found
}

// Err combines every failed result into one error, or returns nil.
func (r *Report) Err() error {
	var errs *multierror.Error
	for _, res := range r.results {
		if res.Status == StatusFailed {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", res.Attestation, res.Err))
		}
	}
	return errs.ErrorOrNil()
}

type verifyConfig struct {
	explicit    Oracles
	timeout     time.Duration
	concurrency int
	log         zerolog.Logger
}

// VerifyOption configures VerifyAllAttestations.
type VerifyOption func(*verifyConfig)

// WithExplicitOracle uses o for class k instead of the oracle in the set.
func WithExplicitOracle(k Kind, o BlockHeaderOracle) VerifyOption {
	return func(c *verifyConfig) {
		c.explicit[k] = o
	}
}

// WithTimeout bounds each oracle query.
func WithTimeout(d time.Duration) VerifyOption {
	return func(c *verifyConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithConcurrency bounds the number of oracle queries in flight.
func WithConcurrency(n int) VerifyOption {
	return func(c *verifyConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func WithLogger(log zerolog.Logger) VerifyOption {
	return func(c *verifyConfig) {
		c.log = log
	}
}

// VerifyAllAttestations checks every attestation reachable from root.
// Blockchain attestations are resolved against the oracle for their chain;
// a failed lookup or a commitment mismatch only fails that attestation.
// Pending and unknown attestations are reported as such. The only error
// returned is an *OracleConfigError when a chain referenced by the DAG has
// no oracle.
func VerifyAllAttestations(ctx context.Context, root *Timestamp, oracles Oracles, opts ...VerifyOption) (*Report, error) {
	cfg := verifyConfig{
		explicit:    make(Oracles),
		timeout:     defaultLookupTimeout,
		concurrency: defaultConcurrency,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	resolve := func(k Kind) BlockHeaderOracle {
		if o, ok := cfg.explicit[k]; ok && o != nil {
			return o
		}
		return oracles[k]
	}

	locs := root.AllAttestations()
	report := &Report{
		results: make([]Result, len(locs)),
		index:   make(map[Located]int, len(locs)),
	}
	for i, loc := range locs {
		if loc.Attestation.Rankable() && resolve(loc.Attestation.kind) == nil {
			return nil, &OracleConfigError{Kind: loc.Attestation.kind}
		}
		report.index[loc] = i
		report.results[i] = Result{Node: loc.Node, Attestation: loc.Attestation}
	}

	var g errgroup.Group
	g.SetLimit(cfg.concurrency)
	for i := range report.results {
		res := &report.results[i]
		switch res.Attestation.kind {
		case KindPending:
			res.Status = StatusPending
		case KindUnknown:
			res.Status = StatusUnknown
		default:
			oracle := resolve(res.Attestation.kind)
			g.Go(func() error {
				checkAttestation(ctx, cfg, oracle, res)
				return nil
			})
		}
	}
	_ = g.Wait()

	return report, nil
}

// checkAttestation resolves one blockchain attestation and fills in res.
func checkAttestation(ctx context.Context, cfg verifyConfig, oracle BlockHeaderOracle, res *Result) {
	qctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	log := cfg.log.With().
		Str("attestation", res.Attestation.String()).
		Uint64("height", res.Attestation.height).
		Logger()

	hdr, err := lookupWithin(qctx, oracle, res.Attestation.height)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		res.Status, res.Err = StatusFailed, err
		log.Debug().Err(err).Msg("attestation lookup failed")
		return
	}
	if !bytes.Equal(hdr.MerkleRoot, res.Node.msg) {
		res.Status, res.Err = StatusFailed, ErrCommitmentMismatch
		log.Warn().Msg("block merkle root does not match attested message")
		return
	}
	res.Status, res.Time = StatusVerified, hdr.Time
	log.Debug().Time("block_time", hdr.Time).Msg("attestation verified")
}

type lookupResult struct {
	hdr BlockHeader
	err error
}

// lookupWithin returns when the lookup finishes or ctx is done, whichever
// comes first. An oracle that ignores ctx is left to finish on its own.
func lookupWithin(ctx context.Context, oracle BlockHeaderOracle, height uint64) (BlockHeader, error) {
	done := make(chan lookupResult, 1)
	go func() {
		hdr, err := oracle.Lookup(ctx, height)
		done <- lookupResult{hdr, err}
	}()
	select {
	case r := <-done:
		return r.hdr, r.err
	case <-ctx.Done():
		return BlockHeader{}, ctx.Err()
	}
}

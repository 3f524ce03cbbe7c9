package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"

	"github.com/systemshift/stampdag/internal/proof"
)

const (
	outcomeOK          = "ok"
	outcomeCached      = "cached"
	outcomeNotFound    = "not_found"
	outcomeUnavailable = "unavailable"
	outcomeTimeout     = "timeout"

	// bitcoind error codes meaning the block does not exist
	rpcInvalidParameter    = -8
	rpcInvalidAddressOrKey = -5

	retryBase = 200 * time.Millisecond
)

// Config describes one JSON-RPC node.
type Config struct {
	Chain     string
	URL       string
	User      string
	Password  string
	Timeout   time.Duration
	Retries   uint64
	CacheSize int
	Metrics   *Metrics
	Logger    zerolog.Logger
}

// RPCOracle resolves block heights through the JSON-RPC interface of a
// bitcoind-compatible node (getblockhash, getblockheader).
type RPCOracle struct {
	chain    string
	url      string
	user     string
	password string
	retries  uint64
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	cache    *lru.Cache[uint64, proof.BlockHeader]
	metrics  *Metrics
	log      zerolog.Logger
	nextID   atomic.Uint64
}

var _ proof.BlockHeaderOracle = (*RPCOracle)(nil)

// NewRPCOracle creates an oracle for the node described by cfg.
func NewRPCOracle(cfg Config) (*RPCOracle, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%s oracle: rpc url is required", cfg.Chain)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	cache, err := lru.New[uint64, proof.BlockHeader](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create header cache: %w", err)
	}

	log := cfg.Logger.With().Str("component", "oracle").Str("chain", cfg.Chain).Logger()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    cfg.Chain + "-rpc",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &RPCOracle{
		chain:    cfg.Chain,
		url:      strings.TrimRight(cfg.URL, "/"),
		user:     cfg.User,
		password: cfg.Password,
		retries:  cfg.Retries,
		client:   &http.Client{Timeout: cfg.Timeout},
		breaker:  breaker,
		cache:    cache,
		metrics:  cfg.Metrics,
		log:      log,
	}, nil
}

// Lookup returns the merkle root (in internal byte order) and time of the
// block at height.
func (o *RPCOracle) Lookup(ctx context.Context, height uint64) (proof.BlockHeader, error) {
	if hdr, ok := o.cache.Get(height); ok {
		o.metrics.observe(o.chain, outcomeCached, 0)
		return hdr, nil
	}

	start := time.Now()
	hdr, err := o.lookupWithRetry(ctx, height)
	o.metrics.observe(o.chain, outcomeOf(err), time.Since(start))
	if err != nil {
		return proof.BlockHeader{}, err
	}
	o.cache.Add(height, hdr)
	return hdr, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, proof.ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, proof.ErrTimeout):
		return outcomeTimeout
	default:
		return outcomeUnavailable
	}
}

func (o *RPCOracle) lookupWithRetry(ctx context.Context, height uint64) (proof.BlockHeader, error) {
	backoff, err := retry.NewExponential(retryBase)
	if err != nil {
		return proof.BlockHeader{}, err
	}
	backoff = retry.WithMaxRetries(o.retries, backoff)

	var hdr proof.BlockHeader
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := o.breaker.Execute(func() (interface{}, error) {
			h, found, err := o.fetch(ctx, height)
			if err != nil {
				return nil, err
			}
			// a missing block is a valid answer, not a node failure
			return lookupResult{header: h, found: found}, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s rpc: %w: %v", o.chain, proof.ErrUnavailable, err)
		}
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			o.log.Debug().Err(err).Uint64("height", height).Msg("rpc lookup failed, retrying")
			return retry.RetryableError(err)
		}
		r := res.(lookupResult)
		if !r.found {
			return fmt.Errorf("%s block %d: %w", o.chain, height, proof.ErrNotFound)
		}
		hdr = r.header
		return nil
	})
	switch {
	case err == nil:
		return hdr, nil
	case errors.Is(err, proof.ErrNotFound), errors.Is(err, proof.ErrUnavailable), errors.Is(err, proof.ErrTimeout):
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%s rpc: %w: %v", o.chain, proof.ErrTimeout, err)
	default:
		err = fmt.Errorf("%s rpc: %w: %v", o.chain, proof.ErrUnavailable, err)
	}
	return proof.BlockHeader{}, err
}

type lookupResult struct {
	header proof.BlockHeader
	found  bool
}

// fetch performs one getblockhash/getblockheader round. found is false when
// the node reports the block does not exist.
func (o *RPCOracle) fetch(ctx context.Context, height uint64) (proof.BlockHeader, bool, error) {
	var hash string
	if err := o.call(ctx, "getblockhash", []interface{}{height}, &hash); err != nil {
		if isNotFound(err) {
			return proof.BlockHeader{}, false, nil
		}
		return proof.BlockHeader{}, false, err
	}

	var header struct {
		MerkleRoot string `json:"merkleroot"`
		Time       int64  `json:"time"`
	}
	if err := o.call(ctx, "getblockheader", []interface{}{hash, true}, &header); err != nil {
		if isNotFound(err) {
			return proof.BlockHeader{}, false, nil
		}
		return proof.BlockHeader{}, false, err
	}

	root, err := chainhash.NewHashFromStr(header.MerkleRoot)
	if err != nil {
		return proof.BlockHeader{}, false, fmt.Errorf("parse merkle root %q: %w", header.MerkleRoot, err)
	}
	return proof.BlockHeader{
		MerkleRoot: root.CloneBytes(),
		Time:       time.Unix(header.Time, 0).UTC(),
	}, true, nil
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func isNotFound(err error) bool {
	var rerr *RPCError
	if errors.As(err, &rerr) {
		return rerr.Code == rpcInvalidParameter || rerr.Code == rpcInvalidAddressOrKey
	}
	return false
}

func (o *RPCOracle) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "1.0",
		"id":      o.nextID.Add(1),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.user != "" || o.password != "" {
		req.SetBasicAuth(o.user, o.password)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	// bitcoind reports RPC errors with a non-200 status and a JSON body
	var result struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, bytes.TrimSpace(data))
	}
	if result.Error != nil {
		return fmt.Errorf("%s: %w", method, result.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", method, resp.StatusCode)
	}
	if err := json.Unmarshal(result.Result, out); err != nil {
		return fmt.Errorf("%s: parse result: %w", method, err)
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/systemshift/stampdag/internal/config"
	"github.com/systemshift/stampdag/internal/oracle"
	"github.com/systemshift/stampdag/internal/proof"
)

// oracles builds a block-header oracle for every configured chain. A chain
// with an RPC endpoint uses it; otherwise its headers file is loaded.
func (a *app) oracles() (proof.Oracles, error) {
	chains := []struct {
		kind proof.Kind
		cfg  config.Chain
	}{
		{proof.KindBitcoin, a.cfg.Bitcoin},
		{proof.KindLitecoin, a.cfg.Litecoin},
	}

	oracles := make(proof.Oracles)
	for _, c := range chains {
		switch {
		case !c.cfg.Enabled():
			continue
		case c.cfg.RPCURL != "":
			o, err := oracle.NewRPCOracle(oracle.Config{
				Chain:     c.kind.String(),
				URL:       c.cfg.RPCURL,
				User:      c.cfg.RPCUser,
				Password:  c.cfg.RPCPassword,
				Timeout:   a.cfg.Oracle.Timeout,
				Retries:   a.cfg.Oracle.Retries,
				CacheSize: a.cfg.Oracle.CacheSize,
				Metrics:   a.metrics,
				Logger:    a.log,
			})
			if err != nil {
				return nil, err
			}
			oracles[c.kind] = o
		default:
			o, err := oracle.LoadStatic(c.cfg.Headers)
			if err != nil {
				return nil, fmt.Errorf("%s headers: %w", c.kind, err)
			}
			oracles[c.kind] = o
		}
	}
	return oracles, nil
}

func (a *app) verifyOptions() []proof.VerifyOption {
	return []proof.VerifyOption{
		proof.WithTimeout(a.cfg.Oracle.Timeout),
		proof.WithConcurrency(a.cfg.Verify.Concurrency),
		proof.WithLogger(a.log),
	}
}

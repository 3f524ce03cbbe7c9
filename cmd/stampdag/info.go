package main

import (
	"encoding/hex"
	"fmt"

	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"

	"github.com/systemshift/stampdag/internal/proof"
)

// proofSummary is what --dump prints.
type proofSummary struct {
	FileHashOp   string
	Digest       string
	Nodes        int
	Leaves       int
	Attestations map[string][]string
}

func summarize(dt *proof.DetachedTimestamp) proofSummary {
	s := proofSummary{
		FileHashOp:   dt.FileHashOp.String(),
		Digest:       hex.EncodeToString(dt.Digest()),
		Attestations: make(map[string][]string),
	}
	dt.Timestamp.Walk(func(n *proof.Timestamp) bool {
		s.Nodes++
		if n.IsLeaf() {
			s.Leaves++
		}
		return true
	})
	for _, l := range dt.Timestamp.AllAttestations() {
		kind := l.Attestation.Kind().String()
		s.Attestations[kind] = append(s.Attestations[kind], l.Attestation.String())
	}
	return s
}

func newInfoCmd(a *app) *cobra.Command {
	var verbose, dump bool
	cmd := &cobra.Command{
		Use:   "info FILE",
		Short: "Show the contents of a proof file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dt, err := readProof(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, proof.FormatDetached(dt, verbose))
			if dump {
				fmt.Fprintln(out, litter.Sdump(summarize(dt)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the message at every node")
	cmd.Flags().BoolVar(&dump, "dump", false, "dump a structural summary")
	return cmd
}

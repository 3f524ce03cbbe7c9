package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systemshift/stampdag/internal/codec"
	"github.com/systemshift/stampdag/internal/proof"
	"github.com/systemshift/stampdag/internal/store"
)

// pruneFlags are shared by prune and store optimize.
type pruneFlags struct {
	discardPending bool
	discardURIs    []string
	discardClasses []string
	only           []string
}

func (f *pruneFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.discardPending, "discard-pending", false, "drop every pending attestation")
	cmd.Flags().StringArrayVar(&f.discardURIs, "discard-uri", nil, "drop the pending attestation for this calendar URI")
	cmd.Flags().StringArrayVar(&f.discardClasses, "discard-class", nil, "drop every attestation of this class")
	cmd.Flags().StringArrayVar(&f.only, "only", nil, "reduce only these classes to their best attestation")
}

func (f *pruneFlags) options() (store.OptimizeOptions, error) {
	var opts store.OptimizeOptions
	if f.discardPending {
		opts.DiscardClasses = append(opts.DiscardClasses, proof.KindPending)
	}
	for _, uri := range f.discardURIs {
		if !proof.ValidPendingURI(uri) {
			return opts, fmt.Errorf("invalid calendar uri %q", uri)
		}
		opts.DiscardValues = append(opts.DiscardValues, proof.Pending(uri))
	}
	for _, s := range f.discardClasses {
		k, err := proof.ParseKind(s)
		if err != nil {
			return opts, err
		}
		opts.DiscardClasses = append(opts.DiscardClasses, k)
	}
	for _, s := range f.only {
		k, err := proof.ParseKind(s)
		if err != nil {
			return opts, err
		}
		opts.Only = append(opts.Only, k)
	}
	return opts, nil
}

func newPruneCmd(a *app) *cobra.Command {
	var flags pruneFlags
	cmd := &cobra.Command{
		Use:   "prune FILE",
		Short: "Drop redundant attestations and dead branches, rewriting FILE (old copy kept as FILE.bak)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			dt, err := readProof(args[0])
			if err != nil {
				return err
			}
			pruned, changed, err := opts.Apply(dt)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to prune")
				return nil
			}
			data, err := codec.Marshal(pruned)
			if err != nil {
				return err
			}
			if err := store.ReplaceWithBackup(args[0], data); err != nil {
				return err
			}
			a.log.Info().Str("file", args[0]).Msg("pruned proof")
			fmt.Fprint(cmd.OutOrStdout(), proof.FormatDetached(pruned, false))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

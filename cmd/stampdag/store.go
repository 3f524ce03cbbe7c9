package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/systemshift/stampdag/internal/codec"
	"github.com/systemshift/stampdag/internal/store"
)

func newStoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Keep named proofs in the local store",
	}
	cmd.AddCommand(
		newStorePutCmd(a),
		newStoreGetCmd(a),
		newStoreListCmd(a),
		newStoreHistoryCmd(a),
		newStoreOptimizeCmd(a),
		newStoreDeleteCmd(a),
	)
	return cmd
}

func newStorePutCmd(a *app) *cobra.Command {
	var merge bool
	cmd := &cobra.Command{
		Use:   "put NAME FILE",
		Short: "Save a proof file under NAME",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dt, err := readProof(args[1])
			if err != nil {
				return err
			}
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			save := repo.Save
			if merge {
				save = repo.Merge
			}
			rev, saved, err := save(args[0], dt)
			if err != nil {
				return err
			}
			if !saved {
				fmt.Fprintf(cmd.OutOrStdout(), "%s unchanged (%s)\n", args[0], store.FormatCID(rev.CID))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s saved as %s\n", args[0], store.FormatCID(rev.CID))
			return nil
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "merge into the stored proof instead of replacing it")
	return cmd
}

func newStoreGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME FILE",
		Short: "Write the stored proof NAME to FILE (- for stdout)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			dt, err := repo.Load(args[0])
			if err != nil {
				return err
			}
			data, err := codec.Marshal(dt)
			if err != nil {
				return err
			}
			if args[1] == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return store.SafeWrite(args[1], data, 0644)
		},
	}
}

func newStoreListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored proofs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			names, err := repo.List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range names {
				head, err := repo.Head(name)
				if err != nil {
					a.log.Warn().Err(err).Str("name", name).Msg("skipping")
					continue
				}
				fmt.Fprintf(w, "%s\t%s:%s\t%s\n", name, head.FileHashOp, head.Digest, head.Saved.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func newStoreHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history NAME",
		Short: "Show the revisions of a stored proof, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			revs, err := repo.History(args[0], limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, rev := range revs {
				state := fmt.Sprintf("%d bytes", len(rev.Proof))
				if rev.Deleted {
					state = "deleted"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, store.FormatCID(rev.CID), rev.Saved.Format(time.RFC3339), state)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most this many revisions")
	return cmd
}

func newStoreOptimizeCmd(a *app) *cobra.Command {
	var flags pruneFlags
	cmd := &cobra.Command{
		Use:   "optimize NAME",
		Short: "Prune a stored proof, saving a new revision when it shrinks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			rev, changed, err := repo.Optimize(args[0], opts)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already optimal\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s optimized as %s\n", args[0], store.FormatCID(rev.CID))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newStoreDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored proof (its history is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			if err := repo.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		},
	}
}

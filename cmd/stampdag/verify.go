package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/systemshift/stampdag/internal/proof"
)

var statusColor = map[proof.Status]func(format string, a ...interface{}) string{
	proof.StatusVerified: color.GreenString,
	proof.StatusPending:  color.YellowString,
	proof.StatusFailed:   color.RedString,
	proof.StatusUnknown:  color.HiBlackString,
}

func newVerifyCmd(a *app) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Verify every attestation of a proof against the configured chains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dt, err := readProof(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			derived := target == ""
			if derived {
				target = strings.TrimSuffix(args[0], ".ots")
			}
			if target != args[0] {
				if err := checkTarget(dt, target, derived); err != nil {
					return err
				}
			}

			oracles, err := a.oracles()
			if err != nil {
				return err
			}
			report, err := proof.VerifyAllAttestations(cmd.Context(), dt.Timestamp, oracles, a.verifyOptions()...)
			if err != nil {
				return err
			}
			printReport(out, report)

			if _, ok := report.Earliest(); !ok {
				if err := report.Err(); err != nil {
					return fmt.Errorf("no attestation verified: %w", err)
				}
				return errors.New("no attestation verified")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "stamped file (default: FILE without .ots)")
	return cmd
}

// checkTarget confirms the stamped file still hashes to the proof digest.
// A missing default target is skipped with a warning.
func checkTarget(dt *proof.DetachedTimestamp, path string, derived bool) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) && derived {
		fmt.Fprintln(os.Stderr, color.YellowString("warning: %s not found, checking the proof only", path))
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	ok, err := dt.MatchesReader(f)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s does not match the proof digest", path)
	}
	return nil
}

func printReport(w io.Writer, report *proof.Report) {
	for _, res := range report.Results() {
		fmt.Fprintln(w, statusColor[res.Status]("%s", proof.FormatResult(res)))
	}
	if best, ok := report.Earliest(); ok {
		fmt.Fprintln(w, color.GreenString("Success! %s attests existence as of %s",
			best.Attestation, best.Time.UTC().Format(time.RFC3339)))
	}
}

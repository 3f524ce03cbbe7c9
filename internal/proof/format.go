package proof

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// FormatTree renders the DAG as an indented listing of ops and
// attestations. Branches are marked with "->"; a single edge continues at
// the same indentation. verbose adds the msg of every node.
func FormatTree(root *Timestamp, verbose bool) string {
	var b strings.Builder
	writeTree(&b, root, 0, verbose)
	return b.String()
}

func writeTree(b *strings.Builder, n *Timestamp, indent int, verbose bool) {
	pad := strings.Repeat(" ", indent)
	line := func(s string) {
		b.WriteString(pad)
		b.WriteString(s)
		b.WriteByte('\n')
	}

	for _, a := range n.Attestations() {
		line("verify " + a.String())
	}

	switch len(n.edges) {
	case 0:
	case 1:
		e := n.edges[0]
		line(opLine(e, verbose))
		writeTree(b, e.Child, indent, verbose)
	default:
		for _, e := range n.edges {
			line("-> " + opLine(e, verbose))
			writeTree(b, e.Child, indent+4, verbose)
		}
	}
}

func opLine(e Edge, verbose bool) string {
	if !verbose {
		return e.Op.String()
	}
	return e.Op.String() + " == " + hex.EncodeToString(e.Child.msg)
}

// FormatDetached renders the file digest line followed by FormatTree.
func FormatDetached(dt *DetachedTimestamp, verbose bool) string {
	return fmt.Sprintf("File %s hash: %s\nTimestamp:\n%s",
		dt.FileHashOp, hex.EncodeToString(dt.Digest()), FormatTree(dt.Timestamp, verbose))
}

// FormatResult renders one result as a single line without a newline.
func FormatResult(res Result) string {
	line := fmt.Sprintf("%-8s %s", res.Status, res.Attestation)
	switch res.Status {
	case StatusVerified:
		line += " at " + res.Time.UTC().Format(time.RFC3339)
	case StatusFailed:
		line += fmt.Sprintf(": %v", res.Err)
	}
	return line
}

// FormatReport renders one line per result followed by a summary line.
func FormatReport(r *Report) string {
	var b strings.Builder
	for _, res := range r.results {
		b.WriteString(FormatResult(res))
		b.WriteByte('\n')
	}
	if best, ok := r.Earliest(); ok {
		fmt.Fprintf(&b, "earliest: %s (%s)\n", best.Time.UTC().Format(time.RFC3339), best.Attestation)
	} else {
		b.WriteString("earliest: none\n")
	}
	return b.String()
}

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/linkcrawl/internal/model"
)

// SimpleWriter outputs a plain text summary for terminal display.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(stats *model.GraphStats) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                    LINKCRAWL GRAPH\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Generated:      %s\n", stats.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Pages:          %d\n", stats.Pages)
	fmt.Fprintf(&sb, "  Resolved:     %d (%.1f%%)\n", stats.Resolved, stats.ResolvedRatio()*100)
	fmt.Fprintf(&sb, "  Stubs:        %d\n", stats.Stubs)
	fmt.Fprintf(&sb, "  Missing:      %d\n", stats.Missing)
	fmt.Fprintf(&sb, "Links:          %d\n", stats.Links)
	fmt.Fprintf(&sb, "Parked:         %d continuation(s)\n", stats.PendingContinuations)

	if len(stats.TopLinked) > 0 {
		sb.WriteString("\nMost linked pages:\n")
		for i, pd := range stats.TopLinked {
			fmt.Fprintf(&sb, "  %2d. %-40s %8s %6d\n",
				i+1, truncateString(pageLabel(pd.Page), 40), pd.Page.ExternalID, pd.Incoming)
		}
	}

	sb.WriteString("\n")
	return w.output.Write([]byte(sb.String()))
}

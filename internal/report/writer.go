package report

import (
	"io"

	"github.com/nao1215/linkcrawl/internal/model"
)

// Writer renders a graph summary.
type Writer interface {
	// Write outputs the summary and returns the number of bytes written.
	Write(stats *model.GraphStats) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// pageLabel returns the title of a page, or a placeholder for stubs.
func pageLabel(p model.Page) string {
	switch {
	case p.Title != "":
		return p.Title
	case p.Missing:
		return "(missing)"
	default:
		return "(unresolved)"
	}
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

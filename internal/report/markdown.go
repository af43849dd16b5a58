package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/linkcrawl/internal/model"
)

// MarkdownWriter outputs the summary as GitHub flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(stats *model.GraphStats) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("linkcrawl Graph Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", stats.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages", strconv.Itoa(stats.Pages)},
			{"Resolved", fmt.Sprintf("%d (%.1f%%)", stats.Resolved, stats.ResolvedRatio()*100)},
			{"Stubs", strconv.Itoa(stats.Stubs)},
			{"Missing", strconv.Itoa(stats.Missing)},
			{"Links", strconv.Itoa(stats.Links)},
			{"Parked continuations", strconv.Itoa(stats.PendingContinuations)},
		},
	})
	md.PlainText("")

	if stats.Pages > 0 {
		w.writePieChart(md, stats)
	}
	w.writeAlert(md, stats)
	w.writeTopLinked(md, stats)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkcrawl](https://github.com/nao1215/linkcrawl)*")

	return len(md.String()), md.Build()
}

// writePieChart writes the page state distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, stats *model.GraphStats) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page States"),
		piechart.WithShowData(true),
	)

	if stats.Resolved > 0 {
		chart.LabelAndIntValue("Resolved", uint64(stats.Resolved))
	}
	if stats.Stubs > 0 {
		chart.LabelAndIntValue("Stubs", uint64(stats.Stubs))
	}
	if stats.Missing > 0 {
		chart.LabelAndIntValue("Missing", uint64(stats.Missing))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert notes whether the crawl has work left.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, stats *model.GraphStats) {
	switch {
	case stats.Pages == 0:
		md.Note("The graph is empty. Run `linkcrawl crawl <page-id>` to seed it.")
	case stats.PendingContinuations > 0:
		md.Importantf("%d paginated result set(s) were interrupted and resume on the next crawl.",
			stats.PendingContinuations)
	case stats.Stubs > 0:
		md.Note(fmt.Sprintf("%d page(s) are still unresolved.", stats.Stubs))
	default:
		md.Tip("Every known page is resolved.")
	}
	md.PlainText("")
}

// writeTopLinked writes the most linked pages.
func (w *MarkdownWriter) writeTopLinked(md *markdown.Markdown, stats *model.GraphStats) {
	if len(stats.TopLinked) == 0 {
		return
	}

	md.H2("Most Linked Pages")
	md.PlainText("")

	rows := make([][]string, len(stats.TopLinked))
	for i, pd := range stats.TopLinked {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			truncateString(pageLabel(pd.Page), 60),
			"`" + pd.Page.ExternalID + "`",
			strconv.Itoa(pd.Incoming),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "Page ID", "Incoming"},
		Rows:   rows,
	})
	md.PlainText("")
}

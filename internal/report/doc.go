// Package report renders graph summaries.
//
// Writers:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: GitHub flavored Markdown with a mermaid pie chart
//   - JSONWriter: JSON for other tools
//
// All of them implement Writer, so the stats command picks one by flag.
package report

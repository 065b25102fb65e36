// Package report renders console status blocks and run history.
//
// Writers for the run history:
//   - SimpleWriter: human-readable text for terminal display
//   - MarkdownWriter: GitHub Flavored Markdown with tables and a pie chart
//   - JSONWriter: structured JSON for tool integration
//
// SimpleWriter also renders the live blocks printed while a cycle runs:
// the per-credential claim summary, the balance block and the cycle summary.
package report

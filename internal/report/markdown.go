package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/claimbot/internal/model"
)

// MarkdownWriter outputs the run history in GitHub Flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteHistory outputs the run history in Markdown format.
func (w *MarkdownWriter) WriteHistory(history *model.History) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, history)
	w.writeCycles(md, history)
	w.writeRejected(md, history)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title, the totals table and the chart.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, history *model.History) {
	totals := history.Totals()

	md.H1("claimbot Run History")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", history.GeneratedAt.Format(timeLayout)},
			{"Cycles", strconv.Itoa(len(history.Cycles))},
			{"Claimed", strconv.Itoa(totals.Claimed)},
			{"Already claimed", strconv.Itoa(totals.AlreadyClaimed)},
			{"Failed", strconv.Itoa(totals.Failed)},
			{"Exhausted runs", strconv.Itoa(history.ExhaustedCount())},
		},
	})
	md.PlainText("")

	if totals.Claimed+totals.AlreadyClaimed+totals.Failed > 0 {
		w.writePieChart(md, totals)
	}
	w.writeAlert(md, history)
}

// writePieChart writes a mermaid pie chart of claim outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, totals model.Counts) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Claim Outcomes"),
		piechart.WithShowData(true),
	)

	if totals.Claimed > 0 {
		chart.LabelAndIntValue("Claimed", uint64(totals.Claimed))
	}
	if totals.AlreadyClaimed > 0 {
		chart.LabelAndIntValue("Already claimed", uint64(totals.AlreadyClaimed))
	}
	if totals.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(totals.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert when credentials ran out of transports.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, history *model.History) {
	switch n := history.ExhaustedCount(); {
	case n > 0:
		md.Warningf("%d credential run(s) exhausted every proxy and the direct fallback.", n)
	case len(history.Cycles) == 0:
		md.Note("No cycles recorded yet.")
	default:
		md.Tip("Every credential run completed.")
	}
	md.PlainText("")
}

// writeCycles writes one section per cycle.
func (w *MarkdownWriter) writeCycles(md *markdown.Markdown, history *model.History) {
	md.H2("Cycles")
	md.PlainText("")

	if len(history.Cycles) == 0 {
		md.PlainText("No cycles recorded.")
		md.PlainText("")
		return
	}

	for _, c := range history.Cycles {
		md.H3f("Cycle #%d (%s)", c.Number, c.StartedAt.Format(timeLayout))
		md.PlainText("")
		md.BulletList(
			"Store: `"+c.Store+"`",
			"Proxies: "+strconv.Itoa(c.Proxies),
			"Duration: "+c.Duration().Round(time.Second).String(),
			"ID: `"+c.ID+"`",
		)
		md.PlainText("")

		rows := make([][]string, len(c.Results))
		for i, r := range c.Results {
			via := "direct"
			if p := r.Outcome.LastProxy(); p != "" {
				via = "`" + truncateString(p, 40) + "`"
			}
			rows[i] = []string{
				r.Label,
				outcomeText(r.Outcome.Kind),
				strconv.Itoa(r.Outcome.Counts.Claimed),
				strconv.Itoa(r.Outcome.Counts.AlreadyClaimed),
				strconv.Itoa(r.Outcome.Counts.Failed),
				strconv.Itoa(len(r.Outcome.Attempts)),
				via,
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Credential", "Outcome", "Claimed", "Already", "Failed", "Attempts", "Last transport"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeRejected writes the rejected proxy list.
func (w *MarkdownWriter) writeRejected(md *markdown.Markdown, history *model.History) {
	if len(history.Rejected) == 0 {
		return
	}

	md.H2("Rejected Proxies")
	md.PlainText("")

	rows := make([][]string, len(history.Rejected))
	for i, r := range history.Rejected {
		rows[i] = []string{r.RecordedAt.Format(timeLayout), "`" + truncateString(r.Line, 60) + "`"}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Recorded", "Proxy"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by claimbot*")
}

func outcomeText(k model.OutcomeKind) string {
	switch k {
	case model.OutcomeSuccess:
		return "✅ success"
	case model.OutcomeExhausted:
		return "❌ exhausted"
	default:
		return k.String()
	}
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

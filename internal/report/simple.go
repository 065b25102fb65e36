package report

import (
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/claimbot/internal/model"
)

const (
	ruleWidth  = 50
	timeLayout = "2006-01-02 15:04:05 MST"
)

// SimpleWriter outputs human-readable text for terminal display.
type SimpleWriter struct {
	baseWriter

	// printer formats numbers with thousands separators.
	printer *message.Printer

	// title capitalizes task status words.
	title cases.Caser

	// verbose adds per-attempt detail to the history output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithLanguage sets the language used for number formatting.
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.printer = message.NewPrinter(tag)
		w.title = cases.Title(tag)
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
		title:      cases.Title(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteTask writes the line announcing a task before it is claimed.
func (w *SimpleWriter) WriteTask(task model.Task) (int, error) {
	status := task.Status
	if status == "" {
		status = "unknown"
	}
	return w.output.Write([]byte(w.printer.Sprintf("Processing: %s (%s) - %v points\n",
		task.Name, w.title.String(status), task.PointAmount)))
}

// WriteClaimSummary writes the claim counters of one credential.
func (w *SimpleWriter) WriteClaimSummary(label string, counts model.Counts) (int, error) {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(w.printer.Sprintf("Task processing summary for %s:\n", label))
	sb.WriteString(w.printer.Sprintf("  Successfully claimed: %d\n", counts.Claimed))
	sb.WriteString(w.printer.Sprintf("  Already claimed:      %d\n", counts.AlreadyClaimed))
	sb.WriteString(w.printer.Sprintf("  Failed to claim:      %d\n", counts.Failed))
	return w.output.Write([]byte(sb.String()))
}

// WriteBalance writes the balance block of one credential.
// A nil stats writes a short notice instead.
func (w *SimpleWriter) WriteBalance(label string, stats *model.PointStats) (int, error) {
	if stats == nil {
		return w.output.Write([]byte(w.printer.Sprintf("No point stats available for %s\n", label)))
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(w.printer.Sprintf("BALANCE INFORMATION (%s)\n", label))
	sb.WriteString(strings.Repeat("-", 42))
	sb.WriteString("\n")
	sb.WriteString(w.printer.Sprintf("Total Points:      %.2f\n", stats.TotalPointEarned))
	sb.WriteString(w.printer.Sprintf("Task Points:       %.2f\n", stats.TotalPointTask))
	sb.WriteString(w.printer.Sprintf("Internet Points:   %.2f\n", stats.TotalPointInternet))
	sb.WriteString(w.printer.Sprintf("Referral Points:   %.2f\n", stats.TotalPointReferral))
	sb.WriteString(w.printer.Sprintf("Today's Earnings:  %.2f\n", stats.TodayPointEarned))
	sb.WriteString(w.printer.Sprintf("Earning Rate:      %.2f/day\n", stats.EarningRate))
	sb.WriteString(strings.Repeat("-", 42))
	sb.WriteString("\n\n")
	return w.output.Write([]byte(sb.String()))
}

// WriteCycleSummary writes the totals of a finished cycle.
func (w *SimpleWriter) WriteCycleSummary(summary *model.CycleSummary) (int, error) {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(w.printer.Sprintf("CYCLE #%d TOTAL SUMMARY:\n", summary.Number))
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(w.printer.Sprintf("Total successfully claimed: %d\n", summary.Totals.Claimed))
	sb.WriteString(w.printer.Sprintf("Total already claimed:      %d\n", summary.Totals.AlreadyClaimed))
	sb.WriteString(w.printer.Sprintf("Total failed to claim:      %d\n", summary.Totals.Failed))
	if n := summary.Exhausted(); n > 0 {
		sb.WriteString(w.printer.Sprintf("Credentials exhausted:      %d\n", n))
	}
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	return w.output.Write([]byte(sb.String()))
}

// WriteHistory outputs the run history in human-readable format.
func (w *SimpleWriter) WriteHistory(history *model.History) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          CLAIMBOT HISTORY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	totals := history.Totals()
	sb.WriteString(w.printer.Sprintf("Generated:        %s\n", history.GeneratedAt.Format(timeLayout)))
	sb.WriteString(w.printer.Sprintf("Cycles:           %d\n", len(history.Cycles)))
	sb.WriteString(w.printer.Sprintf("Claimed:          %d\n", totals.Claimed))
	sb.WriteString(w.printer.Sprintf("Already claimed:  %d\n", totals.AlreadyClaimed))
	sb.WriteString(w.printer.Sprintf("Failed:           %d\n", totals.Failed))
	sb.WriteString(w.printer.Sprintf("Exhausted runs:   %d\n", history.ExhaustedCount()))
	sb.WriteString("\n")

	if len(history.Cycles) == 0 {
		sb.WriteString("No cycles recorded.\n")
	}
	for _, c := range history.Cycles {
		w.writeCycle(&sb, c)
	}

	if len(history.Rejected) > 0 {
		sb.WriteString(strings.Repeat("-", ruleWidth))
		sb.WriteString("\n")
		sb.WriteString(w.printer.Sprintf("Rejected proxies (%d):\n", len(history.Rejected)))
		for _, r := range history.Rejected {
			sb.WriteString(w.printer.Sprintf("  %s  %s\n", r.RecordedAt.Format(timeLayout), r.Line))
		}
	}

	return w.output.Write([]byte(sb.String()))
}

// writeCycle writes one cycle of the history.
func (w *SimpleWriter) writeCycle(sb *strings.Builder, c *model.CycleSummary) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(w.printer.Sprintf("Cycle #%d  %s  (%s, %d proxies, %s)\n",
		c.Number, c.StartedAt.Format(timeLayout), c.Store, c.Proxies, c.Duration().Round(time.Second)))
	sb.WriteString(w.printer.Sprintf("  claimed %d / already %d / failed %d\n",
		c.Totals.Claimed, c.Totals.AlreadyClaimed, c.Totals.Failed))

	for _, r := range c.Results {
		sb.WriteString(w.printer.Sprintf("  - %-30s %-9s %d/%d/%d\n",
			r.Label, r.Outcome.Kind, r.Outcome.Counts.Claimed, r.Outcome.Counts.AlreadyClaimed, r.Outcome.Counts.Failed))
		if !w.verbose {
			continue
		}
		for i, a := range r.Outcome.Attempts {
			via := a.Proxy
			if a.Direct() {
				via = "direct"
			}
			status := "ok"
			if a.Err != "" {
				status = a.Err
			}
			sb.WriteString(w.printer.Sprintf("      attempt %d via %s: %s\n", i+1, via, status))
		}
	}
}

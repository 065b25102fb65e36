package report

import (
	"io"

	"github.com/nao1215/claimbot/internal/model"
)

// Writer defines the interface for run history output.
type Writer interface {
	// WriteHistory outputs the history to the configured destination.
	// Returns the number of bytes written and any error encountered.
	WriteHistory(history *model.History) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteHistory outputs the history to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteHistory(history *model.History) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(history)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

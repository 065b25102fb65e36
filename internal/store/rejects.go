package store

import (
	"log/slog"
	"os"
	"sync"

	"github.com/nao1215/claimbot/internal/proxy"
)

// RejectFile is the append-only sink of rejected and failed proxy lines.
// Writes are best effort: errors are logged at debug level and swallowed.
type RejectFile struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewRejectFile creates a sink appending to path.
func NewRejectFile(path string, logger *slog.Logger) *RejectFile {
	if logger == nil {
		logger = slog.Default()
	}
	return &RejectFile{path: path, logger: logger}
}

// Path returns the file path of the sink.
func (r *RejectFile) Path() string {
	return r.path
}

// Reject appends line to the sink.
func (r *RejectFile) Reject(line string) {
	if line == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // Sink path comes from configuration
	if err != nil {
		r.logger.Debug("failed to open rejection sink", "path", r.path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		r.logger.Debug("failed to write rejection sink", "path", r.path, "error", err)
	}
}

// Tee returns a rejector forwarding every line to each non-nil rejector.
func Tee(rejectors ...proxy.Rejector) proxy.Rejector {
	out := make(tee, 0, len(rejectors))
	for _, r := range rejectors {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type tee []proxy.Rejector

func (t tee) Reject(line string) {
	for _, r := range t {
		r.Reject(line)
	}
}

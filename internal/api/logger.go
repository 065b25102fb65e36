package api

import (
	"fmt"
	"log/slog"
	"strings"
)

// restyLogger routes resty's internal diagnostics to slog at debug level.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "source", "resty", "severity", "error")
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "source", "resty", "severity", "warn")
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "source", "resty")
}

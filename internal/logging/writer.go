package logging

import (
	"log/slog"
	"strings"
)

// Writer is an io.Writer implementation that forwards subprocess output
// (e.g. git clone progress from the chart source fetcher) to slog.
type Writer struct {
	logger *slog.Logger
}

// NewWriter constructs a Writer bound to the provided logger.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// Write logs the given bytes line by line at debug level.
func (w *Writer) Write(p []byte) (int, error) {
	if w.logger != nil {
		for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
			if line != "" {
				w.logger.Debug("subprocess output", "line", line)
			}
		}
	}
	return len(p), nil
}

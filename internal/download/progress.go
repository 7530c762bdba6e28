package download

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/slok/zimg/internal/printer"
)

// ProgressWriter wraps an io.Writer to display download progress.
type ProgressWriter struct {
	dst          io.Writer
	statusWriter io.Writer
	label        string
	total        int64
	written      int64
	mu           sync.Mutex
}

// NewProgressWriter creates a new progress writer.
// dst receives the actual data, statusWriter receives progress output prefixed with the label.
// If total is 0 or negative, only bytes written are shown (no percentage).
func NewProgressWriter(dst io.Writer, statusWriter io.Writer, label string, total int64) *ProgressWriter {
	return &ProgressWriter{
		dst:          dst,
		statusWriter: statusWriter,
		label:        label,
		total:        total,
	}
}

func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.dst.Write(p)

	pw.mu.Lock()
	pw.written += int64(n)
	pw.printProgress()
	pw.mu.Unlock()

	return n, err
}

// Written returns the number of bytes written so far.
func (pw *ProgressWriter) Written() int64 {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.written
}

// Finish prints the final progress line with a newline.
func (pw *ProgressWriter) Finish() {
	fmt.Fprintln(pw.statusWriter)
}

func (pw *ProgressWriter) printProgress() {
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		barWidth := 40
		filled := int(pct / 100 * float64(barWidth))
		if filled > barWidth {
			filled = barWidth
		}
		bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
		fmt.Fprintf(pw.statusWriter, "\r  %s [%s] %3.0f%% %s / %s", pw.label, bar, pct, printer.FormatBytes(pw.written), printer.FormatBytes(pw.total))
	} else {
		fmt.Fprintf(pw.statusWriter, "\r  %s %s downloaded", pw.label, printer.FormatBytes(pw.written))
	}
}

package commands

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/slok/zimg/internal/model"
	"github.com/slok/zimg/internal/printer"
)

// progressLine renders the tracked task progress on a single terminal line.
type progressLine struct {
	mu      sync.Mutex
	w       io.Writer
	lastLen int
	used    bool
}

func newProgressLine(w io.Writer) *progressLine {
	return &progressLine{w: w}
}

// Update redraws the line with the task state.
func (p *progressLine) Update(t model.Task) {
	line := fmt.Sprintf("%s %s", printer.ProgressBar(t.Progress), t.Status)
	if t.TotalSteps > 0 {
		line += fmt.Sprintf(" (step %d/%d)", t.CurrentStep, t.TotalSteps)
	}
	if t.Message != "" {
		line += ": " + printer.Truncate(t.Message, 60)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pad := ""
	if n := p.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
	p.lastLen = len(line)
	p.used = true
}

// Done ends the line.
func (p *progressLine) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.used {
		fmt.Fprintln(p.w)
		p.used = false
		p.lastLen = 0
	}
}

func systemSummary(s model.SystemStatus) string {
	parts := []string{
		fmt.Sprintf("CPU %.1f%%", s.CPU.UsagePercent),
		fmt.Sprintf("RAM %.1f%%", s.Memory.UsagePercent),
	}
	if s.GPU != nil && s.GPU.Available {
		parts = append(parts, fmt.Sprintf("GPU %.1f%% (%.0f°C)", s.GPU.UsagePercent, s.GPU.TemperatureC))
	}
	if s.Disk != nil {
		parts = append(parts, fmt.Sprintf("Disk %.1f%%", s.Disk.UsagePercent))
	}
	return strings.Join(parts, " | ")
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/jmylchreest/dlcut/internal/job"
	"github.com/jmylchreest/dlcut/internal/progress"
	"github.com/jmylchreest/dlcut/internal/service"
	"github.com/jmylchreest/dlcut/pkg/format"
)

const (
	defaultTermWidth = 80
	minBarWidth      = 10
	maxBarWidth      = 40
)

var (
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))  // green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// terminalSink renders updates on w. On a terminal it redraws one styled
// line with a progress bar; otherwise every update is its own plain line.
type terminalSink struct {
	mu          sync.Mutex
	w           io.Writer
	interactive bool
	width       int
	lastLen     int
}

func newTerminalSink(w io.Writer) *terminalSink {
	t := &terminalSink{w: w, width: defaultTermWidth}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.interactive = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			t.width = width
		}
	}
	return t
}

// Publish implements progress.Sink.
func (t *terminalSink) Publish(u progress.Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.interactive {
		fmt.Fprintln(t.w, renderUpdate(u))
		return
	}

	line := renderStyled(u, t.width)
	n := lipgloss.Width(line)
	pad := ""
	if t.lastLen > n {
		pad = strings.Repeat(" ", t.lastLen-n)
	}
	fmt.Fprintf(t.w, "\r%s%s", line, pad)
	t.lastLen = n

	if u.Stage.IsTerminal() {
		fmt.Fprintln(t.w)
		t.lastLen = 0
	}
}

func renderUpdate(u progress.Update) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %6s", u.Stage, format.Percentage(u.Percent, 1))
	if s := stats(u); s != "" {
		b.WriteString(" " + s)
	}
	if u.Message != "" {
		b.WriteString("  " + u.Message)
	}
	return b.String()
}

// renderStyled fits a bar, the percentage and the message into width columns.
func renderStyled(u progress.Update, width int) string {
	style := activeStyle
	switch u.Stage {
	case progress.StageComplete:
		style = successStyle
	case progress.StageError:
		style = errorStyle
	}

	barWidth := min(max(width/3, minBarWidth), maxBarWidth)
	parts := []string{
		style.Render(fmt.Sprintf("%-11s", u.Stage)),
		barStyle.Render(bar(u.Percent, barWidth)),
		fmt.Sprintf("%6s", format.Percentage(u.Percent, 1)),
	}
	if s := stats(u); s != "" {
		parts = append(parts, detailStyle.Render(s))
	}
	line := strings.Join(parts, " ")

	if u.Message != "" {
		room := width - lipgloss.Width(line) - 3
		if room > 0 {
			msg := u.Message
			if r := []rune(msg); len(r) > room {
				msg = string(r[:room-1]) + "…"
			}
			line += "  " + msg
		}
	}
	return line
}

func bar(percent float64, width int) string {
	filled := min(max(int(percent/100*float64(width)), 0), width)
	return "•" + strings.Repeat("━", filled) + strings.Repeat(" ", width-filled) + "•"
}

func stats(u progress.Update) string {
	var parts []string
	if u.Speed != "" {
		parts = append(parts, "at "+u.Speed)
	}
	if u.ETA != "" {
		parts = append(parts, "ETA "+u.ETA)
	}
	return strings.Join(parts, " ")
}

// waitForJob blocks until h finishes. Cancelling ctx cancels the job.
func waitForJob(ctx context.Context, downloads *service.DownloadService, h *job.Handle) (string, error) {
	select {
	case <-h.Done():
	case <-ctx.Done():
		_ = downloads.Cancel()
	}
	return h.Wait()
}

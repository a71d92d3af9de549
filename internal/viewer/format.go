// Package viewer implements C10: the terminal renderer and input handler
// that drives C9 and calls C6/C8 (spec.md §4.8). Grounded on the
// teacher's internal/ui.Chat (readline-backed single loop, signal-driven
// shutdown) generalized from a chat REPL to a live table view, and on the
// retrieved DanielLaubacher-gogrep internal/output/color.go for the
// lipgloss + TTY-detection styling idiom.
package viewer

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

// Column widths, fixed per spec.md §4.8.
const (
	widthTimestamp = 19
	widthElapsed   = 9
	widthName      = 35
	widthKind      = 8
	widthLines     = 6
	widthBlocks    = 8
	widthSize      = 7
	minDirWidth    = 10
)

// FormatTimestamp renders t in the fixed 19-column layout.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// FormatElapsed implements the elapsed-time formatting ladder (spec.md
// §4.8).
func FormatElapsed(now, eventTime time.Time) string {
	d := now.Sub(eventTime)
	if d < 0 {
		d = 0
	}

	switch {
	case d < 60*time.Minute:
		m := int(d / time.Minute)
		s := int((d % time.Minute) / time.Second)
		return fmt.Sprintf("%02d:%02d", m, s)

	case d < 72*time.Hour:
		h := int(d / time.Hour)
		m := int((d % time.Hour) / time.Minute)
		s := int((d % time.Minute) / time.Second)
		if h < 10 {
			return fmt.Sprintf("%d:%02d:%02d", h, m, s)
		}
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)

	case d < 90*24*time.Hour:
		days := int(d / (24 * time.Hour))
		return fmt.Sprintf("%d days", days)

	default:
		months := int(d / (30 * 24 * time.Hour))
		return fmt.Sprintf("%d months", months)
	}
}

// FormatSize implements the size formatting ladder (spec.md §4.8).
func FormatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes < kb:
		return fmt.Sprintf("%dB", bytes)
	case bytes < mb:
		return fmt.Sprintf("%.1fK", float64(bytes)/kb)
	case bytes < gb:
		return fmt.Sprintf("%.1fM", float64(bytes)/mb)
	default:
		return fmt.Sprintf("%.1fG", float64(bytes)/gb)
	}
}

// FormatCount thousands-separates a count for display (spec.md §4.8,
// grounded on github.com/dustin/go-humanize, already an indirect teacher
// dependency promoted to direct use here).
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// TruncateTail fits s within width terminal columns, trailing-truncating
// with an ellipsis and padding with spaces if shorter. East-Asian-wide
// runes count as width 2 (spec.md §4.8).
func TruncateTail(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := runewidth.StringWidth(s)
	if w <= width {
		return s + strings.Repeat(" ", width-w)
	}
	if width <= 1 {
		return strings.Repeat(".", width)
	}
	return runewidth.Truncate(s, width, "…")
}

// TruncateHead fits s within width columns, head-truncating with a
// leading ellipsis (used for the directory column; spec.md §4.8).
func TruncateHead(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := runewidth.StringWidth(s)
	if w <= width {
		return s + strings.Repeat(" ", width-w)
	}
	if width <= 1 {
		return strings.Repeat(".", width)
	}

	runes := []rune(s)
	budget := width - 1 // reserve one column for the ellipsis
	acc := 0
	start := len(runes)
	for i := len(runes) - 1; i >= 0; i-- {
		rw := runewidth.RuneWidth(runes[i])
		if acc+rw > budget {
			break
		}
		acc += rw
		start = i
	}
	return "…" + string(runes[start:])
}

// DirWidth computes the remaining width available for the directory
// column given a total terminal width, enforcing the minimum of 10
// (spec.md §4.8).
func DirWidth(totalWidth int) int {
	fixed := widthTimestamp + widthElapsed + widthName + widthKind + widthLines + widthBlocks + widthSize
	// Column separators: one space between each of the 8 columns.
	fixed += 7
	remaining := totalWidth - fixed
	if remaining < minDirWidth {
		remaining = minDirWidth
	}
	return remaining
}

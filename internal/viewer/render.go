package viewer

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cctop/cctop/internal/model"
	"github.com/cctop/cctop/internal/viewerstate"
)

// Styles mirror the teacher's internal/ui color palette, adapted from a
// chat transcript's role coloring to a status/kind palette (spec.md §4.8).
var (
	styleBanner   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	styleRunning  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleStopped  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleUnknown  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleHeader   = lipgloss.NewStyle().Bold(true).Underline(true)
	styleSelected = lipgloss.NewStyle().Reverse(true)
	styleCmdBar   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	kindColors = map[model.Kind]lipgloss.Style{
		model.KindFind:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		model.KindCreate:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		model.KindModify:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		model.KindDelete:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		model.KindMove:    lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		model.KindRestore: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	}
)

// renderBanner is header line 1: product banner + collector status
// (spec.md §4.8).
func renderBanner(status CollectorStatus, pid int) string {
	banner := styleBanner.Render("cctop")
	var statusStr string
	switch status {
	case StatusRunning:
		statusStr = styleRunning.Render(fmt.Sprintf("RUNNING (pid %d)", pid))
	case StatusStopped:
		statusStr = styleStopped.Render("STOPPED")
	case StatusChecking:
		statusStr = styleUnknown.Render("CHECKING")
	default:
		statusStr = styleUnknown.Render("UNKNOWN")
	}
	return fmt.Sprintf("%s  collector: %s", banner, statusStr)
}

// renderColumnHeader is the column header, drawn below the match-count
// line (spec.md §4.8).
func renderColumnHeader(dirWidth int) string {
	cols := []string{
		pad("TIMESTAMP", widthTimestamp),
		pad("ELAPSED", widthElapsed),
		pad("NAME", widthName),
		pad("KIND", widthKind),
		pad("LINES", widthLines),
		pad("BLOCKS", widthBlocks),
		pad("SIZE", widthSize),
		pad("DIRECTORY", dirWidth),
	}
	return styleHeader.Render(strings.Join(cols, " "))
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// renderRow formats one event row, mute-prefixing directories matched by
// directoryMutePaths (spec.md §6 display.directoryMutePaths).
func renderRow(now time.Time, ev model.Event, dirWidth int, mutePaths []string, selected bool) string {
	dir := ev.Dir
	for _, p := range mutePaths {
		if strings.HasPrefix(dir, p) {
			dir = strings.TrimPrefix(dir, p)
			break
		}
	}

	var lines, blocks, size string
	if ev.Measurement != nil {
		lines = FormatCount(int(ev.Measurement.Lines))
		blocks = FormatCount(int(ev.Measurement.Blocks))
		size = FormatSize(ev.Measurement.Size)
	} else {
		lines, blocks, size = "-", "-", "-"
	}

	cols := []string{
		pad(FormatTimestamp(ev.Timestamp), widthTimestamp),
		pad(FormatElapsed(now, ev.Timestamp), widthElapsed),
		TruncateTail(ev.Name, widthName),
		pad(ev.Kind.String(), widthKind),
		pad(lines, widthLines),
		pad(blocks, widthBlocks),
		pad(size, widthSize),
		TruncateHead(dir, dirWidth),
	}

	line := strings.Join(cols, " ")
	if selected {
		return styleSelected.Render(line)
	}
	if style, ok := kindColors[ev.Kind]; ok {
		return style.Render(line)
	}
	return line
}

// renderCommandBar is the third region: the static key-binding reminder
// (spec.md §4.8, §6).
func renderCommandBar() string {
	return styleCmdBar.Render("q:quit space:pause x:refresh a:all u:latest f:kind-filter /:keyword Enter:confirm Esc:cancel/reset")
}

// renderControlRegion is the fourth region, whose contents depend on C9's
// state (spec.md §4.8).
func renderControlRegion(m *viewerstate.Machine) string {
	switch m.State() {
	case viewerstate.EditingKindFilter:
		kinds := m.Kinds()
		var parts []string
		for _, k := range model.Kinds {
			mark := "[ ]"
			if kinds == nil || kinds[k] {
				mark = "[x]"
			}
			parts = append(parts, mark+" "+k.String())
		}
		return "kind filter (f/c/m/d/v/r toggle, Enter confirm, Esc cancel): " + strings.Join(parts, "  ")

	case viewerstate.EditingKeywordFilter:
		applied := "local"
		if m.DBApplied() {
			applied = "db"
		}
		return fmt.Sprintf("keyword (%s): %s_", applied, m.Keyword())

	case viewerstate.StreamPaused:
		return "PAUSED — press space to resume"

	default:
		return ""
	}
}

// FullFrame assembles all four regions into one redraw (spec.md §4.8).
func FullFrame(now time.Time, status CollectorStatus, pid int, totalWidth int, events []model.Event, selected int, mutePaths []string, m *viewerstate.Machine, totalCount int) string {
	dirWidth := DirWidth(totalWidth)

	var b strings.Builder
	b.WriteString(renderBanner(status, pid))
	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("  %s events matched", FormatCount(totalCount)))
	b.WriteByte('\n')
	b.WriteString(renderColumnHeader(dirWidth))
	b.WriteByte('\n')

	for i, ev := range events {
		b.WriteString(renderRow(now, ev, dirWidth, mutePaths, i == selected))
		b.WriteByte('\n')
	}

	b.WriteString(renderCommandBar())
	b.WriteByte('\n')
	b.WriteString(renderControlRegion(m))

	return b.String()
}

// DegradedFrame renders the viewer's fallback for an unreadable database
// (spec.md §7 "user-error (viewer) | unreadable database": "render an
// empty table with a clear status"): the banner and column header still
// draw, the table is empty, the line below the banner carries the error,
// and the control region shows how to quit.
func DegradedFrame(status CollectorStatus, pid int, totalWidth int, dbErr error) string {
	dirWidth := DirWidth(totalWidth)

	var b strings.Builder
	b.WriteString(renderBanner(status, pid))
	b.WriteByte('\n')
	b.WriteString(styleStopped.Render(fmt.Sprintf("  database unavailable: %v", dbErr)))
	b.WriteByte('\n')
	b.WriteString(renderColumnHeader(dirWidth))
	b.WriteByte('\n')
	b.WriteString(renderCommandBar())
	b.WriteByte('\n')
	b.WriteString("press q to quit")

	return b.String()
}

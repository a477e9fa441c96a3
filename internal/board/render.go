package board

import (
	"fmt"
	"strings"

	"soundslot/pkg/spec"

	"github.com/charmbracelet/lipgloss"
)

var (
	indexStyle   = lipgloss.NewStyle().Width(4).Align(lipgloss.Right).Foreground(lipgloss.Color("8"))
	iconStyle    = lipgloss.NewStyle().Width(3).Align(lipgloss.Center)
	nameStyle    = lipgloss.NewStyle().Width(28)
	playingStyle = nameStyle.Bold(true).Foreground(lipgloss.Color("10"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func glyph(icon string) string {
	if icon == spec.IconPause {
		return "⏸"
	}
	return "▶"
}

// Render draws rows as a text table.
func Render(rows []RowView) string {
	if len(rows) == 0 {
		return detailStyle.Render("no sounds")
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		name := nameStyle.Render(r.Name)
		if r.Playing {
			name = playingStyle.Render(r.Name)
		}
		cols := []string{
			indexStyle.Render(fmt.Sprint(r.Index)),
			iconStyle.Render(glyph(r.Icon)),
			name,
		}
		if r.Details != nil {
			cols = append(cols, detailStyle.Render(FormatDetail(*r.Details)))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	}
	return strings.Join(lines, "\n")
}

// FormatDetail renders duration and size, e.g. "00:03  12.4 KB".
func FormatDetail(d Detail) string {
	secs := int(d.Duration.Round(1e9).Seconds())
	return fmt.Sprintf("%02d:%02d  %s", secs/60, secs%60, formatSize(d.Size))
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

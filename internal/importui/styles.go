package importui

import (
	"github.com/charmbracelet/lipgloss"

	"spinsoul/internal/discogs"
)

type styles struct {
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E0AF68")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#737AA2")),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7AA2F7")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F7768E")),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("#9ECE6A")),
	}
}

func (s styles) candidate(r discogs.SearchResult, selected, importing bool) string {
	line := Describe(r)
	switch {
	case importing:
		return s.Selected.Render("⟳ " + line)
	case selected:
		return s.Selected.Render("› " + line)
	default:
		return "  " + line
	}
}

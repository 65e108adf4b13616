package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/fennel-tools/tabdeck/internal/types"
)

// renderPage renders the placeholder page pane for the active tab. The
// real console renders pages; standalone mode only needs enough surface to
// see the strip react.
func renderPage(tab *types.Tab, width, height int) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238")).
		Width(width - 2).
		Height(height - 2)

	if tab == nil {
		return border.Render("")
	}

	titleStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	content := fmt.Sprintf("%s %s\n%s",
		Glyph(tab.Icon),
		titleStyle.Render(tab.Title),
		dimStyle.Render(tab.URL),
	)
	return border.Render(lipgloss.Place(width-4, height-2, lipgloss.Center, lipgloss.Center, content))
}

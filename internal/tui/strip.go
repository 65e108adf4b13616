package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/fennel-tools/tabdeck/internal/types"
)

var iconGlyphs = map[types.Icon]string{
	types.IconHome:      "⌂",
	types.IconTicket:    "⚑",
	types.IconAsset:     "▣",
	types.IconAccessory: "✚",
	types.IconInventory: "☰",
	types.IconReport:    "◫",
	types.IconCustomer:  "☺",
	types.IconAdmin:     "⛨",
	types.IconSettings:  "⚙",
	types.IconDev:       "λ",
}

// Glyph returns the one-character rendering of an icon category.
func Glyph(icon types.Icon) string {
	if g, ok := iconGlyphs[icon]; ok {
		return g
	}
	return iconGlyphs[types.IconHome]
}

const maxTabTitle = 22

// renderStrip renders the horizontal tab strip: ordered tabs with icon
// glyphs, the active tab highlighted, a connection marker on the right.
func renderStrip(tabs []*types.Tab, activeID string, connected *bool, width int) string {
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Underline(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sepStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	var strip string
	for i, t := range tabs {
		if i > 0 {
			strip += sepStyle.Render(" │ ")
		}
		label := fmt.Sprintf("%s %s", Glyph(t.Icon), truncate(t.Title, maxTabTitle))
		if t.ID == activeID {
			strip += activeStyle.Render(label)
		} else {
			strip += inactiveStyle.Render(label)
		}
	}

	left := " " + strip

	var status string
	if connected != nil {
		if *connected {
			status = lipgloss.NewStyle().Foreground(lipgloss.Color("35")).Render("● live")
		} else {
			status = inactiveStyle.Render("○ waiting")
		}
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}
	padding := lipgloss.NewStyle().Width(gap)

	return left + padding.Render("") + status + " "
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

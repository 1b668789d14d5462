package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/support-desk/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for table header cells.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// CellStyle is the base style for table cells.
var CellStyle = lipgloss.NewStyle().
	Padding(0, 1)

// BorderStyle colours table borders.
var BorderStyle = lipgloss.NewStyle().
	Foreground(ColorBorder)

// StatusStyle returns a color-coded cell style for a ticket status.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case model.StatusOpen:
		return CellStyle.Foreground(ColorGreen)
	default:
		return CellStyle.Foreground(ColorGray)
	}
}

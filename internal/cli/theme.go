package cli

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha, the subset the CLI uses.
const (
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
)

const (
	colorAccent  = colorLavender
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorOverlay1)
	textStyle    = lipgloss.NewStyle().Foreground(colorText)
	spinnerStyle = lipgloss.NewStyle().Foreground(colorAccent)
	idStyle      = lipgloss.NewStyle().Foreground(colorPeach)
	modalStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

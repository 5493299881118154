package tui

import (
	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/lipgloss"
)

const (
	rosterPanelTriggerWidth = 70
	rosterPanelWidth        = 28
	rosterPanelSpacing      = 1
	minContentWidth         = 20
)

var (
	// titleStyle is the style for the application title in the header
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginLeft(2)

	// statusStyle is the style for connection status and hints
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginLeft(2)

	// errorStyle is the style for error messages in the footer
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			MarginLeft(2)

	rosterPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("241")).
				Padding(0, 1).
				Width(rosterPanelWidth)

	rosterTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170")).
				Bold(true)

	avatarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	// unknownSenderStyle marks messages whose sender left the roster
	unknownSenderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244")).
				Italic(true)

	imageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Underline(true)

	composerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)

	pickerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("170")).
			Padding(0, 1)

	pickerSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("238")).
				Bold(true)

	loginBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("170")).
			Padding(1, 3)

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	enabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)
)

// namePalette holds the ANSI 256 colours sender names are drawn in.
var namePalette = []lipgloss.Color{
	"39", "45", "77", "114", "141", "170", "178", "203", "208", "214", "33", "135",
}

// nameColor picks a stable colour for name, the same across sessions and
// machines.
func nameColor(name string) lipgloss.Color {
	return namePalette[xxhash.Sum64String(name)%uint64(len(namePalette))]
}

func nameStyle(name string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(nameColor(name)).Bold(true)
}

package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Accent color for the Parley banner and prompt.
const accentViolet = "#8B5CF6"

// PARLEY ASCII art (filled block style).
var parleyArt = []string{
	"    ██████╗  █████╗ ██████╗ ██╗     ███████╗██╗   ██╗",
	"    ██╔══██╗██╔══██╗██╔══██╗██║     ██╔════╝╚██╗ ██╔╝",
	"    ██████╔╝███████║██████╔╝██║     █████╗   ╚████╔╝ ",
	"    ██╔═══╝ ██╔══██║██╔══██╗██║     ██╔══╝    ╚██╔╝  ",
	"    ██║     ██║  ██║██║  ██║███████╗███████╗   ██║   ",
	"    ╚═╝     ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚══════╝   ╚═╝   ",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Tips      lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
	StatusBar lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentViolet)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

// RenderBanner returns the PARLEY ASCII art banner as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range parleyArt {
		_, _ = b.WriteString(s.Banner.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// RenderWelcomeTips returns the one-line hints shown under the banner.
func (s Styles) RenderWelcomeTips() string {
	return s.Tips.Render("    Chat with your local models. /help for commands, /sessions to pick up where you left off.")
}

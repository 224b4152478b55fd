package ui

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	spotifyGreen = "#1DB954"
	errorRed     = "#E22134"
	warnAmber    = "#FFA42B"
	mutedGray    = "#727272"
)

// Palette holds the [lipgloss] styles used for console output.
type Palette struct {
	Title lipgloss.Style
	OK    lipgloss.Style
	Err   lipgloss.Style
	Warn  lipgloss.Style
	Help  lipgloss.Style
}

var palette = DefaultPalette()

// DefaultPalette returns the weekcopy color scheme.
func DefaultPalette() Palette {
	return Palette{
		Title: bold(spotifyGreen).Underline(true),
		OK:    bold(spotifyGreen),
		Err:   bold(errorRed),
		Warn:  fg(warnAmber),
		Help:  fg(mutedGray).Italic(true),
	}
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func bold(color string) lipgloss.Style {
	return fg(color).Bold(true)
}

func Title(s string) string { return palette.Title.Render(s) }
func OK(s string) string    { return palette.OK.Render(s) }
func Err(s string) string   { return palette.Err.Render(s) }
func Warn(s string) string  { return palette.Warn.Render(s) }
func Help(s string) string  { return palette.Help.Render(s) }

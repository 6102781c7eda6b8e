package main

import (
	"github.com/charmbracelet/lipgloss"
	"io"
)

// styles renders for the given output so that colors are dropped when it is not a terminal.
type styles struct {
	title    lipgloss.Style
	heading  lipgloss.Style
	suspect  lipgloss.Style
	muted    lipgloss.Style
	hint     lipgloss.Style
	correct  lipgloss.Style
	wrong    lipgloss.Style
	evidence lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		heading: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")),
		suspect: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135")),
		muted: r.NewStyle().
			Foreground(lipgloss.Color("243")),
		hint: r.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),
		correct: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")),
		wrong: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		evidence: r.NewStyle().
			Foreground(lipgloss.Color("255")).
			PaddingLeft(2), //nolint:mnd // indent
	}
}

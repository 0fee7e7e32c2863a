// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides rich terminal output styling for the Arbiter CLI.
package ux

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Arbiter color palette - courtroom golds over deep indigo
var (
	// Primary palette (brightest to darkest)
	ColorGoldBright  = lipgloss.Color("#F5C542") // Bright gold - highlights, verdicts
	ColorGoldPrimary = lipgloss.Color("#D9A93C") // Primary gold - main brand color
	ColorBrass       = lipgloss.Color("#B08A2E") // Brass - secondary elements
	ColorIndigo      = lipgloss.Color("#5A6ACF") // Indigo - interactive elements
	ColorIndigoDeep  = lipgloss.Color("#3D4A9E") // Deep indigo - borders, accents

	// Dark palette (for backgrounds, muted elements)
	ColorInk     = lipgloss.Color("#1B1F3B") // Ink - deep backgrounds
	ColorGraphite = lipgloss.Color("#4A4E69") // Graphite - muted text, borders

	// Semantic colors
	ColorSuccess = lipgloss.Color("#6BCB77") // Green for success
	ColorWarning = lipgloss.Color("#F4D03F") // Gold/amber for warnings
	ColorError   = lipgloss.Color("#E74C3C") // Red for errors
	ColorMuted   = lipgloss.Color("#4A4E69") // Graphite for muted text
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorGoldBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorGoldPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorGraphite),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorGoldBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorIndigoDeep).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
}

// plain disables styling: non-TTY stdout or NO_COLOR set.
var plain = os.Getenv("NO_COLOR") != "" ||
	(!isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()))

// SetPlain overrides color detection. Used by --no-color and tests.
func SetPlain(v bool) { plain = v }

func render(style lipgloss.Style, text string) string {
	if plain {
		return text
	}
	return style.Render(text)
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
	IconScale   Icon = "⚖"
	IconGavel   Icon = "§"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return render(Styles.Success, string(i))
	case IconWarning:
		return render(Styles.Warning, string(i))
	case IconError:
		return render(Styles.Error, string(i))
	case IconPending:
		return render(Styles.Muted, string(i))
	default:
		return string(i)
	}
}

// Title prints a styled title
func Title(text string) {
	fmt.Println(render(Styles.Title, text))
}

// Success prints a success message with checkmark
func Success(text string) {
	fmt.Printf("%s %s\n", IconSuccess.Render(), render(Styles.Success, text))
}

// Warning prints a warning message
func Warning(text string) {
	fmt.Printf("%s %s\n", IconWarning.Render(), render(Styles.Warning, text))
}

// Error prints an error message
func Error(text string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", IconError.Render(), render(Styles.Error, text))
}

// Info prints an informational message
func Info(text string) {
	fmt.Printf("%s %s\n", render(Styles.Muted, "│"), text)
}

// Muted prints muted/secondary text
func Muted(text string) {
	fmt.Println(render(Styles.Muted, text))
}

// KeyValue prints an aligned "label: value" line
func KeyValue(label, value string) {
	fmt.Printf("  %s %s\n", render(Styles.Muted, label+":"), value)
}

// Box prints text in a rounded box
func Box(title, content string) {
	if plain {
		fmt.Printf("%s\n%s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(64)
	titleLine := Styles.Title.Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// Summary prints an import/export summary line with counts
func Summary(imported, skipped, total int) {
	fmt.Printf("\n%s %s  %s %s  %s %s\n",
		render(Styles.Success, fmt.Sprintf("%d", imported)), render(Styles.Muted, "imported"),
		render(Styles.Warning, fmt.Sprintf("%d", skipped)), render(Styles.Muted, "skipped"),
		render(Styles.Bold, fmt.Sprintf("%d", total)), render(Styles.Muted, "total"),
	)
}

// Package ui holds the lipgloss styles shared by the CLI's terminal output.
//
// A [Palette] colors headings, status lines and refresh progress. Report tables rendered by the
// formatter package pick up their header and border styles from the same palette so every
// command looks alike.
package ui

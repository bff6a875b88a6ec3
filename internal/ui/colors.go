package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/spindb/internal/tasks"
)

// Default is the palette used by the CLI.
var Default = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	border lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:  NewBold(t).MarginBottom(1),
		ok:     NewBold(s),
		err:    NewBold(e),
		warn:   NewStyle(w),
		help:   NewEm(h),
		header: NewBold(t).Padding(0, 1),
		cell:   lipgloss.NewStyle().Padding(0, 1),
		border: NewStyle(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func (p *Palette) On(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Background(c).Render(s)
}

func (p *Palette) As(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// HeaderStyle is applied to table header cells.
func (p *Palette) HeaderStyle() lipgloss.Style { return p.header }

// CellStyle is applied to table body cells.
func (p *Palette) CellStyle() lipgloss.Style { return p.cell }

// BorderStyle is applied to table borders.
func (p *Palette) BorderStyle() lipgloss.Style { return p.border }

// Progress renders a refresh progress update as a single status line.
func (p *Palette) Progress(update tasks.ProgressUpdate) string {
	phase := fmt.Sprintf("[%s]", update.Phase)
	switch update.Phase {
	case tasks.Done:
		phase = p.OK(phase)
	default:
		phase = p.Help(phase)
	}

	var counter string
	if update.Total > 0 {
		counter = fmt.Sprintf(" %d/%d", update.Step, update.Total)
	}
	return strings.TrimSpace(fmt.Sprintf("%s%s %s", phase, counter, update.Message))
}

// package formatter renders stored reports for the terminal and exports them as CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/spindb/internal/models"
	"github.com/desertthunder/spindb/internal/shared"
	"github.com/desertthunder/spindb/internal/ui"
)

// Format names an output format of the report command.
type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats in the order shown in help text.
var Formats = []Format{FormatTable, FormatCSV, FormatMarkdown, FormatJSON}

// ParseFormat resolves a format name, accepting "md" for Markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatMarkdown, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidFormat, s)
	}
}

// Table is one titled section of a report.
//
// Headers and Rows drive the text formats; the JSON export encodes the typed records under Key.
type Table struct {
	Key     string
	Title   string
	Headers []string
	Rows    [][]string
	data    any
}

type playlistJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	Length string `json:"length"`
	Tracks string `json:"tracks,omitempty"`
}

type trackJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists string `json:"artists"`
	Count   int    `json:"count"`
}

type artistJSON struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RecentTable lists playlists by name, date and length, as on the home page.
func RecentTable(records []models.PlaylistRecord) Table {
	t := Table{Key: "recent_playlists", Title: "Recent Playlists", Headers: []string{"Name", "Date", "Length"}}
	data := make([]playlistJSON, 0, len(records))
	for _, r := range records {
		t.Rows = append(t.Rows, []string{r.Title, r.Date, r.Length})
		data = append(data, playlistJSON{ID: r.ExternalID, Name: r.Title, Date: r.Date, Length: r.Length})
	}
	t.data = data
	return t
}

// PlaylistsTable lists every playlist with its track names.
func PlaylistsTable(records []models.PlaylistRecord) Table {
	t := Table{Key: "playlists", Title: "Playlists", Headers: []string{"Name", "Date", "Tracks", "Length"}}
	data := make([]playlistJSON, 0, len(records))
	for _, r := range records {
		t.Rows = append(t.Rows, []string{r.Title, r.Date, r.Tracks, r.Length})
		data = append(data, playlistJSON{ID: r.ExternalID, Name: r.Title, Date: r.Date, Length: r.Length, Tracks: r.Tracks})
	}
	t.data = data
	return t
}

// TracksTable lists tracks with their artists and spin counts.
func TracksTable(records []models.TrackRecord) Table {
	t := Table{Key: "tracks", Title: "Tracks", Headers: []string{"Name", "Artist", "Count"}}
	data := make([]trackJSON, 0, len(records))
	for _, r := range records {
		t.Rows = append(t.Rows, []string{r.Name, r.Artists, strconv.Itoa(r.Count)})
		data = append(data, trackJSON(r))
	}
	t.data = data
	return t
}

// ArtistsTable lists artists with their spin counts.
func ArtistsTable(records []models.ArtistRecord) Table {
	return artists("artists", "Artists", records)
}

// TopArtistsTable is [ArtistsTable] titled for the home page.
func TopArtistsTable(records []models.ArtistRecord) Table {
	return artists("top_artists", "Top Artists", records)
}

func artists(key, title string, records []models.ArtistRecord) Table {
	t := Table{Key: key, Title: title, Headers: []string{"Artist", "Count"}}
	data := make([]artistJSON, 0, len(records))
	for _, r := range records {
		t.Rows = append(t.Rows, []string{r.Name, strconv.Itoa(r.Count)})
		data = append(data, artistJSON(r))
	}
	t.data = data
	return t
}

// ExportToCSV writes each table as a header row followed by its records.
//
// Tables are separated by a blank line.
func ExportToCSV(tables ...Table) ([]byte, error) {
	var buf bytes.Buffer
	for i, t := range tables {
		if i > 0 {
			buf.WriteString("\n")
		}

		writer := csv.NewWriter(&buf)
		if err := writer.Write(t.Headers); err != nil {
			return nil, fmt.Errorf("failed to write CSV headers: %w", err)
		}
		for _, row := range t.Rows {
			if err := writer.Write(row); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}

		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, fmt.Errorf("CSV writer error: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown writes each table as a second-level heading and a pipe table.
func ExportToMarkdown(tables ...Table) ([]byte, error) {
	var buf bytes.Buffer
	for i, t := range tables {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(fmt.Sprintf("## %s\n\n", t.Title))

		if len(t.Rows) == 0 {
			buf.WriteString("_No records._\n")
			continue
		}

		buf.WriteString(markdownRow(t.Headers))
		sep := make([]string, len(t.Headers))
		for j := range sep {
			sep[j] = "---"
		}
		buf.WriteString(markdownRow(sep))
		for _, row := range t.Rows {
			buf.WriteString(markdownRow(row))
		}
	}
	return buf.Bytes(), nil
}

func markdownRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return "| " + strings.Join(escaped, " | ") + " |\n"
}

// ExportToJSON encodes the tables as one object keyed by [Table.Key].
func ExportToJSON(tables ...Table) ([]byte, error) {
	out := make(map[string]any, len(tables))
	for _, t := range tables {
		out[t.Key] = t.data
	}
	return shared.MarshalJSON(out, true)
}

// ExportToText renders the tables with lipgloss borders, styled by p.
func ExportToText(p *ui.Palette, tables ...Table) []byte {
	if p == nil {
		p = ui.Default
	}

	var buf bytes.Buffer
	for i, t := range tables {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(p.Title(t.Title))
		buf.WriteString("\n")

		if len(t.Rows) == 0 {
			buf.WriteString(p.Help("No records."))
			buf.WriteString("\n")
			continue
		}

		rendered := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(p.BorderStyle()).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return p.HeaderStyle()
				}
				return p.CellStyle()
			}).
			Headers(t.Headers...).
			Rows(t.Rows...)

		buf.WriteString(rendered.String())
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// Write renders tables in format f to w.
func Write(w io.Writer, f Format, p *ui.Palette, tables ...Table) error {
	var (
		data []byte
		err  error
	)

	switch f {
	case FormatTable, "":
		data = ExportToText(p, tables...)
	case FormatCSV:
		data, err = ExportToCSV(tables...)
	case FormatMarkdown:
		data, err = ExportToMarkdown(tables...)
	case FormatJSON:
		if data, err = ExportToJSON(tables...); err == nil {
			data = append(data, '\n')
		}
	default:
		return fmt.Errorf("%w: %q", shared.ErrInvalidFormat, f)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

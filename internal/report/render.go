package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/Qin717/Global-Mental-Disorders-Analysis/internal/analytics"
)

// formatCell renders a single result value for text output. Floats are
// trimmed to four decimal places, NULLs render as an empty string.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', 4, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 4, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// RenderTable writes the result set as an aligned ASCII table.
func RenderTable(w io.Writer, rs *analytics.ResultSet) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(rs.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		table.Append(cells)
	}
	table.Render()
}

// RenderMarkdown writes the result set as a GitHub-style markdown table.
func RenderMarkdown(w io.Writer, rs *analytics.ResultSet) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(rs.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		table.Append(cells)
	}
	table.Render()
}

// WriteCSV writes the result set as RFC 4180 CSV with a header row.
func WriteCSV(w io.Writer, rs *analytics.ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rs.Columns); err != nil {
		return err
	}
	record := make([]string, len(rs.Columns))
	for _, row := range rs.Rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the result set as an indented JSON document with the
// rows expanded into column-keyed objects.
func WriteJSON(w io.Writer, rs *analytics.ResultSet) error {
	type document struct {
		Name    string           `json:"query"`
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	doc := document{Name: rs.Name, Columns: rs.Columns, Rows: make([]map[string]any, 0, len(rs.Rows))}
	for _, row := range rs.Rows {
		obj := make(map[string]any, len(rs.Columns))
		for i, col := range rs.Columns {
			if i < len(row) {
				obj[col] = row[i]
			}
		}
		doc.Rows = append(doc.Rows, obj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

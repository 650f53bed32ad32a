package view

import (
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"sort"
	"strconv"
)

// Table presents collected rows. Rows without data render nothing
// unless RenderEmpty is set.
type Table struct {
	Rows        []map[string]any
	Title       string
	Description string
	// Columns fixes the headings; otherwise the keys of the first row are used.
	Columns []string
	// HTML lists the columns whose string values are trusted markup.
	HTML        []string
	RenderEmpty bool
}

// Render reports whether the table should be rendered at all.
func (t *Table) Render() bool {
	return t.RenderEmpty || len(t.Rows) > 0
}

func (t *Table) Headings() []string {
	if len(t.Columns) > 0 {
		return t.Columns
	}
	if len(t.Rows) == 0 {
		return nil
	}

	headings := make([]string, 0, len(t.Rows[0]))
	for k := range t.Rows[0] {
		headings = append(headings, k)
	}
	sort.Strings(headings)

	return headings
}

// Cells returns every row rendered in heading order.
func (t *Table) Cells() [][]template.HTML {
	headings := t.Headings()
	cells := make([][]template.HTML, 0, len(t.Rows))
	for _, row := range t.Rows {
		rendered := make([]template.HTML, 0, len(headings))
		for _, h := range headings {
			v, ok := row[h]
			if !ok {
				rendered = append(rendered, "")
				continue
			}
			rendered = append(rendered, t.Value(v, h))
		}
		cells = append(cells, rendered)
	}
	return cells
}

func (t *Table) isHTML(column string) bool {
	for _, c := range t.HTML {
		if c == column {
			return true
		}
	}
	return false
}

// Value renders one cell value. Composite values are shown as indented JSON.
func (t *Table) Value(v any, column string) template.HTML {
	var s string

	switch val := v.(type) {
	case nil:
		return "null"
	case template.HTML:
		return val
	case string:
		s = val
	case bool:
		s = strconv.FormatBool(val)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		s = fmt.Sprint(val)
	default:
		b, err := json.MarshalIndent(val, "", "    ")
		if err != nil {
			return "failed to JSON encode data!"
		}
		s = string(b)
	}

	if t.isHTML(column) {
		return template.HTML(s)
	}
	return template.HTML(html.EscapeString(s))
}

// Rows converts collected list data, as stored in a profile, to table rows.
// Entries that are not objects are dropped.
func Rows(v any) []map[string]any {
	switch list := v.(type) {
	case []map[string]any:
		return list
	case []any:
		rows := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if row, ok := item.(map[string]any); ok {
				rows = append(rows, row)
			}
		}
		return rows
	default:
		return nil
	}
}

// RenderTable renders t, or nothing if t has no rows.
func RenderTable(r Renderer, t *Table) (string, error) {
	if !t.Render() {
		return "", nil
	}
	return r.Render(TableView, map[string]any{"table": t})
}

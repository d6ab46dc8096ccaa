package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatYML  = "yml"
)

// render writes v as JSON or YAML, or as a table built by rows.
func (a *app) render(w io.Writer, v any, header table.Row, rows []table.Row) error {
	switch strings.ToLower(a.output) {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML, formatYML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		t := table.NewWriter()
		t.SetOutputMirror(w)
		if header != nil {
			t.AppendHeader(header)
		}
		t.AppendRows(rows)
		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	}
}

// renderFields renders ordered key/value pairs.
func (a *app) renderFields(w io.Writer, fields []field) error {
	m := make(map[string]any, len(fields))
	rows := make([]table.Row, 0, len(fields))
	for _, f := range fields {
		m[f.key] = f.value
		rows = append(rows, table.Row{f.label, display(f.value)})
	}
	return a.render(w, m, nil, rows)
}

type field struct {
	key   string
	label string
	value any
}

func display(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		if v == "" {
			return "-"
		}
		return v
	case bool:
		if v {
			return "✓"
		}
		return "✗"
	default:
		return fmt.Sprint(v)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

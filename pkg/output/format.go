// Package output renders API resources for the terminal as tables, JSON,
// YAML or TOML, diffs pending updates and decodes resource input files.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is an output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
)

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatTable, FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", name)
	}
}

// Table is a rendered list of rows
type Table struct {
	Headers []string
	Rows    [][]string
}

// Append adds a row
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Write renders the table with aligned columns
func (t *Table) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = strings.ReplaceAll(cell, "\n", " ")
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}

// Formatter writes values in structured formats. Values are first turned
// into their JSON shape so every format uses the API's field names.
type Formatter struct{}

// NewFormatter creates a new Formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format writes value in the given structured format
func (f *Formatter) Format(value interface{}, format Format, writer io.Writer) error {
	switch format {
	case FormatYAML:
		return f.FormatYAML(value, writer)
	case FormatTOML:
		return f.FormatTOML(value, writer)
	case FormatJSON:
		return f.FormatJSON(value, writer)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// FormatYAML formats as YAML
func (f *Formatter) FormatYAML(value interface{}, writer io.Writer) error {
	generic, err := Generic(value)
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)

	if err := encoder.Encode(generic); err != nil {
		return fmt.Errorf("failed to format as YAML: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close YAML encoder: %w", err)
	}

	return nil
}

// FormatTOML formats as TOML. TOML documents must be tables, so lists and
// scalars are written under an "items" key.
func (f *Formatter) FormatTOML(value interface{}, writer io.Writer) error {
	generic, err := Generic(value)
	if err != nil {
		return err
	}
	if _, ok := generic.(map[string]interface{}); !ok {
		generic = map[string]interface{}{"items": generic}
	}

	encoder := toml.NewEncoder(writer)
	if err := encoder.Encode(generic); err != nil {
		return fmt.Errorf("failed to format as TOML: %w", err)
	}

	return nil
}

// FormatJSON formats as indented JSON
func (f *Formatter) FormatJSON(value interface{}, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("failed to format as JSON: %w", err)
	}

	return nil
}

// Generic converts value into maps, slices and scalars following its JSON
// encoding. Whole numbers come back as int64 rather than float64. JSON
// nulls are dropped from objects since TOML has no null.
func Generic(value interface{}) (interface{}, error) {
	var data []byte
	switch v := value.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		var err error
		data, err = json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode value: %w", err)
		}
	}

	var generic interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &generic); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return normalize(generic), nil
}

func normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, item := range v {
			if item == nil {
				delete(v, key)
				continue
			}
			v[key] = normalize(item)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = normalize(item)
		}
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int64(v)
		}
		return v
	default:
		return v
	}
}

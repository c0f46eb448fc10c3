package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Parser decodes resource input files written in YAML, TOML or JSON
type Parser struct{}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{}
}

// Decode parses data into out. The format comes from the file name's
// extension when it has one and is otherwise detected from the content.
// Fields use the API's JSON names in every format and unknown fields are
// rejected.
func (p *Parser) Decode(data []byte, filename string, out interface{}) error {
	format, err := p.detectFormat(data, filename)
	if err != nil {
		return fmt.Errorf("failed to detect format: %w", err)
	}

	var generic interface{}
	switch format {
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
		if generic, err = yamlValue(&node); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatTOML:
		var doc map[string]interface{}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse TOML: %w", err)
		}
		generic = tomlValue(doc)
	case FormatJSON:
		return p.decodeJSON(data, out)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	encoded, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("failed to convert %s input: %w", format, err)
	}
	return p.decodeJSON(encoded, out)
}

// yamlValue converts a YAML node into plain values. Timestamps keep their
// literal text so dates like 2024-01-01 reach the API unchanged.
func yamlValue(node *yaml.Node) (interface{}, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return yamlValue(node.Content[0])
	case yaml.AliasNode:
		return yamlValue(node.Alias)
	case yaml.MappingNode:
		m := make(map[string]interface{}, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := yamlValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[node.Content[i].Value] = value
		}
		return m, nil
	case yaml.SequenceNode:
		items := make([]interface{}, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := yamlValue(child)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		return items, nil
	}

	if node.ShortTag() == "!!timestamp" {
		return node.Value, nil
	}
	var value interface{}
	if err := node.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// tomlValue replaces TOML dates and times with the text the API expects
func tomlValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, item := range v {
			v[key] = tomlValue(item)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = tomlValue(item)
		}
		return v
	case []map[string]interface{}:
		items := make([]interface{}, len(v))
		for i, item := range v {
			items[i] = tomlValue(item)
		}
		return items
	case time.Time:
		// local values carry the decoder's marker zones
		switch v.Location().String() {
		case "date-local":
			return v.Format("2006-01-02")
		case "datetime-local":
			return v.Format("2006-01-02T15:04:05.999999999")
		case "time-local":
			return v.Format("15:04:05.999999999")
		}
		return v.Format(time.RFC3339Nano)
	}
	return value
}

func (p *Parser) decodeJSON(data []byte, out interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("failed to parse input: %w", err)
	}
	return nil
}

func (p *Parser) detectFormat(data []byte, filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return p.formatFromContent(data)
}

// formatFromContent detects format from content
func (p *Parser) formatFromContent(data []byte) (Format, error) {
	content := bytes.TrimSpace(data)
	if len(content) == 0 {
		return "", fmt.Errorf("empty content")
	}

	if content[0] == '{' || content[0] == '[' {
		return FormatJSON, nil
	}

	contentStr := string(content)
	if strings.HasPrefix(contentStr, "---") {
		return FormatYAML, nil
	}

	// key = value is TOML, key: value is YAML
	if strings.Count(contentStr, "=") > strings.Count(contentStr, ":") {
		return FormatTOML, nil
	}
	return FormatYAML, nil
}

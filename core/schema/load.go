package schema

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"quote-engine/core/determinism"
	"quote-engine/internal/errors"
)

// Format is a schema document encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes a schema document.
// YAML documents use the same field names as JSON.
func Parse(data []byte, format Format) (*Schema, error) {
	if format == FormatYAML {
		converted, err := YAMLToJSON(data)
		if err != nil {
			return nil, errors.Schema("decode yaml schema", err)
		}
		data = converted
	}

	var s Schema
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Schema("decode schema", err)
	}
	return &s, nil
}

// Load reads and decodes a schema file
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("schema file", path)
		}
		return nil, errors.Wrap(errors.TypeInput, "read schema", err).WithContext("path", path)
	}
	return Parse(data, FormatForPath(path))
}

// YAMLToJSON re-encodes a YAML document as JSON
func YAMLToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(doc))
}

// normalizeYAML turns map[any]any nodes into map[string]any for encoding/json
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[toString(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalizeYAML(t[i])
		}
		return t
	default:
		return v
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// Checksum is the SHA-256 of the schema's JSON encoding.
// It identifies the exact document that priced a quote.
func Checksum(s *Schema) (string, error) {
	h, err := determinism.HashJSON(s)
	if err != nil {
		return "", errors.Internal("checksum schema", err)
	}
	return h.Hex(), nil
}

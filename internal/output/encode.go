// Package output encodes resolved trees and writes them to stdout or to an
// output directory.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/oasderef/internal/spec"
	"gopkg.in/yaml.v3"
)

// Format is an output encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// ParseFormat accepts "yaml", "yml" and "json" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q (allowed: yaml, json)", s)
	}
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	if f == JSON {
		return "json"
	}
	return "yaml"
}

// Encode renders a tree value. JSON output is indented with two spaces and
// ends with a newline, like the YAML output.
func Encode(v any, f Format) ([]byte, error) {
	switch f {
	case JSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(spec.JSONSafe(v)); err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return buf.Bytes(), nil
	case YAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(spec.ToYAMLNode(v)); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

// EncodeAll renders several values as one stream: YAML documents separated
// by "---", or one JSON value after another.
func EncodeAll(vs []any, f Format) ([]byte, error) {
	var buf bytes.Buffer
	for i, v := range vs {
		b, err := Encode(v, f)
		if err != nil {
			return nil, err
		}
		if i > 0 && f != JSON {
			buf.WriteString("---\n")
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// Package simplify projects schema nodes into a compact, human-readable
// shape for display: type names, enum summaries and "array of X" notation.
package simplify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/oasderef/internal/spec"
)

// Simplify returns the display value for a schema node. The result is a
// string, an *spec.Object, or the raw node when nothing better applies.
//
// References are not resolved here: a node still carrying a $ref simplifies
// to {"$ref": <path>}. Run the resolver first when resolution is wanted.
func Simplify(node any) any {
	v := spec.ViewSchema(node)
	switch v.Kind {
	case spec.KindNotSchema:
		return node
	case spec.KindReference:
		return spec.NewObject().Set(spec.RefKey, v.Ref)
	case spec.KindEnum:
		return enumSummary(v.Enum)
	case spec.KindPrimitive:
		if v.TypeName == "string" && v.Format != "" {
			return v.Format
		}
		return v.TypeName
	case spec.KindArray:
		if !v.HasItems || v.Items == nil {
			return "array"
		}
		items := Simplify(v.Items)
		if s, ok := items.(string); ok {
			return "array of " + s
		}
		return spec.NewObject().Set("type", "array").Set("items", items)
	case spec.KindObject:
		if v.Properties != nil {
			out := spec.NewObject()
			v.Properties.Range(func(name string, prop any) bool {
				out.Set(name, Simplify(prop))
				return true
			})
			return out
		}
	}
	if v.Type != nil {
		return v.Type
	}
	return node
}

// Catalog simplifies every entry of a named-schema catalog, such as the
// result of resolve.DereferenceAllNamedSchemas, keeping its keys and order.
func Catalog(schemas *spec.Object) *spec.Object {
	out := spec.NewObject()
	schemas.Range(func(ref string, node any) bool {
		out.Set(ref, Simplify(node))
		return true
	})
	return out
}

func enumSummary(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, quote(v))
	}
	return "enum (" + strings.Join(parts, ", ") + ")"
}

func quote(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

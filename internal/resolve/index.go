package resolve

import (
	"strings"

	"github.com/mark3labs/oasderef/internal/spec"
)

// Index maps reference paths of the form "#/components/schemas/<Name>" to
// the raw schema nodes they name. Nodes are the document's own values, not
// copies. An Index is read-only once built and safe for concurrent use.
type Index struct {
	refs  []string
	nodes map[string]any
}

// BuildIndex indexes doc's components.schemas. A nil document, or one without
// a components.schemas mapping, yields an empty index. Other component
// categories are not indexed.
//
// If the same name appears twice, the later definition wins.
func BuildIndex(doc *spec.Document) *Index {
	idx := &Index{nodes: map[string]any{}}
	schemas, ok := doc.Schemas()
	if !ok {
		return idx
	}
	schemas.Range(func(name string, node any) bool {
		ref := spec.SchemaPrefix + name
		if _, dup := idx.nodes[ref]; !dup {
			idx.refs = append(idx.refs, ref)
		}
		idx.nodes[ref] = node
		return true
	})
	return idx
}

// Lookup returns the node named by ref. When there is no exact match and ref
// carries JSON Pointer escapes, the unescaped name is tried as well.
func (idx *Index) Lookup(ref string) (any, bool) {
	if idx == nil {
		return nil, false
	}
	if n, ok := idx.nodes[ref]; ok {
		return n, true
	}
	if strings.HasPrefix(ref, spec.SchemaPrefix) && strings.Contains(ref, "~") {
		name := unescapeJSONPointer(strings.TrimPrefix(ref, spec.SchemaPrefix))
		n, ok := idx.nodes[spec.SchemaPrefix+name]
		return n, ok
	}
	return nil, false
}

// Len returns the number of indexed schemas.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.refs)
}

// Refs returns the indexed reference paths in document order.
func (idx *Index) Refs() []string {
	if idx == nil {
		return nil
	}
	return append([]string(nil), idx.refs...)
}

// unescapeJSONPointer unescapes a JSON Pointer token: ~1 is / and ~0 is ~.
func unescapeJSONPointer(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}

func escapeJSONPointer(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

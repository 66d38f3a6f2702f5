package resolve

import "github.com/mark3labs/oasderef/internal/spec"

// DereferenceDocument resolves the paths and components subtrees of doc,
// each with its own visited set. Other top-level keys are carried over
// unchanged. A document whose root is not a mapping is returned as-is.
func DereferenceDocument(doc *spec.Document, opts ...Option) *spec.Document {
	root := doc.Object()
	if root == nil {
		return doc
	}
	idx := BuildIndex(doc)
	r := &resolver{idx: idx, settings: newSettings(opts)}

	out := root.Clone()
	if paths, ok := doc.Paths(); ok {
		out.Set("paths", r.deref(paths, nil))
	}
	if components, ok := doc.Components(); ok {
		out.Set("components", r.deref(components, nil))
	}
	r.logger.Debug("dereferenced document",
		"location", doc.Location,
		"schemas", idx.Len(),
	)

	resolved := spec.NewDocument(out)
	resolved.Location = doc.Location
	return resolved
}

// DereferenceAllNamedSchemas resolves every named schema independently and
// returns them keyed by reference path, in document order.
func DereferenceAllNamedSchemas(doc *spec.Document, opts ...Option) *spec.Object {
	idx := BuildIndex(doc)
	r := &resolver{idx: idx, settings: newSettings(opts)}
	out := spec.NewObject()
	for _, ref := range idx.Refs() {
		out.Set(ref, r.deref(idx.nodes[ref], nil))
	}
	return out
}

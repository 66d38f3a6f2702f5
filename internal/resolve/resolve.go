// Package resolve replaces local component-schema references in OpenAPI
// documents with the schemas they point to.
//
// Only references of the form "#/components/schemas/<Name>" are resolved.
// Cycles terminate in a circular placeholder:
//
//	{"$ref": "#/components/schemas/Node", "_circular": true}
//
// and references that do not match an indexed schema are left in place.
// Neither case is an error. Every function here returns fresh trees and
// never modifies its input, so concurrent calls over the same document are
// safe as long as nobody writes to that document meanwhile.
package resolve

import (
	"io"
	"log/slog"

	"github.com/mark3labs/oasderef/internal/spec"
)

// Option configures a resolution call.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
}

// WithLogger sets the logger that receives diagnostics about dangling and
// circular references. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// chain is the set of reference paths being expanded on the current
// root-to-leaf path. Each link is immutable: pushing builds a new link and
// popping is returning to the caller's chain, so sibling branches never see
// each other's entries.
type chain struct {
	ref    string
	parent *chain
}

func (c *chain) contains(ref string) bool {
	for ; c != nil; c = c.parent {
		if c.ref == ref {
			return true
		}
	}
	return false
}

func (c *chain) push(ref string) *chain {
	return &chain{ref: ref, parent: c}
}

// Dereference returns a copy of node with every resolvable $ref replaced by
// the recursively dereferenced target. Sibling keys next to a $ref are
// dropped once it resolves.
func Dereference(node any, idx *Index, opts ...Option) any {
	r := &resolver{idx: idx, settings: newSettings(opts)}
	return r.deref(node, nil)
}

type resolver struct {
	idx *Index
	*settings
}

func (r *resolver) deref(node any, visited *chain) any {
	switch n := node.(type) {
	case *spec.Object:
		if n == nil {
			return node
		}
		if ref, ok := n.StringAt(spec.RefKey); ok {
			return r.derefRef(n, ref, visited)
		}
		out := spec.NewObject()
		n.Range(func(k string, v any) bool {
			out.Set(k, r.deref(v, visited))
			return true
		})
		return out
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = r.deref(v, visited)
		}
		return out
	default:
		return node
	}
}

func (r *resolver) derefRef(n *spec.Object, ref string, visited *chain) any {
	if visited.contains(ref) {
		r.logger.Debug("circular reference", "ref", ref)
		return circular(ref)
	}
	target, ok := r.idx.Lookup(ref)
	if !ok {
		r.logger.Debug("dangling reference", "ref", ref)
		return n.Clone()
	}
	return r.deref(target, visited.push(ref))
}

func circular(ref string) *spec.Object {
	return spec.NewObject().Set(spec.RefKey, ref).Set(spec.CircularKey, true)
}

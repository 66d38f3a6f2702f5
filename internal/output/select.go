package output

import (
	"fmt"
	"strings"

	"github.com/mark3labs/oasderef/internal/spec"
	"github.com/vmware-labs/yaml-jsonpath/pkg/yamlpath"
	"gopkg.in/yaml.v3"
)

// Select evaluates a JSONPath expression against a tree and returns the
// matching subtrees in document order.
func Select(tree any, expr string) ([]any, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return []any{tree}, nil
	}
	path, err := yamlpath.NewPath(expr)
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", expr, err)
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{spec.ToYAMLNode(tree)}}
	nodes, err := path.Find(doc)
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", expr, err)
	}
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		v, err := spec.FromYAMLNode(n)
		if err != nil {
			return nil, fmt.Errorf("select %q: %w", expr, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Collapse turns a selection into a single value: nothing becomes nil, one
// match is returned as-is, and several matches become a sequence.
func Collapse(matches []any) any {
	switch len(matches) {
	case 0:
		return nil
	case 1:
		return matches[0]
	default:
		return matches
	}
}

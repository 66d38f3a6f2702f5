package resolve

import (
	"strconv"

	"github.com/mark3labs/oasderef/internal/spec"
)

// RefSite is a $ref left in a resolved tree.
type RefSite struct {
	// Pointer is the JSON Pointer of the $ref object within the tree.
	Pointer string `json:"pointer"`
	Ref     string `json:"ref"`
}

// Report lists the references a resolved tree still carries.
type Report struct {
	Circular []RefSite `json:"circular"`
	Dangling []RefSite `json:"dangling"`
}

// OK reports whether no dangling references remain. Circular placeholders
// are expected output and do not count.
func (r Report) OK() bool { return len(r.Dangling) == 0 }

// Inspect walks a dereferenced tree and reports every remaining $ref object,
// split into circular placeholders and dangling references. Pointers are
// rooted at the tree passed in.
func Inspect(tree any) Report {
	var rep Report
	inspect(tree, "#", &rep)
	return rep
}

func inspect(node any, ptr string, rep *Report) {
	switch n := node.(type) {
	case *spec.Object:
		if ref, ok := n.StringAt(spec.RefKey); ok {
			site := RefSite{Pointer: ptr, Ref: ref}
			if spec.IsCircular(n) {
				rep.Circular = append(rep.Circular, site)
			} else {
				rep.Dangling = append(rep.Dangling, site)
			}
			return
		}
		n.Range(func(k string, v any) bool {
			inspect(v, ptr+"/"+escapeJSONPointer(k), rep)
			return true
		})
	case []any:
		for i, v := range n {
			inspect(v, ptr+"/"+strconv.Itoa(i), rep)
		}
	}
}

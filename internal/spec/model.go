package spec

import "strings"

// SchemaPrefix is the reference path prefix for named component schemas.
const SchemaPrefix = "#/components/schemas/"

// Reference marker keys.
const (
	RefKey      = "$ref"
	CircularKey = "_circular"
)

// Document is a parsed API specification. The root is usually an *Object;
// accessors degrade to zero values when it is not.
type Document struct {
	root any
	// Location is the file path or URL the document was read from.
	Location string
}

// Info mirrors the info block of a specification.
type Info struct {
	Title       string
	Version     string
	Description string
}

// NewDocument wraps a decoded tree.
func NewDocument(root any) *Document {
	return &Document{root: root}
}

// Root returns the underlying tree.
func (d *Document) Root() any {
	if d == nil {
		return nil
	}
	return d.root
}

// Object returns the root as an *Object, or nil.
func (d *Document) Object() *Object {
	obj, _ := d.Root().(*Object)
	return obj
}

// OpenAPI returns the openapi version string.
func (d *Document) OpenAPI() string {
	s, _ := d.Object().StringAt("openapi")
	return strings.TrimSpace(s)
}

func (d *Document) Info() Info {
	info, _ := d.Object().ObjectAt("info")
	title, _ := info.StringAt("title")
	version, _ := info.StringAt("version")
	desc, _ := info.StringAt("description")
	return Info{
		Title:       strings.TrimSpace(title),
		Version:     strings.TrimSpace(version),
		Description: strings.TrimSpace(desc),
	}
}

// Paths returns the raw paths subtree.
func (d *Document) Paths() (any, bool) {
	return d.Object().Get("paths")
}

// Components returns the raw components subtree.
func (d *Document) Components() (any, bool) {
	return d.Object().Get("components")
}

// Schemas returns components.schemas when it is a mapping.
func (d *Document) Schemas() (*Object, bool) {
	components, ok := d.Object().ObjectAt("components")
	if !ok {
		return nil, false
	}
	return components.ObjectAt("schemas")
}

// SchemaKind tags the variants a schema node can take.
type SchemaKind int

const (
	// KindNotSchema is anything that is not a mapping.
	KindNotSchema SchemaKind = iota
	KindReference
	KindObject
	KindArray
	KindEnum
	KindPrimitive
	// KindUnknown is a mapping whose type is missing or unrecognised.
	KindUnknown
)

func (k SchemaKind) String() string {
	switch k {
	case KindReference:
		return "reference"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindEnum:
		return "enum"
	case KindPrimitive:
		return "primitive"
	case KindUnknown:
		return "unknown"
	default:
		return "not-schema"
	}
}

// SchemaView is a typed projection of an untyped schema node.
type SchemaView struct {
	Kind SchemaKind
	Node *Object

	Ref        string
	Type       any // raw type value; usually a string
	TypeName   string
	Format     string
	Enum       []any
	Properties *Object
	Items      any
	HasItems   bool
}

// ViewSchema classifies node. A string-valued $ref wins over every sibling
// keyword.
func ViewSchema(node any) SchemaView {
	obj, ok := node.(*Object)
	if !ok || obj == nil {
		return SchemaView{Kind: KindNotSchema}
	}
	v := SchemaView{Kind: KindUnknown, Node: obj}
	if ref, ok := obj.StringAt(RefKey); ok {
		v.Kind = KindReference
		v.Ref = ref
		return v
	}
	v.Type, _ = obj.Get("type")
	v.TypeName, _ = v.Type.(string)
	v.Format, _ = obj.StringAt("format")
	if enum, ok := obj.Get("enum"); ok {
		v.Enum, _ = enum.([]any)
	}
	v.Properties, _ = obj.ObjectAt("properties")
	v.Items, v.HasItems = obj.Get("items")

	switch v.TypeName {
	case "string":
		if v.Enum != nil {
			v.Kind = KindEnum
		} else {
			v.Kind = KindPrimitive
		}
	case "number", "integer", "boolean":
		v.Kind = KindPrimitive
	case "object":
		v.Kind = KindObject
	case "array":
		v.Kind = KindArray
	}
	return v
}

// IsCircular reports whether node is a circular placeholder.
func IsCircular(node any) bool {
	obj, ok := node.(*Object)
	if !ok {
		return false
	}
	if _, ok := obj.StringAt(RefKey); !ok {
		return false
	}
	c, _ := obj.Get(CircularKey)
	b, _ := c.(bool)
	return b
}

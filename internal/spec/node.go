package spec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Object is an ordered mapping with string keys. Documents are decoded into
// Objects (not Go maps) so that key order survives resolution and encoding.
//
// Values held by an Object are tree values: *Object, []any, string, bool,
// int, float64 or nil.
type Object struct {
	keys []string
	vals map[string]any
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{vals: map[string]any{}}
}

// Set stores v under key and returns o for chaining. Setting an existing key
// replaces the value but keeps the key's original position.
func (o *Object) Set(key string, v any) *Object {
	if o.vals == nil {
		o.vals = map[string]any{}
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
	return o
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Keys returns the keys in insertion order. The slice must not be modified.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

// Len returns the number of entries.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Range calls fn for each entry in order until fn returns false.
func (o *Object) Range(fn func(key string, v any) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// Clone returns a shallow copy of o.
func (o *Object) Clone() *Object {
	out := &Object{
		keys: make([]string, 0, o.Len()),
		vals: make(map[string]any, o.Len()),
	}
	o.Range(func(k string, v any) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// StringAt returns the value under key when it is a string.
func (o *Object) StringAt(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ObjectAt returns the value under key when it is an *Object.
func (o *Object) ObjectAt(key string) (*Object, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	obj, ok := v.(*Object)
	return obj, ok && obj != nil
}

// Equal reports order-sensitive structural equality.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if len(o.keys) != len(other.keys) {
		return false
	}
	for i, k := range o.keys {
		if other.keys[i] != k {
			return false
		}
		if !Equal(o.vals[k], other.vals[k]) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes o with keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalJSON(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalJSON(o.vals[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalJSON is json.Marshal without HTML escaping.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(JSONSafe(v)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// JSONSafe replaces non-finite floats, which JSON cannot represent, with
// their YAML spelling (".inf", "-.inf", ".nan"). Objects convert themselves
// when marshalled.
func JSONSafe(v any) any {
	switch val := v.(type) {
	case float64:
		if math.IsInf(val, 0) || math.IsNaN(val) {
			return formatFloat(val)
		}
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = JSONSafe(item)
		}
		return out
	}
	return v
}

// MarshalYAML encodes o with keys in insertion order.
func (o *Object) MarshalYAML() (any, error) {
	return ToYAMLNode(o), nil
}

// Equal reports order-sensitive structural equality of two tree values.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case *Object:
		bv, ok := b.(*Object)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		switch b.(type) {
		case *Object, []any:
			return false
		}
		return a == b
	}
}

var (
	errAliasCycle     = errors.New("yaml: alias cycle")
	errAliasExpansion = errors.New("yaml: document contains excessive aliasing")
	errMergeValue     = errors.New("yaml: map merge requires a mapping or a sequence of mappings")
)

// Alias expansion may produce at most max(aliasFloor, aliasFactor*n) values,
// where n is the number of nodes written out in the source document.
const (
	aliasFloor  = 10000
	aliasFactor = 10
)

// Decode parses YAML or JSON text into a tree value.
func Decode(data []byte) (any, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return FromYAMLNode(&n)
}

// FromYAMLNode converts a yaml.v3 node into a tree value. Aliases are
// expanded in place and merge keys (<<) are applied.
func FromYAMLNode(n *yaml.Node) (any, error) {
	d := &decoder{expanding: map[*yaml.Node]bool{}}
	budget := aliasFactor * countNodes(n)
	if budget < aliasFloor {
		budget = aliasFloor
	}
	d.aliasBudget = budget
	return d.node(n)
}

type decoder struct {
	expanding   map[*yaml.Node]bool
	aliasDepth  int
	aliasBudget int
}

func countNodes(n *yaml.Node) int {
	if n == nil || n.Kind == yaml.AliasNode {
		return 1
	}
	total := 1
	for _, c := range n.Content {
		total += countNodes(c)
	}
	return total
}

func (d *decoder) node(n *yaml.Node) (any, error) {
	if n == nil || n.Kind == 0 {
		return nil, nil
	}
	if d.aliasDepth > 0 {
		d.aliasBudget--
		if d.aliasBudget < 0 {
			return nil, errAliasExpansion
		}
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.node(n.Content[0])
	case yaml.AliasNode:
		if d.expanding[n.Alias] {
			return nil, fmt.Errorf("%w at line %d", errAliasCycle, n.Line)
		}
		d.expanding[n.Alias] = true
		d.aliasDepth++
		defer func() {
			delete(d.expanding, n.Alias)
			d.aliasDepth--
		}()
		return d.node(n.Alias)
	case yaml.MappingNode:
		return d.mapping(n)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := d.node(c)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.ScalarNode:
		return scalar(n), nil
	default:
		return nil, fmt.Errorf("yaml: unsupported node kind %d at line %d", n.Kind, n.Line)
	}
}

// mapping decodes a mapping node. Explicit keys win over merged ones, and
// within a merge sequence earlier mappings win over later ones.
func (d *decoder) mapping(n *yaml.Node) (*Object, error) {
	explicit := map[string]bool{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if !isMergeKey(n.Content[i]) {
			explicit[n.Content[i].Value] = true
		}
	}
	obj := NewObject()
	merged := map[string]bool{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if !isMergeKey(k) {
			val, err := d.node(v)
			if err != nil {
				return nil, err
			}
			obj.Set(k.Value, val)
			continue
		}
		sources, err := d.mergeSources(v)
		if err != nil {
			return nil, fmt.Errorf("%w at line %d", err, k.Line)
		}
		for _, src := range sources {
			src.Range(func(key string, val any) bool {
				if !explicit[key] && !merged[key] {
					merged[key] = true
					obj.Set(key, val)
				}
				return true
			})
		}
	}
	return obj, nil
}

func (d *decoder) mergeSources(v *yaml.Node) ([]*Object, error) {
	target := v
	for target.Kind == yaml.AliasNode && target.Alias != nil {
		target = target.Alias
	}
	nodes := []*yaml.Node{v}
	if target.Kind == yaml.SequenceNode {
		nodes = target.Content
	}
	out := make([]*Object, 0, len(nodes))
	for _, item := range nodes {
		val, err := d.node(item)
		if err != nil {
			return nil, err
		}
		obj, ok := val.(*Object)
		if !ok {
			return nil, errMergeValue
		}
		out = append(out, obj)
	}
	return out, nil
}

func isMergeKey(k *yaml.Node) bool {
	return k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge"
}

func scalar(n *yaml.Node) any {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
	case "!!int":
		var i int
		if err := n.Decode(&i); err == nil {
			return i
		}
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
	}
	return n.Value
}

// ToYAMLNode converts a tree value into a yaml.v3 node. Values outside the
// tree vocabulary are encoded through yaml.v3 directly.
func ToYAMLNode(v any) *yaml.Node {
	switch val := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case *Object:
		if val == nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		}
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		val.Range(func(k string, item any) bool {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				ToYAMLNode(item),
			)
			return true
		})
		return n
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range val {
			n.Content = append(n.Content, ToYAMLNode(item))
		}
		return n
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: val}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(val)}
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(val)}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(val)}
	default:
		var n yaml.Node
		if err := n.Encode(val); err != nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(val)}
		}
		return &n
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !bytes.ContainsAny([]byte(s), ".eEn") {
		s += ".0"
	}
	return s
}

package spec

import "strings"

// preprocessV2ForCompatibility rewrites non-compliant Swagger v2 operations in
// place so kin-openapi can convert them to v3:
//   - several body parameters are merged into one body parameter whose schema
//     is an object with a property per original parameter;
//   - body parameters mixed with formData parameters become formData
//     parameters and the operation consumes multipart/form-data.
//
// It reports whether anything changed.
func preprocessV2ForCompatibility(root any) (any, bool) {
	doc, ok := root.(*Object)
	if !ok {
		return root, false
	}
	paths, ok := doc.ObjectAt("paths")
	if !ok || paths.Len() == 0 {
		return root, false
	}
	modified := false
	paths.Range(func(_ string, item any) bool {
		pi, ok := item.(*Object)
		if !ok {
			return true
		}
		pi.Range(func(method string, opv any) bool {
			switch strings.ToLower(method) {
			case "get", "post", "put", "delete", "patch", "options", "head":
			default:
				return true
			}
			op, ok := opv.(*Object)
			if !ok {
				return true
			}
			if rewriteV2Operation(op) {
				modified = true
			}
			return true
		})
		return true
	})
	return root, modified
}

func rewriteV2Operation(op *Object) bool {
	raw, _ := op.Get("parameters")
	params, ok := raw.([]any)
	if !ok || len(params) == 0 {
		return false
	}

	bodyCount := 0
	hasFormData := false
	for _, p := range params {
		switch paramIn(p) {
		case "body":
			bodyCount++
		case "formdata":
			hasFormData = true
		}
	}
	switch {
	case bodyCount == 0:
		return false
	case hasFormData:
		out := make([]any, 0, len(params))
		for _, p := range params {
			if paramIn(p) == "body" {
				out = append(out, formDataFromBodyParam(p.(*Object)))
				continue
			}
			out = append(out, p)
		}
		op.Set("parameters", out)
		consumes, _ := op.Get("consumes")
		list, _ := consumes.([]any)
		if !containsString(list, "multipart/form-data") {
			op.Set("consumes", append(list, "multipart/form-data"))
		}
		return true
	case bodyCount > 1:
		props := NewObject()
		var required []any
		rest := make([]any, 0, len(params))
		for _, p := range params {
			if paramIn(p) != "body" {
				rest = append(rest, p)
				continue
			}
			pm := p.(*Object)
			name, _ := pm.StringAt("name")
			if name == "" {
				name = "field"
			}
			schema := schemaFromParam(pm)
			if schema == nil {
				schema = NewObject().Set("type", "string")
			}
			props.Set(name, schema)
			if req, _ := pm.Get("required"); req == true {
				required = append(required, name)
			}
		}
		body := NewObject().Set("type", "object").Set("properties", props)
		if len(required) > 0 {
			body.Set("required", required)
		}
		merged := NewObject().
			Set("in", "body").
			Set("name", "body").
			Set("schema", body)
		op.Set("parameters", append([]any{merged}, rest...))
		return true
	}
	return false
}

// paramIn returns the lowercased location of a parameter object, or "".
func paramIn(p any) string {
	pm, ok := p.(*Object)
	if !ok {
		return ""
	}
	in, _ := pm.StringAt("in")
	return strings.ToLower(in)
}

func containsString(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

func schemaFromParam(pm *Object) *Object {
	if sch, ok := pm.ObjectAt("schema"); ok {
		return sch
	}
	t, _ := pm.StringAt("type")
	if t == "" {
		return nil
	}
	out := NewObject().Set("type", t)
	if items, ok := pm.ObjectAt("items"); ok {
		out.Set("items", items)
	}
	if f, ok := pm.StringAt("format"); ok && f != "" {
		out.Set("format", f)
	}
	return out
}

func formDataFromBodyParam(pm *Object) *Object {
	name, _ := pm.StringAt("name")
	if name == "" {
		name = "field"
	}
	out := NewObject().Set("in", "formData").Set("name", name)
	if desc, ok := pm.StringAt("description"); ok && desc != "" {
		out.Set("description", desc)
	}
	if req, ok := pm.Get("required"); ok {
		if b, ok := req.(bool); ok {
			out.Set("required", b)
		}
	}

	// Referenced objects cannot be expressed as formData; they degrade to string.
	var typ, format string
	var items any
	if sch, ok := pm.ObjectAt("schema"); ok {
		typ, _ = sch.StringAt("type")
		format, _ = sch.StringAt("format")
		if it, ok := sch.ObjectAt("items"); ok {
			items = it
		}
		if typ == "" && sch.Has(RefKey) {
			typ = "string"
		}
	}
	if typ == "" {
		typ, _ = pm.StringAt("type")
		format, _ = pm.StringAt("format")
		if it, ok := pm.ObjectAt("items"); ok {
			items = it
		}
	}
	if typ == "" {
		typ = "string"
	}
	out.Set("type", typ)
	if items != nil {
		out.Set("items", items)
	}
	if format != "" {
		out.Set("format", format)
	}
	return out
}

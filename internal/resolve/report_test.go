package resolve

import (
	"testing"

	"github.com/mark3labs/oasderef/internal/spec"
	"github.com/stretchr/testify/assert"
)

func TestInspect(t *testing.T) {
	t.Parallel()
	tree := mustTree(t, `
paths:
  /pets/{id}:
    get:
      parameters:
        - $ref: "#/components/parameters/Id"
      responses:
        "200":
          schema: {$ref: "#/components/schemas/Pet", _circular: true}
a~b: {$ref: "#/components/schemas/Gone"}
`)
	rep := Inspect(tree)
	assert.Equal(t, []RefSite{
		{Pointer: "#/paths/~1pets~1{id}/get/responses/200/schema", Ref: "#/components/schemas/Pet"},
	}, rep.Circular)
	assert.Equal(t, []RefSite{
		{Pointer: "#/paths/~1pets~1{id}/get/parameters/0", Ref: "#/components/parameters/Id"},
		{Pointer: "#/a~0b", Ref: "#/components/schemas/Gone"},
	}, rep.Dangling)
	assert.False(t, rep.OK())
}

func TestInspect_Clean(t *testing.T) {
	t.Parallel()
	rep := Inspect(spec.NewObject().Set("type", "object"))
	assert.True(t, rep.OK())
	assert.Empty(t, rep.Circular)

	rep = Inspect(spec.NewObject().Set(spec.RefKey, "#/x"))
	assert.Equal(t, []RefSite{{Pointer: "#", Ref: "#/x"}}, rep.Dangling)
}

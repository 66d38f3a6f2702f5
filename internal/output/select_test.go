package output

import (
	"testing"

	"github.com/mark3labs/oasderef/internal/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pets(t *testing.T) any {
	t.Helper()
	v, err := spec.Decode([]byte(`
paths:
  /pets:
    get: {operationId: listPets}
    post: {operationId: createPet}
components:
  schemas:
    Pet: {type: object}
`))
	require.NoError(t, err)
	return v
}

func TestSelect(t *testing.T) {
	t.Parallel()
	tree := pets(t)

	got, err := Select(tree, "$.paths['/pets'].get")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, spec.Equal(spec.NewObject().Set("operationId", "listPets"), got[0]))

	got, err = Select(tree, "$.paths['/pets'].*.operationId")
	require.NoError(t, err)
	assert.Equal(t, []any{"listPets", "createPet"}, got)

	got, err = Select(tree, "$.components.schemas.Missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelect_EmptyExpressionReturnsTree(t *testing.T) {
	t.Parallel()
	tree := pets(t)
	got, err := Select(tree, "  ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Same(t, tree.(*spec.Object), got[0].(*spec.Object))
}

func TestSelect_InvalidExpression(t *testing.T) {
	t.Parallel()
	_, err := Select(pets(t), "$.paths[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select")
}

func TestCollapse(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Collapse(nil))
	assert.Equal(t, "a", Collapse([]any{"a"}))
	assert.Equal(t, []any{"a", "b"}, Collapse([]any{"a", "b"}))
}

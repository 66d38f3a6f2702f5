package output

import (
	"testing"

	"github.com/mark3labs/oasderef/internal/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *spec.Object {
	return spec.NewObject().
		Set("openapi", "3.0.0").
		Set("paths", spec.NewObject().Set("/b", spec.NewObject()).Set("/a", spec.NewObject())).
		Set("codes", []any{"200", 404, true, nil})
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Format{"": YAML, "yaml": YAML, "YML": YAML, " json ": JSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("toml")
	assert.Error(t, err)
	assert.Equal(t, "json", JSON.Ext())
	assert.Equal(t, "yaml", YAML.Ext())
}

func TestEncode_YAMLKeepsOrderAndQuoting(t *testing.T) {
	t.Parallel()
	data, err := Encode(sample(), YAML)
	require.NoError(t, err)
	want := `openapi: 3.0.0
paths:
  /b: {}
  /a: {}
codes:
  - "200"
  - 404
  - true
  - null
`
	assert.Equal(t, want, string(data))

	back, err := spec.Decode(data)
	require.NoError(t, err)
	assert.True(t, spec.Equal(sample(), back))
}

func TestEncode_JSON(t *testing.T) {
	t.Parallel()
	data, err := Encode(spec.NewObject().Set("z", 1).Set("a", []any{}), JSON)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"z\": 1,\n  \"a\": []\n}\n", string(data))

	data, err = Encode(spec.NewObject().Set("html", spec.NewObject().Set("v", "<b>&</b>")), JSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"v": "<b>&</b>"`)

	back, err := Encode(sample(), JSON)
	require.NoError(t, err)
	decoded, err := spec.Decode(back)
	require.NoError(t, err)
	assert.True(t, spec.Equal(sample(), decoded))
}

func TestEncode_JSONNonFiniteFloats(t *testing.T) {
	t.Parallel()
	tree, err := spec.Decode([]byte("maximum: .inf\nexamples: [.nan, 2.5]\n"))
	require.NoError(t, err)

	data, err := Encode(tree, JSON)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"maximum\": \".inf\",\n  \"examples\": [\n    \".nan\",\n    2.5\n  ]\n}\n", string(data))

	list, err := Encode([]any{tree}, JSON)
	require.NoError(t, err)
	assert.Contains(t, string(list), `".inf"`)

	data, err = Encode(tree, YAML)
	require.NoError(t, err)
	assert.Equal(t, "maximum: .inf\nexamples:\n  - .nan\n  - 2.5\n", string(data))
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	t.Parallel()
	_, err := Encode("x", Format("toml"))
	assert.Error(t, err)
}

func TestEncodeAll(t *testing.T) {
	t.Parallel()
	data, err := EncodeAll([]any{spec.NewObject().Set("a", 1), spec.NewObject().Set("b", 2)}, YAML)
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n---\nb: 2\n", string(data))

	data, err = EncodeAll([]any{1, "x"}, JSON)
	require.NoError(t, err)
	assert.Equal(t, "1\n\"x\"\n", string(data))

	data, err = EncodeAll(nil, YAML)
	require.NoError(t, err)
	assert.Empty(t, data)
}

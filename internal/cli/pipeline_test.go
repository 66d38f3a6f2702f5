package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/oasderef/internal/output"
	"github.com/mark3labs/oasderef/internal/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petSpecYAML = "" +
	"openapi: 3.0.0\n" +
	"info:\n" +
	"  title: Pet API\n" +
	"  version: '1.0.0'\n" +
	"paths:\n" +
	"  /pets:\n" +
	"    get:\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n" +
	"          content:\n" +
	"            application/json:\n" +
	"              schema:\n" +
	"                type: array\n" +
	"                items:\n" +
	"                  $ref: '#/components/schemas/Pet'\n" +
	"components:\n" +
	"  schemas:\n" +
	"    Pet:\n" +
	"      type: object\n" +
	"      properties:\n" +
	"        id: {type: string, format: uuid}\n" +
	"        kind: {type: string, enum: [cat, dog]}\n" +
	"        parent: {$ref: '#/components/schemas/Pet'}\n"

const danglingSpecYAML = "" +
	"openapi: 3.0.0\n" +
	"info: {title: Broken, version: '1'}\n" +
	"paths:\n" +
	"  /x:\n" +
	"    get:\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n" +
	"          content:\n" +
	"            application/json:\n" +
	"              schema: {$ref: '#/components/schemas/Missing'}\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func decodeOutput(t *testing.T, out string) *spec.Object {
	t.Helper()
	v, err := spec.Decode([]byte(out))
	require.NoError(t, err)
	obj, ok := v.(*spec.Object)
	require.True(t, ok, "output is not a mapping:\n%s", out)
	return obj
}

func TestResolvePipeline_Stdout(t *testing.T) {
	t.Parallel()
	path := writeFile(t, t.TempDir(), "pets.yaml", petSpecYAML)

	out, _, err := run(t, "", "resolve", "--format", "json", path)
	require.NoError(t, err)
	doc := decodeOutput(t, out)
	assert.Equal(t, []string{"openapi", "info", "paths", "components"}, doc.Keys())

	paths, _ := doc.ObjectAt("paths")
	pets, _ := paths.ObjectAt("/pets")
	data, err := output.Encode(pets, output.JSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"format": "uuid"`)
	assert.Contains(t, string(data), `"_circular": true`)
}

func TestResolvePipeline_StdinAndSelect(t *testing.T) {
	t.Parallel()
	out, _, err := run(t, petSpecYAML, "resolve", "--select", "$.components.schemas.Pet.properties.kind", "-")
	require.NoError(t, err)
	assert.Equal(t, "type: string\nenum:\n  - cat\n  - dog\n", out)
}

func TestResolvePipeline_MultipleInputsInOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", petSpecYAML)
	b := writeFile(t, dir, "b.yaml", danglingSpecYAML)

	out, _, err := run(t, "", "resolve", "--concurrency", "1", "--select", "$.info.title", a, b)
	require.NoError(t, err)
	assert.Equal(t, "Pet API\n---\nBroken\n", out)
}

func TestResolvePipeline_StrictFailsOnDangling(t *testing.T) {
	t.Parallel()
	path := writeFile(t, t.TempDir(), "broken.yaml", danglingSpecYAML)

	_, _, err := run(t, "", "resolve", path)
	require.NoError(t, err, "dangling references are not an error by default")

	_, _, err = run(t, "", "resolve", "--strict", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUsage))
	assert.Contains(t, err.Error(), "#/components/schemas/Missing")
	assert.Contains(t, err.Error(), "/paths/~1x/get")
}

func TestResolvePipeline_VerboseLogsDangling(t *testing.T) {
	t.Parallel()
	path := writeFile(t, t.TempDir(), "broken.yaml", danglingSpecYAML)

	_, stderr, err := run(t, "", "--verbose", "--log-format", "json", "resolve", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"dangling reference"`)
	assert.Contains(t, stderr, "#/components/schemas/Missing")
}

func TestResolvePipeline_DryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "pets.yaml", petSpecYAML)
	outDir := filepath.Join(dir, "out")

	out, _, err := run(t, petSpecYAML, "resolve", "--out", outDir, "--dry-run", "--format", "json", path, "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Planned writes to")
	assert.Contains(t, out, "- pets.resolved.json")
	assert.Contains(t, out, "- stdin.resolved.json")
	_, err = os.Stat(outDir)
	assert.True(t, os.IsNotExist(err), "expected no writes on dry-run")
}

func TestResolvePipeline_WritesFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	first := writeFile(t, dir, "pets.yaml", petSpecYAML)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "v2"), 0o755))
	second := writeFile(t, filepath.Join(dir, "v2"), "pets.yaml", petSpecYAML)
	outDir := filepath.Join(dir, "out")

	_, _, err := run(t, "", "schemas", "--out", outDir, first, second)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "pets.schemas.yaml"))
	assert.FileExists(t, filepath.Join(outDir, "pets-2.schemas.yaml"))

	_, _, err = run(t, "", "schemas", "--out", outDir, first)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUsage))
	assert.Contains(t, err.Error(), "--force")

	_, _, err = run(t, "", "schemas", "--out", outDir, "--force", first)
	require.NoError(t, err)
}

func TestSchemasPipeline_Simplify(t *testing.T) {
	t.Parallel()
	path := writeFile(t, t.TempDir(), "pets.yaml", petSpecYAML)

	out, _, err := run(t, "", "schemas", "--simplify", path)
	require.NoError(t, err)
	want := "" +
		"'#/components/schemas/Pet':\n" +
		"  id: uuid\n" +
		"  kind: enum (\"cat\", \"dog\")\n" +
		"  parent:\n" +
		"    id: uuid\n" +
		"    kind: enum (\"cat\", \"dog\")\n" +
		"    parent:\n" +
		"      $ref: '#/components/schemas/Pet'\n"
	assert.Equal(t, want, out)
}

func TestSchemasPipeline_V2Input(t *testing.T) {
	t.Parallel()
	swagger := "" +
		"swagger: '2.0'\n" +
		"info: {title: Legacy, version: '1'}\n" +
		"paths: {}\n" +
		"definitions:\n" +
		"  Tag: {type: string}\n" +
		"  Item:\n" +
		"    type: object\n" +
		"    properties:\n" +
		"      tags: {type: array, items: {$ref: '#/definitions/Tag'}}\n"
	path := writeFile(t, t.TempDir(), "swagger.yaml", swagger)

	out, _, err := run(t, "", "schemas", "--simplify", "--format", "json", path)
	require.NoError(t, err)
	doc := decodeOutput(t, out)
	item, ok := doc.ObjectAt("#/components/schemas/Item")
	require.True(t, ok, out)
	tags, _ := item.Get("tags")
	assert.Equal(t, "array of string", tags)
}

func TestInspectPipeline(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	pets := writeFile(t, dir, "pets.yaml", petSpecYAML)
	broken := writeFile(t, dir, "broken.yaml", danglingSpecYAML)

	out, _, err := run(t, "", "inspect", pets, broken)
	require.NoError(t, err)
	assert.Contains(t, out, pets+": 1 schemas, 2 circular, 0 dangling\n")
	assert.Contains(t, out, "  circular  #/components/schemas/Pet/properties/parent/properties/parent -> #/components/schemas/Pet\n")
	assert.Contains(t, out, broken+": 0 schemas, 0 circular, 1 dangling\n")

	_, _, err = run(t, "", "inspect", "--strict", pets, broken)
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))

	out, _, err = run(t, "", "inspect", "--format", "json", broken)
	require.NoError(t, err)
	assert.Contains(t, out, `"pointer": "#/paths/~1x/get/responses/200/content/application~1json/schema"`)
}

func TestPipeline_LoadErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	notSpec := writeFile(t, dir, "plain.yaml", "hello: world\n")

	_, _, err := run(t, "", "resolve", notSpec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUsage))
	assert.Contains(t, err.Error(), "Location: "+notSpec)

	_, _, err = run(t, "", "resolve", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read file")

	pets := writeFile(t, dir, "pets.yaml", petSpecYAML)
	_, _, err = run(t, "", "resolve", "--select", "$[", pets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select")
}

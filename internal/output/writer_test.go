package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_DryRunPlansOnly(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "out")
	res, err := Write(context.Background(), map[string][]byte{
		"b.resolved.yaml": []byte("b: 1\n"),
		"a.resolved.yaml": []byte("a: 1\n"),
	}, Options{OutDir: out, DryRun: true})
	require.NoError(t, err)

	require.Len(t, res.Planned, 2)
	assert.Equal(t, "a.resolved.yaml", res.Planned[0].RelPath)
	assert.Equal(t, 5, res.Planned[0].Size)
	assert.Equal(t, os.FileMode(0o644), res.Planned[0].Mode)
	assert.True(t, filepath.IsAbs(res.OutDir))

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "dry-run must not create the directory")
}

func TestWrite_WritesFiles(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "nested", "out")
	_, err := Write(context.Background(), map[string][]byte{
		"doc.schemas.json": []byte("{}\n"),
	}, Options{OutDir: out})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, "doc.schemas.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWrite_NonEmptyDirNeedsForce(t *testing.T) {
	t.Parallel()
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "existing"), []byte("x"), 0o600))
	files := map[string][]byte{"doc.resolved.yaml": []byte("a: 1\n")}

	_, err := Write(context.Background(), files, Options{OutDir: out})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not empty")

	_, err = Write(context.Background(), files, Options{OutDir: out, Force: true})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "doc.resolved.yaml"))
}

func TestWrite_Errors(t *testing.T) {
	t.Parallel()
	_, err := Write(context.Background(), nil, Options{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Write(ctx, map[string][]byte{"a.yaml": nil}, Options{OutDir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
}

package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/jobchain/internal/dag"
	"github.com/vk/jobchain/internal/graph"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

const yamlChain = `
jobs:
  fetch:
    type: Fetch
  store:
    type: Store
    params:
      body: !job fetch.body
`

const hclChain = `
job "only" {
  type = "Only"
}
`

func TestLookup_DottedNameAcrossRoots(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, first, "billing/monthly.yml", yamlChain)
	writeFile(t, second, "billing/monthly.hcl", hclChain)
	writeFile(t, second, "reports/daily.hcl", hclChain)

	l := New(NewDirSource(first), NewDirSource(second))
	ctx := context.Background()

	def, err := l.Lookup(ctx, "billing.monthly")
	require.NoError(t, err)
	assert.Equal(t, "billing.monthly", def.Name())
	assert.Equal(t, []string{"fetch", "store"}, def.JobIDs(), "first root wins")

	def, err = l.Lookup(ctx, "reports.daily")
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, def.JobIDs())
}

func TestLookup_PrefersHCLWithinRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "c.yaml", yamlChain)
	writeFile(t, root, "c.hcl", hclChain)

	def, err := New(NewDirSource(root)).Lookup(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, def.JobIDs())
}

func TestLookup_Caches(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "c.yml", yamlChain)
	l := New(NewDirSource(root))
	ctx := context.Background()

	first, err := l.Lookup(ctx, "c")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(root, "c.yml")))

	second, err := l.Lookup(ctx, "c")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLookup_Errors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "cyclic.yml", `
jobs:
  a:
    type: A
    params: {x: !job b}
  b:
    type: B
    params: {x: !job a}
`)
	writeFile(t, root, "dangling.yml", `
jobs:
  a:
    type: A
    params: {x: !job ghost}
`)
	writeFile(t, root, "broken.hcl", `job "a" {`)

	l := New(NewDirSource(root))
	ctx := context.Background()

	_, err := l.Lookup(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, graph.ErrNotFound))

	_, err = l.Lookup(ctx, "../etc/passwd")
	assert.ErrorContains(t, err, "invalid chain name")

	_, err = l.Lookup(ctx, "cyclic")
	var cycleErr *dag.CycleError
	assert.ErrorAs(t, err, &cycleErr)

	_, err = l.Lookup(ctx, "dangling")
	var unknownErr *dag.UnknownJobError
	assert.ErrorAs(t, err, &unknownErr)

	_, err = l.Lookup(ctx, "broken")
	assert.ErrorContains(t, err, "broken.hcl")
}

func TestList(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, first, "billing/monthly.yml", yamlChain)
	writeFile(t, first, "README.md", "docs")
	writeFile(t, second, "billing/monthly.hcl", hclChain)
	writeFile(t, second, "a.hcl", hclChain)

	l := New(NewDirSource(first), NewDirSource(second), NewDirSource(filepath.Join(first, "absent")))
	names, err := l.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "billing.monthly"}, names)
}

func TestSourcesFromRoots(t *testing.T) {
	sources, err := SourcesFromRoots([]string{"./chains"}, nil)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "./chains", sources[0].String())

	_, err = SourcesFromRoots([]string{"s3://bucket/prefix"}, nil)
	assert.ErrorContains(t, err, "needs an object store client")

	_, err = SourcesFromRoots([]string{"s3://"}, nil)
	assert.ErrorContains(t, err, "no bucket")
}

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/jobchain/internal/app"
	"github.com/vk/jobchain/internal/cli"
)

const printChain = `
done: second
jobs:
  first:
    type: Print
    params:
      message: !param message hi
  second:
    type: Print
    params:
      echoed: !job first.message
`

func chainDir(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	return dir
}

func TestRun_ShouldExit(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_UsageErrorIsExitError(t *testing.T) {
	err := run(context.Background(), &bytes.Buffer{}, []string{"-log-level", "loud", "greet"})
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
}

func TestRun_PrintChain(t *testing.T) {
	dir := chainDir(t, "hello.yml", printChain)
	out := &bytes.Buffer{}

	err := run(context.Background(), out, []string{
		"-path", dir, "-store", "memory", "-lifetime", "1h",
		"-input", "message=hello there", "-log-format", "text", "hello",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "message = hello there")
	assert.Contains(t, out.String(), "echoed = hello there")
}

func TestRun_SyntaxError(t *testing.T) {
	dir := chainDir(t, "broken.yml", "jobs: [unclosed")
	err := run(context.Background(), &bytes.Buffer{}, []string{"-path", dir, "-store", "memory", "-lifetime", "1h", "broken"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to load chain")
}

func TestRun_List(t *testing.T) {
	dir := chainDir(t, "hello.yml", printChain)
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-path", dir, "-store", "memory", "-lifetime", "1h", "-log-level", "error", "-list"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "hello\n")
}

func TestRun_StalledChain(t *testing.T) {
	dir := chainDir(t, "stuck.yml", `
done: second
jobs:
  first:
    type: DoesNotExist
  second:
    type: Print
    params:
      x: !job first
`)
	err := run(context.Background(), &bytes.Buffer{}, []string{"-path", dir, "-store", "memory", "-lifetime", "1h", "stuck"})
	require.Error(t, err)
	assert.ErrorIs(t, err, app.ErrStalled)
}

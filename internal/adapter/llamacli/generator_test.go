package llamacli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFakeBinary(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	return path
}

func TestResolveBinary_CandidateOrder(t *testing.T) {
	dir := t.TempDir()
	writeFakeBinary(t, dir, "llama-cli")
	writeFakeBinary(t, dir, "main")
	t.Setenv("PATH", dir)

	resolved, err := resolveBinary("")

	require.NoError(t, err)
	assert.Equal(t, "llama-cli", filepath.Base(resolved))
}

func TestResolveBinary_PathScanForLlamaPrefix(t *testing.T) {
	dir := t.TempDir()
	writeFakeBinary(t, dir, "llama-b4000-avx2")
	t.Setenv("PATH", dir)

	resolved, err := resolveBinary("")

	require.NoError(t, err)
	assert.Equal(t, "llama-b4000-avx2", filepath.Base(resolved))
}

func TestResolveBinary_ExplicitMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := resolveBinary("no-such-binary")
	assert.Error(t, err)
}

func TestResolveBinary_NothingFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := resolveBinary("")
	assert.Error(t, err)
}

func TestNewGenerator_PrefersPositionalForSimpleBuilds(t *testing.T) {
	dir := t.TempDir()
	writeFakeBinary(t, dir, "llama-simple")
	t.Setenv("PATH", dir)

	gen, err := NewGenerator("", "/models/test.gguf", 0, testLogger())

	require.NoError(t, err)
	assert.True(t, gen.preferPositional)
}

func TestNewGenerator_RequiresModelPath(t *testing.T) {
	dir := t.TempDir()
	writeFakeBinary(t, dir, "llama-cli")
	t.Setenv("PATH", dir)

	_, err := NewGenerator("", "", 0, testLogger())
	assert.Error(t, err)
}

func TestCleanOutput_StripsEchoedPrompt(t *testing.T) {
	prompt := "# Question\nwhy?\n\n# Answer:"
	raw := "  " + prompt + "\nBecause of reasons.\n"

	assert.Equal(t, "Because of reasons.", cleanOutput(raw, prompt))
}

func TestCleanOutput_NoEcho(t *testing.T) {
	assert.Equal(t, "plain answer", cleanOutput("\nplain answer\n", "unrelated prompt"))
}

func TestTail_KeepsEndOfLongStderr(t *testing.T) {
	long := strings.Repeat("x", maxStderrTail+500) + "actual error here"

	got := tail(long)

	assert.Len(t, got, maxStderrTail)
	assert.True(t, strings.HasSuffix(got, "actual error here"))
}

func TestVersion(t *testing.T) {
	dir := t.TempDir()
	writeFakeBinary(t, dir, "llama-cli")
	t.Setenv("PATH", dir)

	gen, err := NewGenerator("", "/models/test.gguf", 0, testLogger())

	require.NoError(t, err)
	assert.Equal(t, "llamacli/llama-cli", gen.Version())
}

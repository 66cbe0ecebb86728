package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests share the process-wide solver config and default logger that
// loadRun installs, so they do not run in parallel.

func execute(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestRun_CookListShowValue(t *testing.T) {
	dir := t.TempDir()
	runFile := filepath.Join(dir, "run.yaml")
	db := filepath.Join(dir, "curves.db")

	out, _, code := execute(t, "config", "init", "-o", runFile)
	require.Equal(t, 0, code)
	assert.Contains(t, out, runFile)

	out, _, code = execute(t, "config", "validate", "-f", runFile)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "funding EUR (4 quotes)")

	out, stderr, code := execute(t, "cook", "-f", runFile, "--db", db)
	require.Equal(t, 0, code, stderr)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	id := lines[0]
	assert.Len(t, id, 26)
	assert.Contains(t, out, "TENOR_DN/10Y")
	assert.Contains(t, stderr, "run_id="+id)

	out, _, code = execute(t, "runs", "list", "--db", db, "--label", "FUNDING::EUR")
	require.Equal(t, 0, code)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "FLAT_UP|FLAT_DN|TENOR_UP|TENOR_DN")

	out, _, code = execute(t, "runs", "show", id, "--db", db)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "FUNDING::EUR as of 2026-03-02")
	assert.Contains(t, out, "TENOR_UP/5Y")

	out, _, code = execute(t, "value", "-f", runFile, "--db", db, "--run", id, "--json")
	require.Equal(t, 0, code)
	var results []struct {
		Trade   string  `json:"trade"`
		Variant string  `json:"variant"`
		Delta   float64 `json:"delta"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, "BASE", results[0].Variant)
	assert.Equal(t, "payer-7y", results[0].Trade)

	fresh, _, code := execute(t, "value", "-f", runFile)
	require.Equal(t, 0, code)
	assert.Contains(t, fresh, "payer-7y")
	assert.Contains(t, fresh, "FLAT_UP")
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, code := execute(t, "cook")
	assert.Equal(t, 1, code, "missing -f")

	_, stderr, code := execute(t, "config", "validate", "-f", filepath.Join(dir, "missing.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "validation failed")

	_, stderr, code = execute(t, "runs", "show", "nope", "--db", filepath.Join(dir, "empty.db"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "run not found")
}

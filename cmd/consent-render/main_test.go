package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const record = `{"fio":"Иванов Иван","phone":"+79990001122","email":"a@b.com",` +
	`"birth_date":"1990-01-01","submitted_at":"2024-03-15T10:30:00Z","request_id":"42"}`

func noFont(t *testing.T) string {
	return "--font=" + filepath.Join(t.TempDir(), "missing.ttf")
}

func TestRun_StdinToStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"-o", "-", noFont(t)}, strings.NewReader(record), &stdout, &stderr)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(stdout.Bytes(), []byte("%PDF-")))
}

func TestRun_FileToFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "rec.json")
	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, os.WriteFile(in, []byte(record), 0o644))

	require.NoError(t, run([]string{"--input", in, "--output", out, noFont(t)}, nil, nil, &bytes.Buffer{}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRun_DefaultOutputName(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, run([]string{noFont(t)}, strings.NewReader(record), nil, &bytes.Buffer{}))
	_, err := os.Stat("consent_42.pdf")
	assert.NoError(t, err)
}

func TestRun_DefaultOutputNameIsSanitized(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	rec := strings.Replace(record, `"request_id":"42"`, `"request_id":"../x/y"`, 1)
	require.NoError(t, run([]string{noFont(t)}, strings.NewReader(rec), nil, &bytes.Buffer{}))

	_, err := os.Stat(filepath.Join(dir, "consent_.._x_y.pdf"))
	assert.NoError(t, err)
}

func TestRun_Errors(t *testing.T) {
	var stderr bytes.Buffer
	assert.Error(t, run([]string{"--bogus"}, nil, nil, &stderr))
	assert.Error(t, run([]string{"extra"}, nil, nil, &stderr))
	assert.Error(t, run([]string{"-i", filepath.Join(t.TempDir(), "none.json")}, nil, nil, &stderr))
	assert.Error(t, run([]string{"-o", "-"}, strings.NewReader("{not json"), &bytes.Buffer{}, &stderr))
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

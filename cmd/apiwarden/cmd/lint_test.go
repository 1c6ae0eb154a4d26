package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLint(t *testing.T) {
	writeFile := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "api.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("clean contract", func(t *testing.T) {
		path := writeFile(t, `
openapi: 3.0.3
info:
  title: Ping
  version: "1.0"
paths:
  /ping:
    get:
      responses:
        '200':
          description: pong
`)
		cmd := lintCmd
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		require.NoError(t, runLint(cmd, path))
		assert.Contains(t, buf.String(), "✓")
		assert.Contains(t, buf.String(), "1 path(s), 1 operation(s)")
	})

	t.Run("broken contract", func(t *testing.T) {
		path := writeFile(t, `
openapi: 3.0.3
info:
  title: Broken
  version: "1.0"
paths:
  /pets/{id:
    get:
      responses:
        'abc':
          description: bad
`)
		cmd := lintCmd
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		err := runLint(cmd, path)
		require.Error(t, err)
		assert.Contains(t, buf.String(), "✗")
		assert.Contains(t, buf.String(), "problem(s):")
	})

	t.Run("missing file", func(t *testing.T) {
		cmd := lintCmd
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		require.Error(t, runLint(cmd, filepath.Join(t.TempDir(), "absent.yaml")))
	})
}

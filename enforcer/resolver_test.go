package enforcer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routesSpec = `
openapi: "3.0.0"
info:
  title: Routes
  version: "1.0"
paths:
  /users/{id}:
    get:
      responses:
        "200":
          description: OK
  /users/active:
    get:
      responses:
        "200":
          description: OK
  /files/{name}/meta:
    get:
      responses:
        "200":
          description: OK
`

func TestMatch(t *testing.T) {
	e := mustNew(t, routesSpec, false)

	t.Run("exact template match wins over placeholders", func(t *testing.T) {
		entry, params := e.match("/users/active")
		require.NotNil(t, entry)
		assert.Equal(t, "/users/active", entry.Template)
		assert.Empty(t, params)
	})

	t.Run("placeholder captures segment value", func(t *testing.T) {
		entry, params := e.match("/users/123")
		require.NotNil(t, entry)
		assert.Equal(t, "/users/{id}", entry.Template)
		assert.Equal(t, map[string]string{"id": "123"}, params)
	})

	t.Run("literal segments match case-insensitively", func(t *testing.T) {
		entry, params := e.match("/Files/report.pdf/META")
		require.NotNil(t, entry)
		assert.Equal(t, "/files/{name}/meta", entry.Template)
		assert.Equal(t, "report.pdf", params["name"])
	})

	t.Run("segment count must be equal", func(t *testing.T) {
		entry, _ := e.match("/users/123/extra")
		assert.Nil(t, entry)
	})

	t.Run("trailing slash is ignored", func(t *testing.T) {
		entry, _ := e.match("/users/123/")
		require.NotNil(t, entry)
		assert.Equal(t, "/users/{id}", entry.Template)
	})

	t.Run("no match for unknown path", func(t *testing.T) {
		entry, _ := e.match("/orders")
		assert.Nil(t, entry)
	})
}

func TestMatch_DeclarationOrderWins(t *testing.T) {
	// /users/{id} is declared before /users/active, so the ambiguous
	// concrete path /users/active resolves to the placeholder template
	// when no exact match exists. Here an exact match exists; remove it
	// by probing a path only the placeholder can take.
	e := mustNew(t, routesSpec, false)
	entry, params := e.match("/users/inactive")
	require.NotNil(t, entry)
	assert.Equal(t, "/users/{id}", entry.Template)
	assert.Equal(t, "inactive", params["id"])
}

func TestResolve(t *testing.T) {
	e := mustNew(t, routesSpec, false)

	t.Run("resolves operation for verb", func(t *testing.T) {
		entry, op, params, res := e.resolve("get", "/users/9")
		assert.Equal(t, resolved, res)
		require.NotNil(t, entry)
		require.NotNil(t, op)
		assert.Equal(t, "9", params["id"])
	})

	t.Run("method not allowed", func(t *testing.T) {
		_, op, _, res := e.resolve("POST", "/users/9")
		assert.Equal(t, resolvedMethodNotAllowed, res)
		assert.Nil(t, op)
	})

	t.Run("not found", func(t *testing.T) {
		entry, _, _, res := e.resolve("GET", "/nowhere")
		assert.Equal(t, resolvedNotFound, res)
		assert.Nil(t, entry)
	})
}

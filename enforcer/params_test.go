package enforcer

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const paramsSpec = `
openapi: "3.0.0"
info:
  title: Params
  version: "1.0"
paths:
  /products:
    parameters:
      - name: X-Tenant
        in: header
        required: true
        schema:
          type: string
    get:
      parameters:
        - name: X-Request-ID
          in: header
          required: true
          schema:
            type: string
            pattern: "^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$"
        - name: page
          in: query
          required: false
          schema:
            type: integer
        - name: sort
          in: query
          required: false
          schema:
            type: string
            enum: [asc, desc]
        - name: tag
          in: query
          required: false
          schema:
            type: string
            minLength: 2
            maxLength: 5
            pattern: "^[a-z]+$"
        - name: session
          in: cookie
          required: true
          schema:
            type: string
      responses:
        "200":
          description: OK
`

func validProductHeaders() http.Header {
	return http.Header{
		"X-Tenant":     {"acme"},
		"X-Request-Id": {"123e4567-e89b-42d3-a456-426614174000"},
	}
}

func TestCheckParameters(t *testing.T) {
	e := mustNew(t, paramsSpec, false)

	get := func(header http.Header, query map[string][]string) *Outcome {
		return e.ValidateRequest(RequestSnapshot{
			Method: "GET",
			Path:   "/products",
			Header: header,
			Query:  query,
		})
	}

	t.Run("all declared parameters present and valid", func(t *testing.T) {
		out := get(validProductHeaders(), nil)
		// The cookie parameter is unsupported, so it always reads as absent.
		require.NotNil(t, out)
		assert.Equal(t, []string{"Required cookie parameter 'session' is missing"}, out.Findings)
	})

	t.Run("path-level parameters are checked before operation-level", func(t *testing.T) {
		header := validProductHeaders()
		header.Del("X-Tenant")
		header.Del("X-Request-Id")
		out := get(header, nil)
		require.NotNil(t, out)
		require.Len(t, out.Findings, 3)
		assert.Equal(t, "Required header parameter 'X-Tenant' is missing", out.Findings[0])
		assert.Equal(t, "Required header parameter 'X-Request-ID' is missing", out.Findings[1])
	})

	t.Run("header lookup is case-insensitive", func(t *testing.T) {
		header := http.Header{}
		header.Set("x-tenant", "acme")
		header.Set("X-REQUEST-ID", "123e4567-e89b-42d3-a456-426614174000")
		out := get(header, nil)
		require.NotNil(t, out)
		assert.Equal(t, []string{"Required cookie parameter 'session' is missing"}, out.Findings)
	})

	t.Run("integer query parameter must parse", func(t *testing.T) {
		out := get(validProductHeaders(), map[string][]string{"page": {"two"}})
		require.NotNil(t, out)
		assert.Contains(t, out.Findings, "query parameter 'page' must be an integer, got 'two'")
	})

	t.Run("enum membership", func(t *testing.T) {
		out := get(validProductHeaders(), map[string][]string{"sort": {"sideways"}})
		require.NotNil(t, out)
		assert.Contains(t, out.Findings, "query parameter 'sort' must be one of [asc, desc], got 'sideways'")
	})

	t.Run("uuid pattern mismatch", func(t *testing.T) {
		header := validProductHeaders()
		header.Set("X-Request-Id", "invalid-uuid")
		out := get(header, nil)
		require.NotNil(t, out)
		found := false
		for _, f := range out.Findings {
			if strings.Contains(f, "pattern") && strings.Contains(f, "X-Request-ID") {
				found = true
			}
		}
		assert.True(t, found, "expected a pattern finding for X-Request-ID, got %v", out.Findings)
	})

	t.Run("independent constraint findings", func(t *testing.T) {
		// "X" violates the pattern and the minimum length: two findings.
		out := get(validProductHeaders(), map[string][]string{"tag": {"X"}})
		require.NotNil(t, out)
		assert.Contains(t, out.Findings, "query parameter 'tag' does not match pattern '^[a-z]+$'")
		assert.Contains(t, out.Findings, "query parameter 'tag' must be at least 2 characters")
	})

	t.Run("query lookup uses first value case-insensitively", func(t *testing.T) {
		out := get(validProductHeaders(), map[string][]string{"PAGE": {"3", "nope"}})
		require.NotNil(t, out)
		assert.NotContains(t, out.Findings, "query parameter 'page' must be an integer, got '3'")
	})

	t.Run("optional absent parameters are skipped", func(t *testing.T) {
		out := get(validProductHeaders(), nil)
		require.NotNil(t, out)
		for _, f := range out.Findings {
			assert.NotContains(t, f, "'page'")
			assert.NotContains(t, f, "'sort'")
		}
	})
}

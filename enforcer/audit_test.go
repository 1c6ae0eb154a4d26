package enforcer

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersSpec = `
openapi: "3.0.0"
info:
  title: Orders API
  version: "1.0"
paths:
  /orders:
    post:
      parameters:
        - name: dryRun
          in: query
          required: false
          schema:
            type: boolean
        - name: X-Tenant
          in: header
          required: false
          schema:
            type: string
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [sku]
              properties:
                sku:
                  type: string
                note:
                  type: string
                shipping:
                  type: object
                  properties:
                    city:
                      type: string
      responses:
        "201":
          description: Created
          headers:
            X-Order-ID:
              required: true
              schema:
                type: string
          content:
            application/json:
              schema:
                type: object
                properties:
                  id:
                    type: string
`

func orderRequest(body string) RequestSnapshot {
	return RequestSnapshot{
		Method:      "POST",
		Path:        "/orders",
		ContentType: "application/json",
		Body:        []byte(body),
		Header:      http.Header{"Content-Type": {"application/json"}},
		Query:       map[string][]string{},
	}
}

func TestAudit_UndeclaredQueryParameter(t *testing.T) {
	e := mustNew(t, ordersSpec, true)

	snap := orderRequest(`{"sku": "A1"}`)
	snap.Query = map[string][]string{"debug": {"1"}}

	outcome := e.ValidateRequest(snap)
	require.NotNil(t, outcome)
	assert.Equal(t, []string{"Undeclared query parameter: 'debug'"}, outcome.Findings)
	assert.True(t, outcome.GovernanceOnly)
	assert.Equal(t, "Strict mode violations detected", outcome.Message)
}

func TestAudit_DeclaredQueryParameterPasses(t *testing.T) {
	e := mustNew(t, ordersSpec, true)

	snap := orderRequest(`{"sku": "A1"}`)
	snap.Query = map[string][]string{"dryRun": {"true"}}

	assert.Nil(t, e.ValidateRequest(snap))
}

func TestAudit_RequestHeaders(t *testing.T) {
	e := mustNew(t, ordersSpec, true)

	t.Run("standard and security headers pass", func(t *testing.T) {
		snap := orderRequest(`{"sku": "A1"}`)
		snap.Header = http.Header{
			"Content-Type":  {"application/json"},
			"User-Agent":    {"curl/8.0"},
			"Accept":        {"application/json"},
			"Authorization": {"Bearer tok"},
			"X-Api-Key":     {"secret"},
		}
		assert.Nil(t, e.ValidateRequest(snap))
	})

	t.Run("declared header passes", func(t *testing.T) {
		snap := orderRequest(`{"sku": "A1"}`)
		snap.Header.Set("X-Tenant", "acme")
		assert.Nil(t, e.ValidateRequest(snap))
	})

	t.Run("unknown header is flagged", func(t *testing.T) {
		snap := orderRequest(`{"sku": "A1"}`)
		snap.Header.Set("X-Debug-Trace", "on")

		outcome := e.ValidateRequest(snap)
		require.NotNil(t, outcome)
		assert.Equal(t, []string{"Undeclared request header: 'X-Debug-Trace'"}, outcome.Findings)
		assert.True(t, outcome.GovernanceOnly)
	})
}

func TestAudit_UndeclaredBodyProperties(t *testing.T) {
	e := mustNew(t, ordersSpec, true)

	t.Run("top level", func(t *testing.T) {
		outcome := e.ValidateRequest(orderRequest(`{"sku": "A1", "gift": true}`))
		require.NotNil(t, outcome)
		assert.Equal(t, []string{"Undeclared property in request body: 'gift'"}, outcome.Findings)
		assert.True(t, outcome.GovernanceOnly)
	})

	t.Run("nested object", func(t *testing.T) {
		outcome := e.ValidateRequest(orderRequest(`{"sku": "A1", "shipping": {"city": "Oslo", "zip": "0150"}}`))
		require.NotNil(t, outcome)
		assert.Equal(t, []string{"Undeclared property in request body.shipping: 'zip'"}, outcome.Findings)
	})

	t.Run("multiple flagged in sorted key order", func(t *testing.T) {
		outcome := e.ValidateRequest(orderRequest(`{"sku": "A1", "zzz": 1, "aaa": 2}`))
		require.NotNil(t, outcome)
		assert.Equal(t, []string{
			"Undeclared property in request body: 'aaa'",
			"Undeclared property in request body: 'zzz'",
		}, outcome.Findings)
	})
}

func TestAudit_MixedFindingsAreNotGovernanceOnly(t *testing.T) {
	e := mustNew(t, ordersSpec, true)

	// A schema failure alongside an audit finding demotes the outcome to a
	// plain validation failure.
	outcome := e.ValidateRequest(orderRequest(`{"note": "n", "gift": true}`))
	require.NotNil(t, outcome)
	assert.Equal(t, []string{
		"request body: Required property 'sku' is missing",
		"Undeclared property in request body: 'gift'",
	}, outcome.Findings)
	assert.False(t, outcome.GovernanceOnly)
	assert.Equal(t, "Request validation failed", outcome.Message)
}

func TestAudit_DisabledWithoutStrictMode(t *testing.T) {
	e := mustNew(t, ordersSpec, false)

	snap := orderRequest(`{"sku": "A1", "gift": true}`)
	snap.Query = map[string][]string{"debug": {"1"}}
	snap.Header.Set("X-Debug-Trace", "on")

	assert.Nil(t, e.ValidateRequest(snap))
}

func TestAudit_StrictAddsOnTopOfFunctionalFindings(t *testing.T) {
	body := `{"gift": true}`

	lax := mustNew(t, ordersSpec, false)
	laxOutcome := lax.ValidateRequest(orderRequest(body))
	require.NotNil(t, laxOutcome)

	strict := mustNew(t, ordersSpec, true)
	strictOutcome := strict.ValidateRequest(orderRequest(body))
	require.NotNil(t, strictOutcome)

	// Every functional finding survives unchanged; strict mode only appends.
	require.Greater(t, len(strictOutcome.Findings), len(laxOutcome.Findings))
	assert.Equal(t, laxOutcome.Findings, strictOutcome.Findings[:len(laxOutcome.Findings)])
}

func TestAudit_Response(t *testing.T) {
	e := mustNew(t, ordersSpec, true)

	base := func() ResponseSnapshot {
		return ResponseSnapshot{
			Method:      "POST",
			Path:        "/orders",
			StatusCode:  201,
			ContentType: "application/json",
			Body:        []byte(`{"id": "ord-1"}`),
			Header: http.Header{
				"Content-Type": {"application/json"},
				"X-Order-Id":   {"ord-1"},
			},
		}
	}

	t.Run("declared and standard headers pass", func(t *testing.T) {
		snap := base()
		snap.Header.Set("Date", "Mon, 02 Jan 2006 15:04:05 GMT")
		snap.Header.Set("Cache-Control", "no-store")
		assert.Nil(t, e.ValidateResponse(snap))
	})

	t.Run("unknown response header is flagged", func(t *testing.T) {
		snap := base()
		snap.Header.Set("X-Backend-Node", "b12")

		outcome := e.ValidateResponse(snap)
		require.NotNil(t, outcome)
		assert.Equal(t, []string{"Undeclared response header: 'X-Backend-Node'"}, outcome.Findings)
		assert.True(t, outcome.GovernanceOnly)
		assert.Equal(t, "Strict mode violations detected", outcome.Message)
	})

	t.Run("undeclared response body property is flagged", func(t *testing.T) {
		snap := base()
		snap.Body = []byte(`{"id": "ord-1", "internalCost": 9.5}`)

		outcome := e.ValidateResponse(snap)
		require.NotNil(t, outcome)
		assert.Equal(t, []string{"Undeclared property in response body: 'internalCost'"}, outcome.Findings)
	})
}

func TestAudit_SkippedAfterContentTypeFailure(t *testing.T) {
	e := mustNew(t, ordersSpec, true)

	snap := orderRequest(`sku=A1`)
	snap.ContentType = "application/x-www-form-urlencoded"
	snap.Query = map[string][]string{"debug": {"1"}}

	// The content-type failure ends the call before the audit runs, so the
	// undeclared query parameter is never reported.
	outcome := e.ValidateRequest(snap)
	require.NotNil(t, outcome)
	assert.Equal(t,
		[]string{"Content type 'application/x-www-form-urlencoded' is not defined for request body"},
		outcome.Findings)
	assert.False(t, outcome.GovernanceOnly)
}

func TestIsGovernanceFinding(t *testing.T) {
	assert.True(t, IsGovernanceFinding("Undeclared query parameter: 'debug'"))
	assert.True(t, IsGovernanceFinding("Undeclared property in request body: 'gift'"))
	assert.False(t, IsGovernanceFinding("Request body is required but missing"))
	assert.False(t, IsGovernanceFinding("request body: Required property 'sku' is missing"))
}

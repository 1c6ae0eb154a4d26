package enforcer

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/apiwarden/apiwarden/contract"
)

// Enforcer validates HTTP traffic snapshots against a contract document.
//
// Create an Enforcer with [New]. The strict-mode flag is fixed at
// construction; the contract document must never be mutated after
// construction. All validation calls are safe for concurrent use.
type Enforcer struct {
	doc    *contract.Document
	strict bool

	// patternCache caches compiled regex patterns (sync.Map[string, *regexp.Regexp])
	patternCache sync.Map
}

// RequestSnapshot is a fully materialized request as seen by the
// interception layer. Header keys compare case-insensitively; query keys
// compare case-insensitively too.
type RequestSnapshot struct {
	// Method is the HTTP method, e.g. "GET".
	Method string

	// Path is the concrete request path, e.g. "/users/123".
	Path string

	// ContentType is the Content-Type header value; empty means
	// application/json when a body is present.
	ContentType string

	// Body is the raw request body. Empty or nil means no body.
	Body []byte

	// Header holds the request headers.
	Header http.Header

	// Query holds the decoded query parameters.
	Query map[string][]string

	// PathParams optionally carries pre-extracted path parameters; they
	// take precedence over values captured during path resolution.
	PathParams map[string]string
}

// ResponseSnapshot is a fully materialized response paired with the
// request's method and path.
type ResponseSnapshot struct {
	// Method and Path identify the originating request.
	Method string
	Path   string

	// StatusCode is the HTTP response status.
	StatusCode int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is the raw response body.
	Body []byte

	// Header holds the response headers.
	Header http.Header
}

// New creates an Enforcer from a loaded contract document. The strict
// flag enables the undeclared-element audit for every validation call.
func New(doc *contract.Document, strict bool) (*Enforcer, error) {
	if doc == nil {
		return nil, fmt.Errorf("enforcer: contract document cannot be nil")
	}
	return &Enforcer{doc: doc, strict: strict}, nil
}

// StrictMode reports whether the undeclared-element audit is enabled.
func (e *Enforcer) StrictMode() bool {
	return e.strict
}

// Document returns the contract snapshot this enforcer validates against.
func (e *Enforcer) Document() *contract.Document {
	return e.doc
}

// ValidateRequest validates one request snapshot. It returns nil when the
// request conforms to the contract. The call never panics: unexpected
// internal failures yield a generic "Validation error occurred" outcome.
func (e *Enforcer) ValidateRequest(snap RequestSnapshot) (out *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = engineError(KindRequest, snap.Method, snap.Path, 0, fmt.Sprint(r))
		}
	}()

	entry, op, captured, res := e.resolve(snap.Method, snap.Path)
	if o := e.structuralOutcome(KindRequest, &snap, 0, res); o != nil {
		return o
	}

	// Merge captured values into a fresh map so a caller-supplied
	// PathParams map is never mutated. Caller values win.
	merged := make(map[string]string, len(captured)+len(snap.PathParams))
	for name, value := range captured {
		merged[name] = value
	}
	for name, value := range snap.PathParams {
		merged[name] = value
	}
	snap.PathParams = merged

	params := operationParameters(entry, op)
	findings := e.checkParameters(params, &snap)

	body, bodySchema, bodyFindings, terminal := e.checkRequestBody(op, &snap)
	findings = append(findings, bodyFindings...)
	if terminal {
		return e.classify(KindRequest, snap.Method, snap.Path, 0, findings)
	}

	if e.strict {
		findings = append(findings, e.auditRequest(params, &snap, body, bodySchema)...)
	}

	return e.classify(KindRequest, snap.Method, snap.Path, 0, findings)
}

// ValidateResponse validates one response snapshot. It returns nil when
// the response conforms to the contract.
func (e *Enforcer) ValidateResponse(snap ResponseSnapshot) (out *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = engineError(KindResponse, snap.Method, snap.Path, snap.StatusCode, fmt.Sprint(r))
		}
	}()

	req := RequestSnapshot{Method: snap.Method, Path: snap.Path}
	_, op, _, res := e.resolve(snap.Method, snap.Path)
	if o := e.structuralOutcome(KindResponse, &req, snap.StatusCode, res); o != nil {
		return o
	}

	respDef := responseDefinition(op, snap.StatusCode)
	if respDef == nil {
		finding := fmt.Sprintf("Response status code '%d' is not defined in the specification", snap.StatusCode)
		return e.classify(KindResponse, snap.Method, snap.Path, snap.StatusCode, []string{finding})
	}

	findings := e.checkResponseHeaders(respDef.Headers, snap.Header)

	body, bodySchema, bodyFindings, terminal := e.checkResponseBody(respDef, &snap)
	findings = append(findings, bodyFindings...)
	if terminal {
		return e.classify(KindResponse, snap.Method, snap.Path, snap.StatusCode, findings)
	}

	if e.strict {
		findings = append(findings, e.auditResponse(respDef.Headers, snap.Header, body, bodySchema)...)
	}

	return e.classify(KindResponse, snap.Method, snap.Path, snap.StatusCode, findings)
}

// structuralOutcome converts a failed resolution into its terminal
// outcome, or nil when resolution succeeded.
func (e *Enforcer) structuralOutcome(kind Kind, snap *RequestSnapshot, statusCode int, res resolution) *Outcome {
	switch res {
	case resolvedNotFound:
		finding := fmt.Sprintf("Path '%s' not found in OpenAPI specification", snap.Path)
		return e.classify(kind, snap.Method, snap.Path, statusCode, []string{finding})
	case resolvedMethodNotAllowed:
		finding := fmt.Sprintf("Method '%s' not allowed for path '%s'", strings.ToUpper(snap.Method), snap.Path)
		return e.classify(kind, snap.Method, snap.Path, statusCode, []string{finding})
	default:
		return nil
	}
}

// checkRequestBody validates the request payload. It returns the decoded
// body and its schema for the auditor, the accumulated findings, and
// terminal=true when a structural content-type failure must end the call.
func (e *Enforcer) checkRequestBody(op *contract.Operation, snap *RequestSnapshot) (body any, schema *contract.Schema, findings []string, terminal bool) {
	rb := op.RequestBody
	if rb == nil {
		return nil, nil, nil, false
	}

	if len(snap.Body) == 0 {
		if rb.Required {
			findings = []string{"Request body is required but missing"}
		}
		return nil, nil, findings, false
	}

	mediaType := normalizeMediaType(snap.ContentType)
	schema, declared := lookupContent(rb.Content, mediaType)
	if !declared {
		finding := fmt.Sprintf("Content type '%s' is not defined for request body", mediaType)
		return nil, nil, []string{finding}, true
	}

	if !isJSONMediaType(mediaType) {
		// Only JSON payloads are schema-validated.
		return nil, nil, nil, false
	}

	body, findings = e.decodeAndValidate(snap.Body, schema, "request body")
	return body, schema, findings, false
}

// checkResponseBody validates the response payload against the matched
// response definition.
func (e *Enforcer) checkResponseBody(respDef *contract.Response, snap *ResponseSnapshot) (body any, schema *contract.Schema, findings []string, terminal bool) {
	if len(snap.Body) == 0 || len(respDef.Content) == 0 {
		return nil, nil, nil, false
	}

	mediaType := normalizeMediaType(snap.ContentType)
	schema, declared := lookupContent(respDef.Content, mediaType)
	if !declared {
		finding := fmt.Sprintf("Content type '%s' is not defined for response", mediaType)
		return nil, nil, []string{finding}, true
	}

	if !isJSONMediaType(mediaType) {
		return nil, nil, nil, false
	}

	body, findings = e.decodeAndValidate(snap.Body, schema, "response body")
	return body, schema, findings, false
}

// decodeAndValidate parses JSON and runs the schema validator. A parse
// failure is a single finding; schema validation is skipped.
func (e *Enforcer) decodeAndValidate(raw []byte, schema *contract.Schema, label string) (any, []string) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, []string{fmt.Sprintf("Invalid JSON in %s: %v", label, err)}
	}
	if schema == nil {
		return value, nil
	}
	return value, e.validateValue(value, schema, label)
}

// responseDefinition finds the declared response for a status code: exact
// match first, then the "default" bucket.
func responseDefinition(op *contract.Operation, statusCode int) *contract.Response {
	if resp, ok := op.Responses[strconv.Itoa(statusCode)]; ok {
		return resp
	}
	return op.Responses["default"]
}

// lookupContent finds the schema declared for a media type. An exact match
// wins; wildcard declarations like "application/*" and "*/*" match by
// prefix. The schema may be nil even when the media type is declared.
func lookupContent(content map[string]*contract.Schema, mediaType string) (*contract.Schema, bool) {
	if len(content) == 0 {
		return nil, false
	}
	if schema, ok := content[mediaType]; ok {
		return schema, true
	}
	for declared, schema := range content {
		if matchMediaType(declared, mediaType) {
			return schema, true
		}
	}
	return nil, false
}

// matchMediaType checks a declared media type pattern against a concrete
// media type, supporting "type/*" and "*/*" wildcards.
func matchMediaType(pattern, mediaType string) bool {
	if pattern == "*/*" {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		return strings.HasPrefix(mediaType, pattern[:len(pattern)-1])
	}
	return strings.EqualFold(pattern, mediaType)
}

// normalizeMediaType strips parameters from a Content-Type value and
// lower-cases it. An empty value defaults to application/json.
func normalizeMediaType(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return "application/json"
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// isJSONMediaType reports whether a media type carries a JSON payload.
func isJSONMediaType(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

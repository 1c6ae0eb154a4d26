package enforcer

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/apiwarden/apiwarden/contract"
)

// Fixed header allowlists for the strict-mode auditor. Keys are
// lower-cased. These are never flagged as undeclared, regardless of the
// contract.
var (
	// securityRequestHeaders are credential-bearing request headers.
	securityRequestHeaders = allowlist("Authorization", "X-API-Key", "Api-Key")

	// standardRequestHeaders are ordinary request headers set by clients
	// and intermediaries.
	standardRequestHeaders = allowlist(
		"Host", "User-Agent", "Accept", "Accept-Encoding", "Accept-Language",
		"Connection", "Content-Length", "Content-Type", "Cache-Control",
	)

	// standardResponseHeaders are ordinary response headers set by servers
	// and intermediaries.
	standardResponseHeaders = allowlist(
		"Date", "Server", "Content-Length", "Content-Type",
		"Transfer-Encoding", "Connection", "Cache-Control", "Vary",
		"ETag", "Last-Modified",
	)
)

func allowlist(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = true
	}
	return m
}

// auditRequest detects request traffic elements never declared in the
// contract: query parameters, headers, and JSON body properties. It runs
// only in strict mode and is independent of functional validation.
func (e *Enforcer) auditRequest(params []*contract.Parameter, snap *RequestSnapshot, body any, bodySchema *contract.Schema) []string {
	declared := declaredNames(params)
	var findings []string

	for _, key := range sortedKeys(snap.Query) {
		if !declared[strings.ToLower(key)] {
			findings = append(findings, fmt.Sprintf("Undeclared query parameter: '%s'", key))
		}
	}

	for _, name := range sortedHeaderNames(snap.Header) {
		lower := strings.ToLower(name)
		if declared[lower] || securityRequestHeaders[lower] || standardRequestHeaders[lower] {
			continue
		}
		findings = append(findings, fmt.Sprintf("Undeclared request header: '%s'", name))
	}

	findings = append(findings, e.auditBody(body, bodySchema, "request body")...)
	return findings
}

// auditResponse detects undeclared response headers and JSON body
// properties.
func (e *Enforcer) auditResponse(declared map[string]*contract.Header, header http.Header, body any, bodySchema *contract.Schema) []string {
	declaredLower := make(map[string]bool, len(declared))
	for name := range declared {
		declaredLower[strings.ToLower(name)] = true
	}

	var findings []string
	for _, name := range sortedHeaderNames(header) {
		lower := strings.ToLower(name)
		if declaredLower[lower] || standardResponseHeaders[lower] {
			continue
		}
		findings = append(findings, fmt.Sprintf("Undeclared response header: '%s'", name))
	}

	findings = append(findings, e.auditBody(body, bodySchema, "response body")...)
	return findings
}

// auditBody walks a decoded JSON value alongside its schema, flagging
// object properties that are present but undeclared. The walk descends
// only into declared properties, mirroring the schema validator's
// recursion, so a declared parent is still audited for undeclared
// children. Object keys are visited in sorted order to keep the finding
// list deterministic.
func (e *Enforcer) auditBody(value any, schema *contract.Schema, label string) []string {
	schema = e.doc.Resolve(schema)
	if schema == nil {
		return nil
	}

	switch v := value.(type) {
	case map[string]any:
		if schema.Type != "" && schema.Type != "object" {
			return nil
		}
		var findings []string
		for _, name := range sortedKeys(v) {
			prop, declared := schema.Properties[name]
			if !declared {
				findings = append(findings, fmt.Sprintf("Undeclared property in %s: '%s'", label, name))
				continue
			}
			findings = append(findings, e.auditBody(v[name], prop, label+"."+name)...)
		}
		return findings

	case []any:
		if schema.Type != "" && schema.Type != "array" {
			return nil
		}
		if schema.Items == nil {
			return nil
		}
		var findings []string
		for i, item := range v {
			findings = append(findings, e.auditBody(item, schema.Items, fmt.Sprintf("%s[%d]", label, i))...)
		}
		return findings

	default:
		return nil
	}
}

// declaredNames builds the lower-cased allowlist of every parameter name
// visible to the operation, across all locations.
func declaredNames(params []*contract.Parameter) map[string]bool {
	names := make(map[string]bool, len(params))
	for _, p := range params {
		names[strings.ToLower(p.Name)] = true
	}
	return names
}

// sortedKeys returns the keys of a map in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedHeaderNames returns header names in sorted order.
func sortedHeaderNames(h http.Header) []string {
	return sortedKeys(h)
}

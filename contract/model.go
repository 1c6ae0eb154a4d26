package contract

import "strings"

// Parameter locations.
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InCookie = "cookie"
)

// Document is the in-memory representation of an API contract.
// It is immutable once loaded and safe for concurrent use.
type Document struct {
	// Title is the contract title from the info section.
	Title string

	// Version is the contract version from the info section.
	Version string

	// Paths holds the path entries in source declaration order.
	// Order is significant: path resolution is first-match.
	Paths []*PathEntry

	// Schemas holds the reusable schemas from components/schemas,
	// addressable via $ref.
	Schemas map[string]*Schema
}

// PathEntry maps one path template to its per-verb operations.
type PathEntry struct {
	// Template is the path template, e.g. "/users/{id}".
	Template string

	// Operations maps upper-case HTTP verbs to operations.
	Operations map[string]*Operation

	// Parameters are the path-item level parameter declarations,
	// shared by every operation under this template.
	Parameters []*Parameter
}

// Operation describes one declared operation (verb on a path template).
type Operation struct {
	// ID is the operationId, if declared.
	ID string

	// Parameters are the operation-level parameter declarations.
	// Consumers check these after the path-item level list.
	Parameters []*Parameter

	// RequestBody describes the declared request payload, if any.
	RequestBody *RequestBody

	// Responses maps a status code string (e.g. "200") or "default"
	// to the declared response.
	Responses map[string]*Response
}

// Parameter is a single declared parameter.
type Parameter struct {
	// Name is the parameter name. Header names compare case-insensitively.
	Name string

	// In is the parameter location: path, query, header, or cookie.
	In string

	// Required reports whether the parameter must be present.
	Required bool

	// Schema constrains the parameter value, if declared.
	Schema *Schema
}

// RequestBody describes a declared request payload.
type RequestBody struct {
	// Required reports whether a body must be present.
	Required bool

	// Content maps a media type (e.g. "application/json") to the
	// payload schema.
	Content map[string]*Schema
}

// Response describes one declared response.
type Response struct {
	// Description is the human summary from the contract.
	Description string

	// Content maps a media type to the payload schema.
	Content map[string]*Schema

	// Headers maps declared response header names to their declarations.
	Headers map[string]*Header
}

// Header is a declared response header.
type Header struct {
	// Required reports whether the header must be present.
	Required bool

	// Schema constrains the header value, if declared.
	Schema *Schema
}

// Schema is a declared payload or parameter schema. It covers the
// practical validation subset: type, object properties, required names,
// array items, enum, pattern, string length bounds, and inclusive numeric
// bounds.
type Schema struct {
	// Ref is a local reference ("#/components/schemas/Name"). When set,
	// the other fields are ignored and the target schema applies.
	Ref string

	// Type is one of object, array, string, number, integer, boolean,
	// or null. Empty means any type.
	Type string

	// Properties maps property names to their schemas (objects only).
	Properties map[string]*Schema

	// PropertyOrder lists the keys of Properties in source declaration
	// order, so validation walks are deterministic.
	PropertyOrder []string

	// Required lists property names that must be present (objects only).
	Required []string

	// Items is the element schema (arrays only).
	Items *Schema

	// Enum is the ordered list of allowed literal scalar values.
	Enum []any

	// Pattern is a regular expression the value must match (strings only).
	Pattern string

	// MinLength and MaxLength bound the string length, when non-nil.
	MinLength *int
	MaxLength *int

	// Minimum and Maximum are inclusive numeric bounds, when non-nil.
	Minimum *float64
	Maximum *float64
}

// Resolve follows a schema's $ref against the document. It returns the
// referenced schema, or nil when ref does not point at a loadable
// components/schemas entry. Non-ref schemas are returned unchanged.
//
// Unresolvable references are a known validation gap: consumers skip
// deeper validation of the subtree rather than failing.
func (d *Document) Resolve(s *Schema) *Schema {
	const prefix = "#/components/schemas/"
	seen := 0
	for s != nil && s.Ref != "" {
		if d == nil || !strings.HasPrefix(s.Ref, prefix) {
			return nil
		}
		target := d.Schemas[strings.TrimPrefix(s.Ref, prefix)]
		if target == nil {
			return nil
		}
		s = target
		// Reference chains in components may cycle; bail out rather
		// than spin.
		seen++
		if seen > maxRefDepth {
			return nil
		}
	}
	return s
}

// maxRefDepth bounds $ref chain traversal in Resolve.
const maxRefDepth = 32

// Entry returns the path entry whose template matches exactly, or nil.
func (d *Document) Entry(template string) *PathEntry {
	for _, p := range d.Paths {
		if p.Template == template {
			return p
		}
	}
	return nil
}

// OperationCount returns the total number of declared operations.
func (d *Document) OperationCount() int {
	n := 0
	for _, p := range d.Paths {
		n += len(p.Operations)
	}
	return n
}

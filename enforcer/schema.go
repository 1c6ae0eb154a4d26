package enforcer

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/apiwarden/apiwarden/contract"
)

// validateValue recursively validates a decoded JSON value against a
// schema. label names the value ("request body", "response body") and is
// suffixed with ".property" and "[index]" while descending.
//
// Findings accumulate into one ordered list. A type mismatch on a node
// suppresses further recursion into that node but leaves sibling
// validation untouched. Properties present in the value but not declared
// in the schema are ignored here; flagging those is the strict-mode
// auditor's job.
func (e *Enforcer) validateValue(value any, schema *contract.Schema, label string) []string {
	schema = e.doc.Resolve(schema)
	if schema == nil {
		// Unresolvable $ref: skip deeper validation of this subtree.
		return nil
	}

	if schema.Type != "" {
		actual := jsonKind(value)
		if !kindMatches(actual, schema.Type) {
			return []string{fmt.Sprintf("%s: Expected type '%s', got '%s'", label, schema.Type, actual)}
		}
	}

	var findings []string
	switch v := value.(type) {
	case map[string]any:
		findings = append(findings, e.validateObject(v, schema, label)...)
	case []any:
		findings = append(findings, e.validateArray(v, schema, label)...)
	case string:
		findings = append(findings, e.validateString(v, schema, label)...)
	case float64:
		findings = append(findings, validateNumber(v, schema, label)...)
	}
	return findings
}

// validateObject checks required property presence, then recurses into
// every property that is both present and declared, in schema declaration
// order.
func (e *Enforcer) validateObject(obj map[string]any, schema *contract.Schema, label string) []string {
	var findings []string

	for _, name := range schema.Required {
		if _, present := obj[name]; !present {
			findings = append(findings, fmt.Sprintf("%s: Required property '%s' is missing", label, name))
		}
	}

	for _, name := range schema.PropertyOrder {
		value, present := obj[name]
		if !present {
			continue
		}
		findings = append(findings, e.validateValue(value, schema.Properties[name], label+"."+name)...)
	}

	return findings
}

// validateArray recurses into every element against the items schema.
func (e *Enforcer) validateArray(arr []any, schema *contract.Schema, label string) []string {
	if schema.Items == nil {
		return nil
	}
	var findings []string
	for i, item := range arr {
		findings = append(findings, e.validateValue(item, schema.Items, fmt.Sprintf("%s[%d]", label, i))...)
	}
	return findings
}

// validateString applies length, enum, and pattern constraints
// independently.
func (e *Enforcer) validateString(s string, schema *contract.Schema, label string) []string {
	var findings []string

	if schema.MinLength != nil && len(s) < *schema.MinLength {
		findings = append(findings, fmt.Sprintf("%s: String length %d is less than minimum %d", label, len(s), *schema.MinLength))
	}
	if schema.MaxLength != nil && len(s) > *schema.MaxLength {
		findings = append(findings, fmt.Sprintf("%s: String length %d is greater than maximum %d", label, len(s), *schema.MaxLength))
	}

	if len(schema.Enum) > 0 && !enumContains(schema.Enum, s) {
		findings = append(findings, fmt.Sprintf("%s: Value '%s' is not one of the allowed values: %s", label, s, formatEnum(schema.Enum)))
	}

	if schema.Pattern != "" {
		if matched, err := e.matchPattern(schema.Pattern, s); err == nil && !matched {
			findings = append(findings, fmt.Sprintf("%s: Value does not match pattern '%s'", label, schema.Pattern))
		}
	}

	return findings
}

// validateNumber applies the inclusive minimum/maximum bounds.
func validateNumber(n float64, schema *contract.Schema, label string) []string {
	var findings []string
	if schema.Minimum != nil && n < *schema.Minimum {
		findings = append(findings, fmt.Sprintf("%s: Value %s is less than minimum %s", label, formatNumber(n), formatNumber(*schema.Minimum)))
	}
	if schema.Maximum != nil && n > *schema.Maximum {
		findings = append(findings, fmt.Sprintf("%s: Value %s is greater than maximum %s", label, formatNumber(n), formatNumber(*schema.Maximum)))
	}
	return findings
}

// formatNumber renders a JSON number without a trailing ".0" for whole
// values.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// jsonKind names the schema kind of a decoded JSON value. Whole numbers
// report as "integer" so that they satisfy both numeric schema types.
func jsonKind(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64:
		if v == float64(int64(v)) {
			return "integer"
		}
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

// kindMatches reports whether a value kind satisfies a schema type.
// "integer" is a subset of "number"; "integer" requires a number with no
// fractional part.
func kindMatches(kind, schemaType string) bool {
	if kind == schemaType {
		return true
	}
	return schemaType == "number" && kind == "integer"
}

// matchPattern compiles and matches a regex pattern, caching compiled
// patterns across calls. The cache is a performance optimization only:
// concurrent misses may compile the same pattern twice.
func (e *Enforcer) matchPattern(pattern, s string) (bool, error) {
	if cached, ok := e.patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(s), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	e.patternCache.Store(pattern, re)
	return re.MatchString(s), nil
}

package enforcer

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/apiwarden/apiwarden/contract"
)

// operationParameters returns the parameter declarations visible to an
// operation: the path-item level list first, then the operation-level list.
// Both lists are checked; operation-level declarations do not replace
// path-level ones.
func operationParameters(entry *contract.PathEntry, op *contract.Operation) []*contract.Parameter {
	if len(entry.Parameters) == 0 {
		return op.Parameters
	}
	params := make([]*contract.Parameter, 0, len(entry.Parameters)+len(op.Parameters))
	params = append(params, entry.Parameters...)
	params = append(params, op.Parameters...)
	return params
}

// checkParameters validates every declared parameter against the traffic
// snapshot. Findings accumulate; a missing required parameter skips the
// remaining checks for that parameter only.
func (e *Enforcer) checkParameters(params []*contract.Parameter, snap *RequestSnapshot) []string {
	var findings []string
	for _, p := range params {
		value, present := lookupParameter(p, snap)
		if !present {
			if p.Required {
				findings = append(findings, fmt.Sprintf("Required %s parameter '%s' is missing", p.In, p.Name))
			}
			continue
		}
		findings = append(findings, e.checkScalar(fmt.Sprintf("%s parameter '%s'", p.In, p.Name), value, p.Schema)...)
	}
	return findings
}

// lookupParameter resolves a declared parameter's actual value from the
// snapshot by location. Cookie parameters are unsupported and always
// resolve as absent.
func lookupParameter(p *contract.Parameter, snap *RequestSnapshot) (string, bool) {
	switch p.In {
	case contract.InPath:
		v, ok := snap.PathParams[p.Name]
		return v, ok
	case contract.InQuery:
		return firstQueryValue(snap.Query, p.Name)
	case contract.InHeader:
		return firstHeaderValue(snap.Header, p.Name)
	default:
		return "", false
	}
}

// firstQueryValue returns the first value for a query key, comparing keys
// case-insensitively.
func firstQueryValue(query map[string][]string, name string) (string, bool) {
	for key, values := range query {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0], true
		}
	}
	return "", false
}

// firstHeaderValue returns the first value for a header, case-insensitively.
func firstHeaderValue(header http.Header, name string) (string, bool) {
	if values, ok := header[http.CanonicalHeaderKey(name)]; ok && len(values) > 0 {
		return values[0], true
	}
	// Headers stored with non-canonical keys still match by fold.
	for key, values := range header {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0], true
		}
	}
	return "", false
}

// checkScalar validates a single textual value (parameter or declared
// response header) against its schema. Numeric range bounds are not
// enforced here; they apply only to body schemas.
func (e *Enforcer) checkScalar(subject, value string, schema *contract.Schema) []string {
	schema = e.doc.Resolve(schema)
	if schema == nil {
		return nil
	}

	switch schema.Type {
	case "integer":
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return []string{fmt.Sprintf("%s must be an integer, got '%s'", subject, value)}
		}
	case "number":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return []string{fmt.Sprintf("%s must be a number, got '%s'", subject, value)}
		}
	case "boolean":
		if _, err := strconv.ParseBool(value); err != nil {
			return []string{fmt.Sprintf("%s must be a boolean, got '%s'", subject, value)}
		}
	case "string":
		return e.checkStringValue(subject, value, schema)
	}
	return nil
}

// checkStringValue applies the enum, pattern, and length constraints. The
// three checks are independent: a value violating two constraints yields
// two findings.
func (e *Enforcer) checkStringValue(subject, value string, schema *contract.Schema) []string {
	var findings []string

	if len(schema.Enum) > 0 && !enumContains(schema.Enum, value) {
		findings = append(findings, fmt.Sprintf("%s must be one of %s, got '%s'", subject, formatEnum(schema.Enum), value))
	}

	if schema.Pattern != "" {
		if matched, err := e.matchPattern(schema.Pattern, value); err == nil && !matched {
			findings = append(findings, fmt.Sprintf("%s does not match pattern '%s'", subject, schema.Pattern))
		}
	}

	if schema.MinLength != nil && len(value) < *schema.MinLength {
		findings = append(findings, fmt.Sprintf("%s must be at least %d characters", subject, *schema.MinLength))
	}
	if schema.MaxLength != nil && len(value) > *schema.MaxLength {
		findings = append(findings, fmt.Sprintf("%s must be at most %d characters", subject, *schema.MaxLength))
	}

	return findings
}

// enumContains reports whether a textual value matches one of the enum's
// literal string entries exactly.
func enumContains(enum []any, value string) bool {
	for _, entry := range enum {
		if s, ok := entry.(string); ok && s == value {
			return true
		}
	}
	return false
}

// formatEnum renders an enum list as "[a, b, c]".
func formatEnum(enum []any) string {
	parts := make([]string, len(enum))
	for i, entry := range enum {
		parts[i] = fmt.Sprintf("%v", entry)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// checkResponseHeaders validates the declared response headers: required
// presence, then the scalar constraints of each declared header's schema.
func (e *Enforcer) checkResponseHeaders(declared map[string]*contract.Header, header http.Header) []string {
	var findings []string
	for _, name := range sortedKeys(declared) {
		decl := declared[name]
		value, present := firstHeaderValue(header, name)
		if !present {
			if decl.Required {
				findings = append(findings, fmt.Sprintf("Required header parameter '%s' is missing", name))
			}
			continue
		}
		findings = append(findings, e.checkScalar(fmt.Sprintf("header parameter '%s'", name), value, decl.Schema)...)
	}
	return findings
}

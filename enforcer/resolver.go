package enforcer

import (
	"strings"

	"github.com/apiwarden/apiwarden/contract"
)

// resolution is the result of mapping a concrete path + method to a
// declared operation.
type resolution int

const (
	resolved resolution = iota
	resolvedNotFound
	resolvedMethodNotAllowed
)

// resolve maps a concrete request path and method to a declared operation.
//
// An exact string match against a template wins outright. Otherwise path
// entries are scanned in contract declaration order and the first matching
// template wins: segment counts must be equal and each template segment is
// either a {name} placeholder (captures the path segment) or a literal that
// matches case-insensitively. There is no specificity scoring; with
// ambiguous templates like /users/{id} and /users/active, declaration order
// decides.
func (e *Enforcer) resolve(method, path string) (entry *contract.PathEntry, op *contract.Operation, params map[string]string, res resolution) {
	entry, params = e.match(path)
	if entry == nil {
		return nil, nil, nil, resolvedNotFound
	}
	op = entry.Operations[strings.ToUpper(method)]
	if op == nil {
		return entry, nil, nil, resolvedMethodNotAllowed
	}
	return entry, op, params, resolved
}

// match finds the first template matching the concrete path.
func (e *Enforcer) match(path string) (*contract.PathEntry, map[string]string) {
	// Exact template match first.
	for _, entry := range e.doc.Paths {
		if entry.Template == path {
			return entry, map[string]string{}
		}
	}

	segments := splitPath(path)
	for _, entry := range e.doc.Paths {
		if params, ok := matchTemplate(entry.Template, segments); ok {
			return entry, params
		}
	}
	return nil, nil
}

// matchTemplate matches pre-split path segments against one template.
func matchTemplate(template string, segments []string) (map[string]string, bool) {
	tsegs := splitPath(template)
	if len(tsegs) != len(segments) {
		return nil, false
	}

	var params map[string]string
	for i, tseg := range tsegs {
		if name, ok := placeholderName(tseg); ok {
			if params == nil {
				params = make(map[string]string, 2)
			}
			params[name] = segments[i]
			continue
		}
		if !strings.EqualFold(tseg, segments[i]) {
			return nil, false
		}
	}
	if params == nil {
		params = map[string]string{}
	}
	return params, true
}

// placeholderName returns the name of a {name} template segment.
func placeholderName(segment string) (string, bool) {
	if len(segment) > 2 && segment[0] == '{' && segment[len(segment)-1] == '}' {
		return segment[1 : len(segment)-1], true
	}
	return "", false
}

// splitPath splits a path on '/', dropping the empty leading segment and
// a trailing slash so that "/users/" and "/users" compare equal.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

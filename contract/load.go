package contract

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v4"
)

// LoadError reports every structural problem found while loading a
// contract document. Loading is all-or-nothing: a document that produces
// any diagnostic yields no model.
type LoadError struct {
	// Diagnostics lists the problems found, in document order.
	Diagnostics []string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	switch len(e.Diagnostics) {
	case 0:
		return "contract: invalid document"
	case 1:
		return "contract: " + e.Diagnostics[0]
	default:
		return fmt.Sprintf("contract: %s (and %d more problems)", e.Diagnostics[0], len(e.Diagnostics)-1)
	}
}

// LoadFile loads a contract document from a YAML or JSON file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("contract: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse loads a contract document from YAML or JSON bytes.
// It returns a *LoadError listing every structural problem when the
// document is malformed.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &LoadError{Diagnostics: []string{fmt.Sprintf("document is not valid YAML/JSON: %v", err)}}
	}

	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, &LoadError{Diagnostics: []string{"document is empty"}}
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, &LoadError{Diagnostics: []string{"document root must be a mapping"}}
	}

	l := &loader{}
	doc := l.loadDocument(node)
	if len(l.diags) > 0 {
		return nil, &LoadError{Diagnostics: l.diags}
	}
	return doc, nil
}

// loader accumulates diagnostics while walking the source node tree.
type loader struct {
	diags []string
}

func (l *loader) addf(format string, args ...any) {
	l.diags = append(l.diags, fmt.Sprintf(format, args...))
}

// supported HTTP verbs as they appear as path item keys.
var verbKeys = map[string]string{
	"get":     "GET",
	"put":     "PUT",
	"post":    "POST",
	"delete":  "DELETE",
	"options": "OPTIONS",
	"head":    "HEAD",
	"patch":   "PATCH",
	"trace":   "TRACE",
}

func (l *loader) loadDocument(node *yaml.Node) *Document {
	doc := &Document{Schemas: map[string]*Schema{}}
	sawPaths := false

	forEachEntry(node, func(key string, value *yaml.Node) {
		switch key {
		case "info":
			forEachEntry(value, func(k string, v *yaml.Node) {
				switch k {
				case "title":
					doc.Title = v.Value
				case "version":
					doc.Version = v.Value
				}
			})
		case "paths":
			sawPaths = true
			if value.Kind != yaml.MappingNode {
				l.addf("paths must be a mapping")
				return
			}
			forEachEntry(value, func(template string, item *yaml.Node) {
				doc.Paths = append(doc.Paths, l.loadPathEntry(template, item))
			})
		case "components":
			forEachEntry(value, func(k string, v *yaml.Node) {
				if k != "schemas" {
					return
				}
				forEachEntry(v, func(name string, schemaNode *yaml.Node) {
					doc.Schemas[name] = l.loadSchema(schemaNode, "components.schemas."+name)
				})
			})
		}
	})

	if !sawPaths {
		l.addf("document has no paths")
	}
	return doc
}

func (l *loader) loadPathEntry(template string, node *yaml.Node) *PathEntry {
	l.checkTemplate(template)

	entry := &PathEntry{
		Template:   template,
		Operations: map[string]*Operation{},
	}
	forEachEntry(node, func(key string, value *yaml.Node) {
		if verb, ok := verbKeys[strings.ToLower(key)]; ok {
			entry.Operations[verb] = l.loadOperation(value, template+"."+key)
			return
		}
		if key == "parameters" {
			entry.Parameters = l.loadParameters(value, template)
		}
	})
	return entry
}

// checkTemplate validates a path template: leading slash, balanced braces,
// non-empty placeholder names, no duplicate names.
func (l *loader) checkTemplate(template string) {
	if !strings.HasPrefix(template, "/") {
		l.addf("path template %q must start with '/'", template)
		return
	}
	seen := map[string]bool{}
	for _, seg := range strings.Split(template, "/") {
		open := strings.Count(seg, "{")
		closed := strings.Count(seg, "}")
		if open != closed || open > 1 {
			l.addf("path template %q has malformed placeholder in segment %q", template, seg)
			continue
		}
		if open == 0 {
			continue
		}
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			l.addf("path template %q has malformed placeholder in segment %q", template, seg)
			continue
		}
		name := seg[1 : len(seg)-1]
		if name == "" {
			l.addf("path template %q has an empty placeholder", template)
			continue
		}
		if seen[name] {
			l.addf("path template %q declares placeholder %q twice", template, name)
		}
		seen[name] = true
	}
}

func (l *loader) loadOperation(node *yaml.Node, where string) *Operation {
	op := &Operation{Responses: map[string]*Response{}}
	forEachEntry(node, func(key string, value *yaml.Node) {
		switch key {
		case "operationId":
			op.ID = value.Value
		case "parameters":
			op.Parameters = l.loadParameters(value, where)
		case "requestBody":
			op.RequestBody = l.loadRequestBody(value, where)
		case "responses":
			forEachEntry(value, func(code string, respNode *yaml.Node) {
				if !validStatusKey(code) {
					l.addf("%s declares invalid response status %q", where, code)
				}
				op.Responses[code] = l.loadResponse(respNode, where+".responses."+code)
			})
		}
	})
	return op
}

// validStatusKey accepts a concrete status code or the "default" bucket.
func validStatusKey(code string) bool {
	if code == "default" {
		return true
	}
	n, err := strconv.Atoi(code)
	return err == nil && n >= 100 && n <= 599
}

func (l *loader) loadParameters(node *yaml.Node, where string) []*Parameter {
	if node.Kind != yaml.SequenceNode {
		l.addf("%s: parameters must be a sequence", where)
		return nil
	}
	params := make([]*Parameter, 0, len(node.Content))
	for i, item := range node.Content {
		p := &Parameter{}
		forEachEntry(item, func(key string, value *yaml.Node) {
			switch key {
			case "name":
				p.Name = value.Value
			case "in":
				p.In = value.Value
			case "required":
				p.Required = value.Value == "true"
			case "schema":
				p.Schema = l.loadSchema(value, fmt.Sprintf("%s.parameters[%d]", where, i))
			}
		})
		if p.Name == "" {
			l.addf("%s: parameter %d has no name", where, i)
			continue
		}
		switch p.In {
		case InPath, InQuery, InHeader, InCookie:
		default:
			l.addf("%s: parameter %q has invalid location %q", where, p.Name, p.In)
			continue
		}
		params = append(params, p)
	}
	return params
}

func (l *loader) loadRequestBody(node *yaml.Node, where string) *RequestBody {
	rb := &RequestBody{Content: map[string]*Schema{}}
	forEachEntry(node, func(key string, value *yaml.Node) {
		switch key {
		case "required":
			rb.Required = value.Value == "true"
		case "content":
			forEachEntry(value, func(mediaType string, mt *yaml.Node) {
				forEachEntry(mt, func(k string, v *yaml.Node) {
					if k == "schema" {
						rb.Content[mediaType] = l.loadSchema(v, where+".requestBody")
					}
				})
			})
		}
	})
	return rb
}

func (l *loader) loadResponse(node *yaml.Node, where string) *Response {
	resp := &Response{
		Content: map[string]*Schema{},
		Headers: map[string]*Header{},
	}
	forEachEntry(node, func(key string, value *yaml.Node) {
		switch key {
		case "description":
			resp.Description = value.Value
		case "content":
			forEachEntry(value, func(mediaType string, mt *yaml.Node) {
				forEachEntry(mt, func(k string, v *yaml.Node) {
					if k == "schema" {
						resp.Content[mediaType] = l.loadSchema(v, where)
					}
				})
			})
		case "headers":
			forEachEntry(value, func(name string, h *yaml.Node) {
				hdr := &Header{}
				forEachEntry(h, func(k string, v *yaml.Node) {
					switch k {
					case "required":
						hdr.Required = v.Value == "true"
					case "schema":
						hdr.Schema = l.loadSchema(v, where+".headers."+name)
					}
				})
				resp.Headers[name] = hdr
			})
		}
	})
	return resp
}

// schemaTypes is the set of accepted schema type names.
var schemaTypes = map[string]bool{
	"object": true, "array": true, "string": true, "number": true,
	"integer": true, "boolean": true, "null": true,
}

func (l *loader) loadSchema(node *yaml.Node, where string) *Schema {
	if node.Kind != yaml.MappingNode {
		l.addf("%s: schema must be a mapping", where)
		return &Schema{}
	}

	s := &Schema{}
	forEachEntry(node, func(key string, value *yaml.Node) {
		switch key {
		case "$ref":
			s.Ref = value.Value
		case "type":
			if !schemaTypes[value.Value] {
				l.addf("%s: unknown schema type %q", where, value.Value)
			}
			s.Type = value.Value
		case "properties":
			s.Properties = map[string]*Schema{}
			forEachEntry(value, func(name string, prop *yaml.Node) {
				s.Properties[name] = l.loadSchema(prop, where+"."+name)
				s.PropertyOrder = append(s.PropertyOrder, name)
			})
		case "required":
			for _, item := range value.Content {
				s.Required = append(s.Required, item.Value)
			}
		case "items":
			s.Items = l.loadSchema(value, where+".items")
		case "enum":
			for i, item := range value.Content {
				var v any
				if err := item.Decode(&v); err != nil || !isScalar(v) {
					l.addf("%s: enum entry %d is not a scalar", where, i)
					continue
				}
				s.Enum = append(s.Enum, v)
			}
		case "pattern":
			if _, err := regexp.Compile(value.Value); err != nil {
				l.addf("%s: invalid pattern %q: %v", where, value.Value, err)
			}
			s.Pattern = value.Value
		case "minLength":
			s.MinLength = l.intValue(value, where, key)
		case "maxLength":
			s.MaxLength = l.intValue(value, where, key)
		case "minimum":
			s.Minimum = l.floatValue(value, where, key)
		case "maximum":
			s.Maximum = l.floatValue(value, where, key)
		}
	})
	return s
}

func (l *loader) intValue(node *yaml.Node, where, key string) *int {
	n, err := strconv.Atoi(node.Value)
	if err != nil {
		l.addf("%s: %s must be an integer, got %q", where, key, node.Value)
		return nil
	}
	return &n
}

func (l *loader) floatValue(node *yaml.Node, where, key string) *float64 {
	f, err := strconv.ParseFloat(node.Value, 64)
	if err != nil {
		l.addf("%s: %s must be a number, got %q", where, key, node.Value)
		return nil
	}
	return &f
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int64, uint64, float64, nil:
		return true
	}
	return false
}

// forEachEntry invokes fn for every key/value pair of a mapping node, in
// source order. Non-mapping nodes are ignored.
func forEachEntry(node *yaml.Node, fn func(key string, value *yaml.Node)) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		if keyNode.Kind != yaml.ScalarNode {
			continue
		}
		fn(keyNode.Value, node.Content[i+1])
	}
}

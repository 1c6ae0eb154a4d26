package mcpserver

import (
	"context"
	"net/http"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/apiwarden/apiwarden/enforcer"
)

type checkRequestInput struct {
	Contract    contractInput     `json:"contract"               jsonschema:"The contract to validate against"`
	Strict      bool              `json:"strict,omitempty"       jsonschema:"Also flag undeclared query parameters, headers, and body properties"`
	Method      string            `json:"method"                 jsonschema:"HTTP method, e.g. GET"`
	Path        string            `json:"path"                   jsonschema:"Concrete request path, e.g. /users/123"`
	ContentType string            `json:"content_type,omitempty" jsonschema:"Content-Type of the body; defaults to application/json when a body is present"`
	Headers     map[string]string `json:"headers,omitempty"      jsonschema:"Request headers"`
	Query       map[string]string `json:"query,omitempty"        jsonschema:"Query parameters"`
	Body        string            `json:"body,omitempty"         jsonschema:"Raw request body"`
}

type checkResponseInput struct {
	Contract    contractInput     `json:"contract"               jsonschema:"The contract to validate against"`
	Strict      bool              `json:"strict,omitempty"       jsonschema:"Also flag undeclared headers and body properties"`
	Method      string            `json:"method"                 jsonschema:"HTTP method of the originating request"`
	Path        string            `json:"path"                   jsonschema:"Concrete path of the originating request"`
	StatusCode  int               `json:"status_code"            jsonschema:"HTTP response status code"`
	ContentType string            `json:"content_type,omitempty" jsonschema:"Content-Type of the body"`
	Headers     map[string]string `json:"headers,omitempty"      jsonschema:"Response headers"`
	Body        string            `json:"body,omitempty"         jsonschema:"Raw response body"`
}

type checkOutput struct {
	// Valid reports whether the traffic conforms to the contract.
	Valid bool `json:"valid"`

	// Outcome carries the findings when Valid is false.
	Outcome *enforcer.Outcome `json:"outcome,omitempty"`
}

func handleCheckRequest(_ context.Context, _ *mcp.CallToolRequest, input checkRequestInput) (*mcp.CallToolResult, checkOutput, error) {
	e, err := buildEngine(input.Contract, input.Strict)
	if err != nil {
		return errResult(err), checkOutput{}, nil
	}

	query := make(map[string][]string, len(input.Query))
	for name, value := range input.Query {
		query[name] = []string{value}
	}

	outcome := e.ValidateRequest(enforcer.RequestSnapshot{
		Method:      input.Method,
		Path:        input.Path,
		ContentType: input.ContentType,
		Body:        []byte(input.Body),
		Header:      toHeader(input.Headers),
		Query:       query,
	})
	return nil, checkOutput{Valid: outcome == nil, Outcome: outcome}, nil
}

func handleCheckResponse(_ context.Context, _ *mcp.CallToolRequest, input checkResponseInput) (*mcp.CallToolResult, checkOutput, error) {
	e, err := buildEngine(input.Contract, input.Strict)
	if err != nil {
		return errResult(err), checkOutput{}, nil
	}

	outcome := e.ValidateResponse(enforcer.ResponseSnapshot{
		Method:      input.Method,
		Path:        input.Path,
		StatusCode:  input.StatusCode,
		ContentType: input.ContentType,
		Body:        []byte(input.Body),
		Header:      toHeader(input.Headers),
	})
	return nil, checkOutput{Valid: outcome == nil, Outcome: outcome}, nil
}

type summaryInput struct {
	Contract contractInput `json:"contract" jsonschema:"The contract to summarize"`
}

type pathSummary struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
}

type summaryOutput struct {
	Title          string        `json:"title"`
	Version        string        `json:"version"`
	PathCount      int           `json:"path_count"`
	OperationCount int           `json:"operation_count"`
	SchemaCount    int           `json:"schema_count"`
	Paths          []pathSummary `json:"paths"`
}

func handleContractSummary(_ context.Context, _ *mcp.CallToolRequest, input summaryInput) (*mcp.CallToolResult, summaryOutput, error) {
	doc, err := input.Contract.resolve()
	if err != nil {
		return errResult(err), summaryOutput{}, nil
	}

	output := summaryOutput{
		Title:          doc.Title,
		Version:        doc.Version,
		PathCount:      len(doc.Paths),
		OperationCount: doc.OperationCount(),
		SchemaCount:    len(doc.Schemas),
		Paths:          make([]pathSummary, 0, len(doc.Paths)),
	}
	for _, entry := range doc.Paths {
		methods := make([]string, 0, len(entry.Operations))
		for verb := range entry.Operations {
			methods = append(methods, verb)
		}
		sort.Strings(methods)
		output.Paths = append(output.Paths, pathSummary{Path: entry.Template, Methods: methods})
	}
	return nil, output, nil
}

func buildEngine(in contractInput, strict bool) (*enforcer.Enforcer, error) {
	doc, err := in.resolve()
	if err != nil {
		return nil, err
	}
	return enforcer.New(doc, strict)
}

func toHeader(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for name, value := range m {
		h.Set(name, value)
	}
	return h
}

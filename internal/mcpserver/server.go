// Package mcpserver implements an MCP (Model Context Protocol) server
// that exposes apiwarden contract validation as MCP tools over stdio.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/apiwarden/apiwarden"
)

const serverInstructions = `apiwarden MCP server — validates HTTP requests and responses against an OpenAPI-style contract.

Tools:
- check_request: validate one HTTP request (method, path, headers, query, body) against a contract
- check_response: validate one HTTP response (status, headers, body) against a contract
- contract_summary: structural summary of a contract (paths, operations, schemas)

Contracts can be provided as a file path or inline content. Parsed file
contracts are cached per session, keyed by path and modification time, so
repeated checks against the same file stay cheap.`

// Run starts the MCP server over stdio and blocks until the client
// disconnects or the context is cancelled.
func Run(ctx context.Context) error {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "apiwarden", Version: apiwarden.Version()},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)
	registerAllTools(server)
	return server.Run(ctx, &mcp.StdioTransport{})
}

func registerAllTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_request",
		Description: "Validate one HTTP request against an OpenAPI-style contract. Returns the validation outcome: message, ordered findings, and whether the findings are governance-only. Set strict=true to also flag undeclared query parameters, headers, and body properties.",
	}, handleCheckRequest)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_response",
		Description: "Validate one HTTP response against an OpenAPI-style contract. Requires the originating request's method and path plus the response status code. Returns the validation outcome with ordered findings.",
	}, handleCheckResponse)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "contract_summary",
		Description: "Summarize a contract: title, version, declared paths with their methods, and operation/schema counts. Use this before check_request to see what the contract declares.",
	}, handleContractSummary)
}

// errResult creates an MCP error result from an error.
func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

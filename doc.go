// Package apiwarden enforces that live HTTP traffic conforms to a declared
// API contract (an OpenAPI-style specification).
//
// Every request and response is checked against the contract's declared
// paths, operations, parameters, payload schemas, and headers. An optional
// strict mode additionally flags traffic elements that are present but
// never declared anywhere in the contract.
//
// # Overview
//
// The library consists of these packages:
//
//   - contract: Load an API contract document into an immutable in-memory model
//   - enforcer: Validate request/response snapshots against the contract
//   - middleware: net/http interception layer that feeds live traffic to the enforcer
//   - reload: Atomic contract hot-swap and file watching
//   - metrics: Prometheus counters for validation outcomes
//   - config: File/env configuration for the apiwarden binary
//   - logging: slog construction helpers
//
// # Quick Start
//
// Load a contract and validate a request:
//
//	doc, err := contract.LoadFile("openapi.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	enf, err := enforcer.New(doc, false)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome := enf.ValidateRequest(enforcer.RequestSnapshot{
//		Method: "GET",
//		Path:   "/users/123",
//	})
//	if outcome != nil {
//		for _, f := range outcome.Findings {
//			fmt.Println(f)
//		}
//	}
//
// A nil outcome means the traffic conforms to the contract.
//
// # Command Line
//
// The apiwarden binary wraps the library as a validating reverse proxy.
// It is configured through apiwarden.yaml (or --config) and APIWARDEN_*
// environment variables:
//
//	apiwarden serve --config apiwarden.yaml
//
// See cmd/apiwarden for the full command set.
package apiwarden

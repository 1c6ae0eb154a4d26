// Package enforcer validates HTTP traffic snapshots against an API contract.
//
// The enforcer is the core of apiwarden: given a loaded contract document, it
// resolves a concrete request path to a declared operation, validates
// parameters and JSON payloads against the declared schemas, and — in strict
// mode — audits traffic for elements that are present but never declared.
//
// # Features
//
//   - Path resolution: first-match over the contract's declared path order
//   - Parameter validation: presence, primitive types, enum, pattern, length
//   - Schema validation: recursive, accumulating findings, practical subset
//   - Strict mode: undeclared query parameters, headers, and body properties
//   - Outcome classification: one structured outcome per call, nil when clean
//
// # Basic Usage
//
//	doc, _ := contract.LoadFile("openapi.yaml")
//	enf, err := enforcer.New(doc, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	outcome := enf.ValidateRequest(enforcer.RequestSnapshot{
//	    Method:      "POST",
//	    Path:        "/users",
//	    ContentType: "application/json",
//	    Body:        []byte(`{"name":"Ada"}`),
//	})
//	if outcome != nil {
//	    for _, f := range outcome.Findings {
//	        log.Println(f)
//	    }
//	}
//
// # Concurrency
//
// An Enforcer is built once from an immutable contract snapshot and holds no
// per-call mutable state; validation calls are pure and may run concurrently
// without locking. Calls never panic: internal failures are converted into a
// generic "Validation error occurred" outcome.
//
// The enforcer never logs and owns no policy: deciding what to do with an
// outcome (log, count, reject the request) belongs to the caller — see the
// middleware package.
package enforcer

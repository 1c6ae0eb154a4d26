// Package contract loads API contract documents (OpenAPI-style
// specifications) into an immutable in-memory model.
//
// The model is deliberately a practical subset of OpenAPI: path templates,
// per-verb operations, parameter declarations, request/response payload
// schemas, and declared response headers. Schema validation keywords are
// limited to type, properties, required, items, enum, pattern,
// minLength/maxLength, and minimum/maximum.
//
// Two properties of the model matter to consumers:
//
//   - Path entries preserve the declaration order of the source document.
//     Path resolution is first-match over that order.
//   - Object schemas record the declaration order of their properties, so
//     validation walks produce deterministic finding lists.
//
// A Document is built once by [Load], [Parse], or [LoadFile] and never
// mutated afterwards; it is safe for concurrent use. Replacing a contract
// at runtime means loading a new Document and swapping the reference (see
// the reload package).
//
// Loading fails fast: every structural problem found in the source document
// is collected and reported in a single *LoadError.
package contract

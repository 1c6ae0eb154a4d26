// Package middleware intercepts HTTP traffic, materializes request and
// response snapshots, and reports them to the validation engine. The
// wrapped handler always sees an intact body.
//
// By default validation only observes: outcomes are logged and counted
// and traffic flows through untouched. Hard mode rejects non-conforming
// requests before they reach the wrapped handler; responses are already
// on the wire when validated and can never be rewritten.
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apiwarden/apiwarden/enforcer"
	"github.com/apiwarden/apiwarden/metrics"
	"github.com/apiwarden/apiwarden/reload"
)

// RequestIDHeader carries the correlation ID attached to every
// validated exchange.
const RequestIDHeader = "X-Request-ID"

// DefaultMaxBodyBytes caps buffered bodies when no option overrides it.
const DefaultMaxBodyBytes int64 = 10 << 20

// ErrorFormatter renders a request outcome into a rejection response.
// It returns the status code and a payload serialized as JSON.
type ErrorFormatter func(*enforcer.Outcome) (int, any)

type handler struct {
	next     http.Handler
	holder   *reload.Holder
	logger   *slog.Logger
	recorder metrics.Recorder

	hardMode       bool
	hardGovernance bool
	formatter      ErrorFormatter

	skipPrefixes []string
	skipMethods  map[string]bool
	maxBodyBytes int64
}

// Option configures the middleware.
type Option func(*handler)

// WithLogger sets the logger outcomes are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handler) { h.logger = logger }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(h *handler) { h.recorder = rec }
}

// WithHardMode rejects requests whose outcome reports findings.
// Governance-only outcomes still pass through unless governance is
// true.
func WithHardMode(governance bool) Option {
	return func(h *handler) {
		h.hardMode = true
		h.hardGovernance = governance
	}
}

// WithErrorFormatter overrides the hard-mode rejection payload.
func WithErrorFormatter(f ErrorFormatter) Option {
	return func(h *handler) { h.formatter = f }
}

// WithSkipPathPrefixes bypasses validation for matching request paths.
func WithSkipPathPrefixes(prefixes ...string) Option {
	return func(h *handler) { h.skipPrefixes = append(h.skipPrefixes, prefixes...) }
}

// WithSkipMethods bypasses validation for the given HTTP methods.
func WithSkipMethods(methods ...string) Option {
	return func(h *handler) {
		for _, m := range methods {
			h.skipMethods[strings.ToUpper(m)] = true
		}
	}
}

// WithMaxBodyBytes caps the body size buffered for validation. Larger
// bodies flow through unvalidated.
func WithMaxBodyBytes(n int64) Option {
	return func(h *handler) { h.maxBodyBytes = n }
}

// New wraps next with contract validation against the holder's current
// engine snapshot.
func New(next http.Handler, holder *reload.Holder, opts ...Option) http.Handler {
	h := &handler{
		next:         next,
		holder:       holder,
		logger:       slog.New(slog.DiscardHandler),
		recorder:     metrics.Nop{},
		formatter:    ProblemFormatter,
		skipMethods:  map[string]bool{},
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.skip(r) {
		h.next.ServeHTTP(w, r)
		return
	}

	requestID := r.Header.Get(RequestIDHeader)
	generatedID := requestID == ""
	if generatedID {
		requestID = uuid.NewString()
	}
	logger := h.logger.With("request_id", requestID, "method", r.Method, "path", r.URL.Path)

	body, truncated := h.bufferBody(r)
	engine := h.holder.Get()

	var reqOutcome *enforcer.Outcome
	if truncated {
		logger.Warn("request body exceeds validation buffer, skipping validation",
			"limit_bytes", h.maxBodyBytes)
	} else {
		start := time.Now()
		reqOutcome = engine.ValidateRequest(enforcer.RequestSnapshot{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
			Header:      r.Header,
			Query:       r.URL.Query(),
		})
		h.observe("request", reqOutcome, time.Since(start), logger)
	}

	if reqOutcome != nil && h.reject(reqOutcome) {
		status, payload := h.formatter(reqOutcome)
		w.Header().Set("Content-Type", "application/problem+json")
		w.Header().Set(RequestIDHeader, requestID)
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("writing rejection response", "error", err)
		}
		return
	}

	// The generated ID is attached only after the snapshot is taken, so
	// validation sees the headers exactly as the client sent them.
	if generatedID {
		r.Header.Set(RequestIDHeader, requestID)
	}

	rec := newResponseRecorder(w, h.maxBodyBytes)
	h.next.ServeHTTP(rec, r)

	if rec.truncated {
		logger.Warn("response body exceeds validation buffer, skipping validation",
			"limit_bytes", h.maxBodyBytes)
		return
	}

	start := time.Now()
	respOutcome := engine.ValidateResponse(enforcer.ResponseSnapshot{
		Method:      r.Method,
		Path:        r.URL.Path,
		StatusCode:  rec.statusCode,
		ContentType: rec.Header().Get("Content-Type"),
		Body:        rec.body.Bytes(),
		Header:      rec.Header(),
	})
	h.observe("response", respOutcome, time.Since(start),
		logger.With("status_code", rec.statusCode))
}

// skip reports whether the request bypasses validation entirely.
func (h *handler) skip(r *http.Request) bool {
	if h.skipMethods[r.Method] {
		return true
	}
	for _, prefix := range h.skipPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// bufferBody reads the request body up to the configured cap and
// restores it for the next handler. truncated reports the body exceeded
// the cap; the handler still receives the full stream.
func (h *handler) bufferBody(r *http.Request) (body []byte, truncated bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, false
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodyBytes+1))
	if err != nil {
		r.Body = io.NopCloser(bytes.NewReader(buf))
		return nil, true
	}
	if int64(len(buf)) > h.maxBodyBytes {
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
		return nil, true
	}
	r.Body = io.NopCloser(bytes.NewReader(buf))
	return buf, false
}

// reject reports whether a request outcome short-circuits in hard mode.
// Engine-error outcomes always fail open.
func (h *handler) reject(o *enforcer.Outcome) bool {
	if !h.hardMode || o.Details != "" {
		return false
	}
	if o.GovernanceOnly {
		return h.hardGovernance
	}
	return true
}

// observe logs and counts one validation outcome.
func (h *handler) observe(direction string, o *enforcer.Outcome, d time.Duration, logger *slog.Logger) {
	switch {
	case o == nil:
		h.recorder.ObserveValidation(direction, "pass", d)
		return
	case o.Details != "":
		h.recorder.ObserveValidation(direction, "error", d)
		logger.Error("validation engine error", "detail", o.Details)
		return
	case o.GovernanceOnly:
		h.recorder.ObserveValidation(direction, "governance", d)
	default:
		h.recorder.ObserveValidation(direction, "fail", d)
	}

	functional, governance := 0, 0
	for _, f := range o.Findings {
		if enforcer.IsGovernanceFinding(f) {
			governance++
		} else {
			functional++
		}
	}
	if functional > 0 {
		h.recorder.ObserveFindings(direction, "functional", functional)
	}
	if governance > 0 {
		h.recorder.ObserveFindings(direction, "governance", governance)
	}

	logger.Warn(o.Message,
		"direction", direction,
		"governance_only", o.GovernanceOnly,
		"findings", o.Findings)
}

// Problem is the default RFC 7807 rejection payload.
type Problem struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Status   int      `json:"status"`
	Detail   string   `json:"detail,omitempty"`
	Findings []string `json:"findings"`
}

// ProblemFormatter renders a request outcome as an RFC 7807 problem
// document with status 400.
func ProblemFormatter(o *enforcer.Outcome) (int, any) {
	return http.StatusBadRequest, Problem{
		Type:     "about:blank",
		Title:    o.Message,
		Status:   http.StatusBadRequest,
		Findings: o.Findings,
	}
}

// responseRecorder captures the response stream for validation while
// passing it through to the client.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
	maxBytes   int64
	truncated  bool
}

func newResponseRecorder(w http.ResponseWriter, maxBytes int64) *responseRecorder {
	return &responseRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		maxBytes:       maxBytes,
	}
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.truncated {
		if int64(r.body.Len()+len(b)) > r.maxBytes {
			r.truncated = true
			r.body.Reset()
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

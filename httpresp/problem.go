package httpresp

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ProblemDetails is an RFC 7807 "application/problem+json" body, the shape
// spec.md §7 requires for every parse, routing, and validation failure so
// clients see a single consistent error envelope regardless of which layer
// rejected the request.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance"`
}

// problemTitles precomputes the title text for the status codes the
// connection driver and router actually produce, avoiding a StatusText call
// (and its larger switch) on the request path for the common cases.
var problemTitles = map[int]string{
	400: "Bad Request",
	401: "Unauthorized",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	413: "Payload Too Large",
	415: "Unsupported Media Type",
	500: "Internal Server Error",
}

// NewProblem builds a ProblemDetails for status, with detail as the
// human-readable explanation and instance identifying this particular
// occurrence. instance is typically a correlation ID minted by NewInstanceID.
func NewProblem(status int, detail, instance string) *ProblemDetails {
	title, ok := problemTitles[status]
	if !ok {
		title = StatusText(status)
	}
	return &ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// NewInstanceID mints a correlation ID for a ProblemDetails' instance field,
// grounded on the goceleris-benchmarks repo's request-ID pattern
// (uuid.New().String()[:8]) — Ember keeps the full UUID since a problem
// instance is meant to be globally unique and independently greppable in
// logs, not just disambiguate concurrent requests on one node.
func NewInstanceID() string {
	return uuid.NewString()
}

// Response renders the problem as a Response with the
// application/problem+json content type RFC 7807 mandates.
func (pd *ProblemDetails) Response() *Response {
	body, err := json.Marshal(pd)
	if err != nil {
		body = []byte(`{"title":"Internal Server Error","status":500}`)
	}
	r := New(pd.Status)
	r.Headers.Set("Content-Type", "application/problem+json")
	r.Body = body
	return r
}

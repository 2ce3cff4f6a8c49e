package model

// QueryMode selects how a clinical query is assembled before it is sent
// to the reasoning service.
type QueryMode string

const (
	// QueryModeQuick sends a free-text question verbatim.
	QueryModeQuick QueryMode = "quick"
	// QueryModeDiagnosis sends the fully assembled patient document.
	QueryModeDiagnosis QueryMode = "diagnosis"
)

// ClinicalQuery is the text actually submitted to the reasoning service.
// Immutable once built.
type ClinicalQuery struct {
	Text string
	Mode QueryMode
}

// ResponseTag classifies a reasoning service answer. The upstream service
// encodes its condition inside the natural-language answer, so the tag is
// derived from marker substrings rather than a status code.
type ResponseTag string

const (
	TagSuccess            ResponseTag = "success"
	TagServiceUnavailable ResponseTag = "service_unavailable"
	TagRateLimited        ResponseTag = "rate_limited"
	TagSystemError        ResponseTag = "system_error"
)

// Degraded reports whether the answer arrived but signals that the
// upstream could not fully process the request.
func (t ResponseTag) Degraded() bool {
	return t == TagServiceUnavailable || t == TagRateLimited
}

// ReasoningResponse is the raw reply from the reasoning service.
type ReasoningResponse struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources,omitempty"`
	Disclaimer string   `json:"disclaimer,omitempty"`
}

// ClassifiedResponse pairs the untouched answer text with its tag.
type ClassifiedResponse struct {
	Tag    ResponseTag
	Answer string
}

// Package classifier tags reasoning service answers. The upstream encodes
// its condition as a marker substring inside the natural-language answer,
// so classification is substring detection, never parsing or rewriting of
// the answer body. Keeping the matching strategy behind this package lets
// it be swapped for a structured status code without touching callers.
package classifier

import (
	"strings"

	"github.com/tbnow/screening-api/internal/model"
)

// Marker substrings emitted by the reasoning service, checked in priority
// order: first match wins.
const (
	MarkerServiceUnavailable = "⚠️ **Layanan AI sementara tidak tersedia**"
	MarkerRateLimited        = "⚠️ **Batas permintaan tercapai**"
	MarkerSystemError        = "⚠️ **Kesalahan sistem**"
)

var markerPriority = []struct {
	marker string
	tag    model.ResponseTag
}{
	{MarkerServiceUnavailable, model.TagServiceUnavailable},
	{MarkerRateLimited, model.TagRateLimited},
	{MarkerSystemError, model.TagSystemError},
}

// Classify inspects answerText for the known markers and returns the
// answer untouched together with its tag. Absence of all markers means
// success.
func Classify(answerText string) model.ClassifiedResponse {
	for _, m := range markerPriority {
		if strings.Contains(answerText, m.marker) {
			return model.ClassifiedResponse{Tag: m.tag, Answer: answerText}
		}
	}
	return model.ClassifiedResponse{Tag: model.TagSuccess, Answer: answerText}
}

package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrMalformedReply means the completion is missing the structured markers.
// Callers are expected to pass the raw text through and keep the stored
// summary unchanged.
var ErrMalformedReply = errors.New("reply missing structured markers")

// StructuredReply is the parsed two-field generation output.
type StructuredReply struct {
	Response string
	Summary  string
}

// ParseStructuredReply extracts the RESPONSE:/SUMMARY: fields from a raw
// completion. The response is the text strictly between the first occurrence
// of ResponseMarker and the first occurrence of SummaryMarker after it; the
// summary is everything after that. Both are trimmed. A missing marker yields
// ErrMalformedReply.
func ParseStructuredReply(raw string) (StructuredReply, error) {
	i := strings.Index(raw, ResponseMarker)
	if i < 0 {
		return StructuredReply{}, ErrMalformedReply
	}
	rest := raw[i+len(ResponseMarker):]
	j := strings.Index(rest, SummaryMarker)
	if j < 0 {
		return StructuredReply{}, ErrMalformedReply
	}
	return StructuredReply{
		Response: strings.TrimSpace(rest[:j]),
		Summary:  strings.TrimSpace(rest[j+len(SummaryMarker):]),
	}, nil
}

// ValidateTZ checks that tz is a valid IANA location and returns its
// canonical name.
func ValidateTZ(tz string) (string, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(tz))
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}

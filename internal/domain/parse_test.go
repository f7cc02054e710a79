package domain

import (
	"errors"
	"testing"
)

func TestParseStructuredReply_WellFormed(t *testing.T) {
	got, err := ParseStructuredReply("RESPONSE: hi\nSUMMARY: greeted")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Response != "hi" {
		t.Fatalf("response: want %q, got %q", "hi", got.Response)
	}
	if got.Summary != "greeted" {
		t.Fatalf("summary: want %q, got %q", "greeted", got.Summary)
	}
}

func TestParseStructuredReply_LeadingChatter(t *testing.T) {
	raw := "Sure! Here you go:\nRESPONSE:  Hello there, how was your day?  \nSUMMARY:  User said hello.  \n"
	got, err := ParseStructuredReply(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Response != "Hello there, how was your day?" {
		t.Fatalf("response not trimmed: %q", got.Response)
	}
	if got.Summary != "User said hello." {
		t.Fatalf("summary not trimmed: %q", got.Summary)
	}
}

func TestParseStructuredReply_MissingMarkers(t *testing.T) {
	for _, raw := range []string{
		"no markers here",
		"RESPONSE: only a response",
		"SUMMARY: only a summary",
		// summary before response: no SUMMARY after the RESPONSE marker
		"SUMMARY: first\nRESPONSE: second",
		"",
	} {
		if _, err := ParseStructuredReply(raw); !errors.Is(err, ErrMalformedReply) {
			t.Fatalf("input %q: want ErrMalformedReply, got %v", raw, err)
		}
	}
}

func TestParseStructuredReply_MarkerInsideResponse(t *testing.T) {
	// A second RESPONSE: inside the body belongs to the response text.
	raw := "RESPONSE: I would say RESPONSE: is a funny word\nSUMMARY: wordplay"
	got, err := ParseStructuredReply(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Response != "I would say RESPONSE: is a funny word" {
		t.Fatalf("response: %q", got.Response)
	}
	if got.Summary != "wordplay" {
		t.Fatalf("summary: %q", got.Summary)
	}
}

func TestValidateTZ(t *testing.T) {
	if tz, err := ValidateTZ("Asia/Kolkata"); err != nil || tz != "Asia/Kolkata" {
		t.Fatalf("want Asia/Kolkata, got %q (%v)", tz, err)
	}
	if tz, err := ValidateTZ(" Europe/London "); err != nil || tz != "Europe/London" {
		t.Fatalf("want trimmed Europe/London, got %q (%v)", tz, err)
	}
	if _, err := ValidateTZ("Narnia/Lantern"); err == nil {
		t.Fatal("want error for unknown zone")
	}
}

package intake

import (
	"strings"
	"testing"
	"time"
)

func TestParseEvent(t *testing.T) {
	payload := []byte(`{
		"type": "storage.object.v1.finalized",
		"time": "2026-08-25T10:15:00Z",
		"data": {"bucket": "discovery-raw", "name": "caseA/interview.wav"}
	}`)

	ev, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Type != EventTypeFinalized {
		t.Fatalf("type = %q", ev.Type)
	}
	if ev.Bucket != "discovery-raw" || ev.Name != "caseA/interview.wav" {
		t.Fatalf("event = %+v", ev)
	}
	want := time.Date(2026, 8, 25, 10, 15, 0, 0, time.UTC)
	if !ev.OccurredAt.Equal(want) {
		t.Fatalf("occurred at = %v, want %v", ev.OccurredAt, want)
	}
}

func TestParseEventDefaultsMissingTime(t *testing.T) {
	payload := []byte(`{"type": "storage.object.v1.finalized", "data": {"bucket": "b", "name": "c/f.txt"}}`)
	ev, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.OccurredAt.IsZero() {
		t.Fatal("occurred at not defaulted")
	}
}

func TestParseEventRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", `{{{`},
		{"missing type", `{"data": {"bucket": "b", "name": "n"}}`},
		{"finalized without name", `{"type": "storage.object.v1.finalized", "data": {"bucket": "b"}}`},
		{"finalized without bucket", `{"type": "storage.object.v1.finalized", "data": {"name": "c/f"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseEvent([]byte(tc.payload)); err == nil {
				t.Fatal("ParseEvent succeeded, want error")
			}
		})
	}
}

func TestParseEventAllowsOtherTypesWithoutData(t *testing.T) {
	// Non-finalized notifications are parsed so the router can ignore them.
	ev, err := ParseEvent([]byte(`{"type": "storage.object.v1.deleted"}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Type == EventTypeFinalized {
		t.Fatal("type mangled")
	}
}

func TestEventURI(t *testing.T) {
	ev := Event{Bucket: "discovery-raw", Name: "caseA/interview.wav"}
	if got := ev.URI(); !strings.HasPrefix(got, "s3://discovery-raw/") {
		t.Fatalf("URI = %q", got)
	}
}

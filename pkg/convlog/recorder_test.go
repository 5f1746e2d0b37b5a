package convlog

import (
	"encoding/json"
	"testing"
	"time"
)

// fakeClock returns a clock that starts at a fixed instant and advances by
// step on every call after the first.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	first := true
	return func() time.Time {
		if first {
			first = false
			return current
		}
		current = current.Add(step)
		return current
	}
}

func TestAppendFirstEventHasNilDelta(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	r := NewRecorder("sess-1", "model-a", "https://example.test", WithClock(fakeClock(start, 500*time.Millisecond)))

	first := r.Append(KindSpeechStarted, SpeakerUser, "Caller started speaking", nil)
	if first.SincePrevious != nil {
		t.Errorf("first event SincePrevious = %v, want nil", *first.SincePrevious)
	}

	second := r.Append(KindSpeechStopped, SpeakerUser, "Caller stopped speaking", nil)
	if second.SincePrevious == nil {
		t.Fatal("second event SincePrevious = nil, want value")
	}
	if *second.SincePrevious != 0.5 {
		t.Errorf("second event SincePrevious = %v, want 0.5", *second.SincePrevious)
	}
}

func TestAppendElapsedMonotonic(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	r := NewRecorder("sess-1", "", "", WithClock(fakeClock(start, 250*time.Millisecond)))

	for i := 0; i < 5; i++ {
		r.Append(KindOther, SpeakerSystem, "", nil)
	}

	events := r.Snapshot()
	prev := -1.0
	for i, evt := range events {
		if evt.Elapsed < prev {
			t.Errorf("event %d: elapsed %v < previous %v", i, evt.Elapsed, prev)
		}
		prev = evt.Elapsed
	}
	if events[4].Elapsed != 1.25 {
		t.Errorf("last elapsed = %v, want 1.25", events[4].Elapsed)
	}
}

func TestAppendNilMetadataBecomesEmptyMap(t *testing.T) {
	r := NewRecorder("sess-1", "", "")
	evt := r.Append(KindTranscript, SpeakerAssistant, "hello", nil)
	if evt.Metadata == nil {
		t.Error("Metadata = nil, want empty map")
	}
}

func TestDocumentFields(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	r := NewRecorder("sess-42", "gpt-4o-realtime", "https://example.test",
		WithClock(fakeClock(start, time.Second)))

	r.Append(KindSpeechStarted, SpeakerUser, "Caller started speaking", nil)
	r.Append(KindTranscript, SpeakerUser, "hi there", nil)

	doc := r.Document()
	if doc.SessionID != "sess-42" {
		t.Errorf("SessionID = %q, want %q", doc.SessionID, "sess-42")
	}
	if !doc.SessionStart.Equal(start) {
		t.Errorf("SessionStart = %v, want %v", doc.SessionStart, start)
	}
	if doc.TotalEvents != 2 {
		t.Errorf("TotalEvents = %d, want 2", doc.TotalEvents)
	}
	if doc.Model != "gpt-4o-realtime" {
		t.Errorf("Model = %q", doc.Model)
	}
	if doc.DurationSeconds != 3.0 {
		t.Errorf("DurationSeconds = %v, want 3.0", doc.DurationSeconds)
	}
	if len(doc.Conversation) != 2 {
		t.Fatalf("Conversation length = %d, want 2", len(doc.Conversation))
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := NewRecorder("sess-1", "", "")
	r.Append(KindTranscript, SpeakerUser, "original", nil)

	snap := r.Snapshot()
	snap[0].Text = "mutated"

	if r.Snapshot()[0].Text != "original" {
		t.Error("mutating a snapshot changed the recorder's events")
	}
}

func TestDocumentJSONShape(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	r := NewRecorder("abcdef1234567890", "m", "e", WithClock(fakeClock(start, time.Second)))
	r.Append(KindTranscript, SpeakerUser, "hello", nil)
	r.Append(KindTranscript, SpeakerAssistant, "hi", nil)

	data, err := json.Marshal(r.Document())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"session_id", "session_start", "session_duration_seconds", "total_events", "model", "endpoint", "conversation"} {
		if _, ok := m[key]; !ok {
			t.Errorf("document JSON missing key %q", key)
		}
	}

	events := m["conversation"].([]any)
	first := events[0].(map[string]any)
	if first["event_type"] != "transcript" {
		t.Errorf("event_type = %v, want transcript", first["event_type"])
	}
	if v, ok := first["time_since_last_event"]; !ok || v != nil {
		t.Errorf("first event time_since_last_event = %v, want explicit null", v)
	}
	second := events[1].(map[string]any)
	if second["time_since_last_event"] != 1.0 {
		t.Errorf("second event time_since_last_event = %v, want 1.0", second["time_since_last_event"])
	}
}

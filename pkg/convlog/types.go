// Package convlog defines the conversation-timing log shared by the media
// relay and the analyzer tooling.
//
// A [Recorder] accumulates timestamped, speaker-attributed [Event] values in
// arrival order during a live session. At session end the recorder produces a
// [Document] — the single structured record that is handed to persistence
// sinks and later consumed by the analyzer CLI.
package convlog

import "time"

// EventKind classifies a recorded conversation event.
type EventKind string

const (
	// KindSpeechStarted marks the moment voice activity detection fired for
	// caller speech.
	KindSpeechStarted EventKind = "speech_started"

	// KindSpeechStopped marks the end of detected caller speech.
	KindSpeechStopped EventKind = "speech_stopped"

	// KindTranscript carries a completed transcript for one utterance.
	KindTranscript EventKind = "transcript"

	// KindOther is any recorded event that does not fit the kinds above.
	KindOther EventKind = "other"
)

// Speaker attributes an event to a conversation participant.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

// Event is a single entry in the conversation timeline. Events are appended
// in arrival order and never mutated afterwards; Elapsed and SincePrevious
// are derived at append time from the recorder's clock.
type Event struct {
	// Timestamp is the wall-clock time the event was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Elapsed is the number of seconds since session start, rounded to
	// millisecond precision. Non-decreasing across the event list.
	Elapsed float64 `json:"elapsed_seconds"`

	// SincePrevious is the number of seconds since the previously recorded
	// event. Nil for the first event of a session.
	SincePrevious *float64 `json:"time_since_last_event"`

	// Kind classifies the event.
	Kind EventKind `json:"event_type"`

	// Speaker attributes the event.
	Speaker Speaker `json:"speaker"`

	// Text is the transcript text or a short event description.
	Text string `json:"text"`

	// Metadata carries kind-specific detail such as audio_start_ms, item_id,
	// or response_id. Never nil in a recorded event.
	Metadata map[string]any `json:"metadata"`
}

// Document is the persisted form of a full session log. Field names match
// the on-disk JSON consumed by the analyzer.
type Document struct {
	SessionID       string    `json:"session_id"`
	SessionStart    time.Time `json:"session_start"`
	DurationSeconds float64   `json:"session_duration_seconds"`
	TotalEvents     int       `json:"total_events"`
	Model           string    `json:"model"`
	Endpoint        string    `json:"endpoint"`
	Conversation    []Event   `json:"conversation"`
}

// Package relay bridges a caller-facing media WebSocket and the Voice Live
// realtime service, relaying audio and control events in both directions
// while preserving conversational timing semantics (barge-in, turn
// boundaries, transcript ordering).
//
// A [Session] owns the upstream link, the bounded outbound queue, and the
// two pump goroutines (sender and receiver). The receiver drives the
// [EventDispatcher], which reacts to inbound event kinds: stop-audio
// signaling on caller speech onset, transcript forwarding, audio-delta
// relay through the [AudioPacer], and conversation-log recording.
package relay

import "encoding/json"

// EventKind is the closed set of inbound Voice Live event kinds the
// dispatcher reacts to. Unknown wire strings map to [EventUnrecognized].
type EventKind int

const (
	EventUnrecognized EventKind = iota
	EventSessionCreated
	EventInputAudioBufferCleared
	EventSpeechStarted
	EventSpeechStopped
	EventTranscriptionCompleted
	EventTranscriptionFailed
	EventResponseDone
	EventResponseTranscriptDone
	EventResponseAudioDelta
	EventError
)

// wireKinds is the single bidirectional mapping between EventKind variants
// and their wire strings. Dispatch logic never touches wire literals
// directly.
var wireKinds = map[EventKind]string{
	EventSessionCreated:          "session.created",
	EventInputAudioBufferCleared: "input_audio_buffer.cleared",
	EventSpeechStarted:           "input_audio_buffer.speech_started",
	EventSpeechStopped:           "input_audio_buffer.speech_stopped",
	EventTranscriptionCompleted:  "conversation.item.input_audio_transcription.completed",
	EventTranscriptionFailed:     "conversation.item.input_audio_transcription.failed",
	EventResponseDone:            "response.done",
	EventResponseTranscriptDone:  "response.audio_transcript.done",
	EventResponseAudioDelta:      "response.audio.delta",
	EventError:                   "error",
}

// kindsByWire is the inverse of wireKinds, built once at init.
var kindsByWire = func() map[string]EventKind {
	m := make(map[string]EventKind, len(wireKinds))
	for k, w := range wireKinds {
		m[w] = k
	}
	return m
}()

// eventKindFromWire maps a wire type string to its EventKind, or
// [EventUnrecognized] for unknown strings.
func eventKindFromWire(s string) EventKind {
	if k, ok := kindsByWire[s]; ok {
		return k
	}
	return EventUnrecognized
}

// Wire returns the wire string for k, or the empty string for
// [EventUnrecognized].
func (k EventKind) Wire() string { return wireKinds[k] }

// ── Inbound messages (Voice Live → relay) ─────────────────────────────────────

// serverEvent is the decoded envelope of one inbound Voice Live message.
// Fields are kind-specific; only those relevant to the event's kind are set.
type serverEvent struct {
	Type string `json:"type"`

	// input_audio_buffer.speech_started
	AudioStartMs *int64 `json:"audio_start_ms,omitempty"`

	// conversation.item.input_audio_transcription.completed /
	// response.audio_transcript.done
	Transcript string `json:"transcript,omitempty"`
	ItemID     string `json:"item_id,omitempty"`

	// response.audio.delta
	Delta      string `json:"delta,omitempty"`
	ResponseID string `json:"response_id,omitempty"`

	// session.created
	Session *sessionInfo `json:"session,omitempty"`

	// response.done
	Response *responseInfo `json:"response,omitempty"`

	// error / transcription failed
	Error json.RawMessage `json:"error,omitempty"`
}

type sessionInfo struct {
	ID string `json:"id"`
}

type responseInfo struct {
	ID            string          `json:"id"`
	StatusDetails json.RawMessage `json:"status_details,omitempty"`
}

// ── Outbound messages (relay → Voice Live) ────────────────────────────────────

type sessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	Instructions               string              `json:"instructions,omitempty"`
	TurnDetection              *turnDetection      `json:"turn_detection,omitempty"`
	InputAudioTranscription    *audioTranscription `json:"input_audio_transcription,omitempty"`
	InputAudioNoiseReduction   *typedOption        `json:"input_audio_noise_reduction,omitempty"`
	InputAudioEchoCancellation *typedOption        `json:"input_audio_echo_cancellation,omitempty"`
	Voice                      *voiceParams        `json:"voice,omitempty"`
}

type turnDetection struct {
	Type              string          `json:"type"`
	Threshold         float64         `json:"threshold,omitempty"`
	PrefixPaddingMs   int             `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int             `json:"silence_duration_ms,omitempty"`
	RemoveFillerWords bool            `json:"remove_filler_words"`
	EndOfUtterance    *endOfUtterance `json:"end_of_utterance_detection,omitempty"`
}

type endOfUtterance struct {
	Model          string  `json:"model,omitempty"`
	Threshold      float64 `json:"threshold,omitempty"`
	TimeoutSeconds float64 `json:"timeout,omitempty"`
}

type audioTranscription struct {
	Model string `json:"model"`
}

type typedOption struct {
	Type string `json:"type"`
}

type voiceParams struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Temperature float64 `json:"temperature,omitempty"`
}

type responseCreateMessage struct {
	Type string `json:"type"`
}

type appendAudioMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"` // base64-encoded PCM16
}

// ── Downstream frames (relay → caller channel, structured mode) ───────────────

// frameAudioPayload carries base64 audio in an AudioData frame.
type frameAudioPayload struct {
	Data string `json:"Data"`
}

// streamFrame is the structured control frame for AudioData and StopAudio.
// The unused pointer field is serialised as an explicit null, matching the
// caller channel's expected shape.
type streamFrame struct {
	Kind      string             `json:"Kind"`
	AudioData *frameAudioPayload `json:"AudioData"`
	StopAudio *struct{}          `json:"StopAudio"`
}

// transcriptionFrame forwards a completed assistant transcript to the caller
// channel for captioning.
type transcriptionFrame struct {
	Kind string `json:"Kind"`
	Text string `json:"Text"`
}

// ── Caller frames (caller channel → relay, structured mode) ───────────────────

// callerFrame is one inbound structured frame from the caller channel.
type callerFrame struct {
	Kind      string           `json:"kind"`
	AudioData *callerAudioData `json:"audioData"`
}

// callerAudioData carries caller audio. Silent is a pointer so that a frame
// lacking the field is treated as silent and dropped rather than forwarded.
type callerAudioData struct {
	Silent *bool  `json:"silent"`
	Data   string `json:"data"`
}

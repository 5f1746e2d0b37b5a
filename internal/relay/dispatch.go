package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/observe"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/convlog"
)

// EventDispatcher consumes inbound Voice Live messages, classifies them by
// kind, and drives the side effects: stop-audio signaling on caller speech
// onset, transcript recording and forwarding, audio-delta relay through the
// pacer, and observability.
//
// Dispatch is called exclusively from the session's receiver pump, one
// message at a time, so the pacer state and recorder appends are never
// raced.
type EventDispatcher struct {
	recorder   *convlog.Recorder
	pacer      *AudioPacer
	downstream DownstreamLink
	rawAudio   bool
	metrics    *observe.Metrics
	log        *slog.Logger

	handlers map[EventKind]func(context.Context, *serverEvent)
}

// newEventDispatcher builds the dispatcher with its total kind→handler
// mapping. Every known EventKind has an entry; EventUnrecognized is the
// observability-only fallback.
func newEventDispatcher(recorder *convlog.Recorder, pacer *AudioPacer, downstream DownstreamLink, rawAudio bool, metrics *observe.Metrics, log *slog.Logger) *EventDispatcher {
	d := &EventDispatcher{
		recorder:   recorder,
		pacer:      pacer,
		downstream: downstream,
		rawAudio:   rawAudio,
		metrics:    metrics,
		log:        log,
	}
	d.handlers = map[EventKind]func(context.Context, *serverEvent){
		EventSessionCreated:          d.handleSessionCreated,
		EventInputAudioBufferCleared: d.handleBufferCleared,
		EventSpeechStarted:           d.handleSpeechStarted,
		EventSpeechStopped:           d.handleSpeechStopped,
		EventTranscriptionCompleted:  d.handleTranscriptionCompleted,
		EventTranscriptionFailed:     d.handleTranscriptionFailed,
		EventResponseDone:            d.handleResponseDone,
		EventResponseTranscriptDone:  d.handleResponseTranscriptDone,
		EventResponseAudioDelta:      d.handleAudioDelta,
		EventError:                   d.handleErrorEvent,
		EventUnrecognized:            d.handleUnrecognized,
	}
	return d
}

// Dispatch decodes and reacts to one inbound message. Malformed payloads are
// logged and skipped; a single bad message never terminates the receive
// loop.
func (d *EventDispatcher) Dispatch(ctx context.Context, data []byte) {
	start := time.Now()

	var evt serverEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		d.metrics.ProtocolErrors.Add(ctx, 1)
		d.log.Warn("skipping malformed upstream message", "err", err)
		return
	}

	kind := eventKindFromWire(evt.Type)
	d.metrics.RecordUpstreamEvent(ctx, evt.Type)

	d.handlers[kind](ctx, &evt)

	d.metrics.DispatchDuration.Record(ctx, time.Since(start).Seconds())
}

// ── Per-kind handlers ─────────────────────────────────────────────────────────

func (d *EventDispatcher) handleSessionCreated(_ context.Context, evt *serverEvent) {
	id := ""
	if evt.Session != nil {
		id = evt.Session.ID
	}
	d.log.Info("upstream session created", "upstream_session_id", id)
}

func (d *EventDispatcher) handleBufferCleared(_ context.Context, _ *serverEvent) {
	d.log.Info("input audio buffer cleared")
}

// handleSpeechStarted implements caller barge-in: the stop-audio frame goes
// out immediately, without waiting for any upstream acknowledgment, so
// assistant playback halts as soon as the caller starts talking.
func (d *EventDispatcher) handleSpeechStarted(ctx context.Context, evt *serverEvent) {
	meta := map[string]any{}
	if evt.AudioStartMs != nil {
		meta["audio_start_ms"] = *evt.AudioStartMs
	}
	d.recorder.Append(convlog.KindSpeechStarted, convlog.SpeakerUser, "Caller started speaking", meta)
	d.log.Info("caller speech detected", "audio_start_ms", evt.AudioStartMs)

	d.metrics.Interruptions.Add(ctx, 1)
	d.sendStopAudio(ctx)
}

func (d *EventDispatcher) handleSpeechStopped(_ context.Context, _ *serverEvent) {
	d.recorder.Append(convlog.KindSpeechStopped, convlog.SpeakerUser, "Caller stopped speaking", nil)
	d.log.Info("caller speech stopped")
}

func (d *EventDispatcher) handleTranscriptionCompleted(_ context.Context, evt *serverEvent) {
	d.recorder.Append(convlog.KindTranscript, convlog.SpeakerUser, evt.Transcript, map[string]any{
		"item_id": evt.ItemID,
	})
	d.log.Info("caller transcript", "text", evt.Transcript)
}

func (d *EventDispatcher) handleTranscriptionFailed(_ context.Context, evt *serverEvent) {
	d.log.Warn("caller transcription failed", "error", string(evt.Error))
}

func (d *EventDispatcher) handleResponseDone(_ context.Context, evt *serverEvent) {
	if evt.Response == nil {
		d.log.Info("response done")
		return
	}
	if len(evt.Response.StatusDetails) > 0 {
		d.log.Info("response done", "response_id", evt.Response.ID, "status_details", string(evt.Response.StatusDetails))
		return
	}
	d.log.Info("response done", "response_id", evt.Response.ID)
}

func (d *EventDispatcher) handleResponseTranscriptDone(ctx context.Context, evt *serverEvent) {
	d.recorder.Append(convlog.KindTranscript, convlog.SpeakerAssistant, evt.Transcript, map[string]any{
		"response_id": evt.ResponseID,
		"item_id":     evt.ItemID,
	})
	d.log.Info("assistant transcript", "text", evt.Transcript)

	frame, err := json.Marshal(transcriptionFrame{Kind: "Transcription", Text: evt.Transcript})
	if err != nil {
		return
	}
	d.sendText(ctx, frame)
}

// handleAudioDelta is the hot path: decode the delta, apply first-chunk
// padding through the pacer, and forward in the channel's audio mode.
func (d *EventDispatcher) handleAudioDelta(ctx context.Context, evt *serverEvent) {
	audio, err := base64.StdEncoding.DecodeString(evt.Delta)
	if err != nil {
		d.metrics.ProtocolErrors.Add(ctx, 1)
		d.log.Warn("skipping undecodable audio delta", "response_id", evt.ResponseID, "err", err)
		return
	}

	audio = d.pacer.Pace(evt.ResponseID, audio)
	d.metrics.AudioDeltaBytes.Add(ctx, int64(len(audio)))

	if d.rawAudio {
		if err := d.downstream.SendBinary(ctx, audio); err != nil {
			d.recordSendError(ctx, err)
		}
		return
	}

	frame, err := json.Marshal(streamFrame{
		Kind:      "AudioData",
		AudioData: &frameAudioPayload{Data: base64.StdEncoding.EncodeToString(audio)},
	})
	if err != nil {
		return
	}
	d.sendText(ctx, frame)
}

func (d *EventDispatcher) handleErrorEvent(_ context.Context, evt *serverEvent) {
	// Upstream application errors are recovered locally; only transport
	// failures end the session.
	d.log.Error("upstream error event", "error", string(evt.Error))
}

func (d *EventDispatcher) handleUnrecognized(_ context.Context, evt *serverEvent) {
	d.log.Debug("ignoring upstream event", "type", evt.Type)
}

// ── Downstream helpers ────────────────────────────────────────────────────────

// sendStopAudio emits one stop-audio control frame on the caller channel.
func (d *EventDispatcher) sendStopAudio(ctx context.Context) {
	frame, err := json.Marshal(streamFrame{Kind: "StopAudio", StopAudio: &struct{}{}})
	if err != nil {
		return
	}
	d.sendText(ctx, frame)
}

func (d *EventDispatcher) sendText(ctx context.Context, frame []byte) {
	if err := d.downstream.SendText(ctx, frame); err != nil {
		d.recordSendError(ctx, err)
	}
}

func (d *EventDispatcher) recordSendError(ctx context.Context, err error) {
	d.metrics.DownstreamSendErrors.Add(ctx, 1)
	d.log.Warn("downstream send failed", "err", err)
}

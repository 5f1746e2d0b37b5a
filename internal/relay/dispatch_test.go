package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/observe"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/convlog"
)

// captureDownstream records every frame sent toward the caller channel.
type captureDownstream struct {
	binary  [][]byte
	text    [][]byte
	sendErr error
}

func (c *captureDownstream) SendBinary(_ context.Context, data []byte) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.binary = append(c.binary, data)
	return nil
}

func (c *captureDownstream) SendText(_ context.Context, data []byte) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.text = append(c.text, data)
	return nil
}

// stopAudioCount counts StopAudio control frames among the captured text frames.
func (c *captureDownstream) stopAudioCount(t *testing.T) int {
	t.Helper()
	n := 0
	for _, raw := range c.text {
		var frame struct {
			Kind string `json:"Kind"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		if frame.Kind == "StopAudio" {
			n++
		}
	}
	return n
}

func newTestDispatcher(down DownstreamLink, rawAudio bool) (*EventDispatcher, *convlog.Recorder) {
	rec := convlog.NewRecorder("sess-test", "model", "endpoint")
	d := newEventDispatcher(rec, NewAudioPacer(), down, rawAudio, observe.DefaultMetrics(), slog.Default())
	return d, rec
}

func TestDispatchMalformedMessageIsSkipped(t *testing.T) {
	down := &captureDownstream{}
	d, rec := newTestDispatcher(down, false)
	ctx := context.Background()

	d.Dispatch(ctx, []byte(`{not json`))
	d.Dispatch(ctx, []byte(`{"type":"input_audio_buffer.speech_stopped"}`))

	if rec.Len() != 1 {
		t.Errorf("recorder has %d events, want 1 (bad message skipped, next processed)", rec.Len())
	}
}

func TestDispatchSpeechStartedSendsExactlyOneStopAudio(t *testing.T) {
	down := &captureDownstream{}
	d, rec := newTestDispatcher(down, false)

	d.Dispatch(context.Background(), []byte(`{"type":"input_audio_buffer.speech_started","audio_start_ms":1234}`))

	if got := down.stopAudioCount(t); got != 1 {
		t.Errorf("StopAudio frames = %d, want exactly 1", got)
	}
	events := rec.Snapshot()
	if len(events) != 1 || events[0].Kind != convlog.KindSpeechStarted {
		t.Fatalf("recorded events = %+v, want one speech_started", events)
	}
	if events[0].Metadata["audio_start_ms"] != int64(1234) {
		t.Errorf("audio_start_ms metadata = %v, want 1234", events[0].Metadata["audio_start_ms"])
	}
}

func TestDispatchUserTranscriptRecorded(t *testing.T) {
	down := &captureDownstream{}
	d, rec := newTestDispatcher(down, false)

	msg := `{"type":"conversation.item.input_audio_transcription.completed","transcript":"hello there","item_id":"item-1"}`
	d.Dispatch(context.Background(), []byte(msg))

	events := rec.Snapshot()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	evt := events[0]
	if evt.Kind != convlog.KindTranscript || evt.Speaker != convlog.SpeakerUser {
		t.Errorf("event = %s/%s, want transcript/user", evt.Kind, evt.Speaker)
	}
	if evt.Text != "hello there" {
		t.Errorf("text = %q", evt.Text)
	}
}

func TestDispatchAssistantTranscriptForwardedDownstream(t *testing.T) {
	down := &captureDownstream{}
	d, rec := newTestDispatcher(down, false)

	msg := `{"type":"response.audio_transcript.done","transcript":"How can I help?","response_id":"resp-1"}`
	d.Dispatch(context.Background(), []byte(msg))

	if rec.Len() != 1 {
		t.Fatalf("events = %d, want 1", rec.Len())
	}
	if rec.Snapshot()[0].Speaker != convlog.SpeakerAssistant {
		t.Errorf("speaker = %s, want assistant", rec.Snapshot()[0].Speaker)
	}

	if len(down.text) != 1 {
		t.Fatalf("text frames = %d, want 1", len(down.text))
	}
	var frame transcriptionFrame
	if err := json.Unmarshal(down.text[0], &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Kind != "Transcription" || frame.Text != "How can I help?" {
		t.Errorf("frame = %+v", frame)
	}
}

func TestDispatchAudioDeltaStructuredMode(t *testing.T) {
	down := &captureDownstream{}
	d, _ := newTestDispatcher(down, false)

	audio := []byte{10, 20, 30, 40}
	msg := fmt.Sprintf(`{"type":"response.audio.delta","response_id":"resp-1","delta":%q}`,
		base64.StdEncoding.EncodeToString(audio))
	d.Dispatch(context.Background(), []byte(msg))

	if len(down.text) != 1 {
		t.Fatalf("text frames = %d, want 1", len(down.text))
	}
	var frame struct {
		Kind      string `json:"Kind"`
		AudioData *struct {
			Data string `json:"Data"`
		} `json:"AudioData"`
	}
	if err := json.Unmarshal(down.text[0], &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Kind != "AudioData" || frame.AudioData == nil {
		t.Fatalf("frame = %+v", frame)
	}
	decoded, err := base64.StdEncoding.DecodeString(frame.AudioData.Data)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	// First delta of the turn carries the silence padding.
	if len(decoded) != 4800+len(audio) {
		t.Errorf("payload = %d bytes, want %d", len(decoded), 4800+len(audio))
	}
}

func TestDispatchAudioDeltaRawMode(t *testing.T) {
	down := &captureDownstream{}
	d, _ := newTestDispatcher(down, true)
	ctx := context.Background()

	delta := func(audio []byte) []byte {
		return []byte(fmt.Sprintf(`{"type":"response.audio.delta","response_id":"resp-1","delta":%q}`,
			base64.StdEncoding.EncodeToString(audio)))
	}
	d.Dispatch(ctx, delta([]byte{1, 2}))
	d.Dispatch(ctx, delta([]byte{3, 4}))

	if len(down.binary) != 2 {
		t.Fatalf("binary frames = %d, want 2", len(down.binary))
	}
	if len(down.binary[0]) != 4802 {
		t.Errorf("first frame = %d bytes, want 4802", len(down.binary[0]))
	}
	if len(down.binary[1]) != 2 {
		t.Errorf("second frame = %d bytes, want 2 (no padding)", len(down.binary[1]))
	}
	if len(down.text) != 0 {
		t.Errorf("raw mode sent %d text frames for audio, want 0", len(down.text))
	}
}

func TestDispatchUndecodableAudioDeltaSkipped(t *testing.T) {
	down := &captureDownstream{}
	d, _ := newTestDispatcher(down, false)

	d.Dispatch(context.Background(), []byte(`{"type":"response.audio.delta","response_id":"r","delta":"!!!not-base64!!!"}`))

	if len(down.text)+len(down.binary) != 0 {
		t.Error("undecodable delta was forwarded downstream")
	}
}

func TestDispatchErrorEventDoesNotPropagate(t *testing.T) {
	down := &captureDownstream{}
	d, rec := newTestDispatcher(down, false)
	ctx := context.Background()

	d.Dispatch(ctx, []byte(`{"type":"error","error":{"message":"rate limited"}}`))
	d.Dispatch(ctx, []byte(`{"type":"input_audio_buffer.speech_stopped"}`))

	// The error event is absorbed; the session keeps dispatching.
	if rec.Len() != 1 {
		t.Errorf("events after error = %d, want 1", rec.Len())
	}
}

func TestDispatchDownstreamSendFailureIsAbsorbed(t *testing.T) {
	down := &captureDownstream{sendErr: errors.New("socket closed")}
	d, rec := newTestDispatcher(down, false)

	d.Dispatch(context.Background(), []byte(`{"type":"input_audio_buffer.speech_started"}`))

	// Send failed but the event is still recorded and dispatch returned.
	if rec.Len() != 1 {
		t.Errorf("events = %d, want 1", rec.Len())
	}
}

func TestDispatchUnknownEventIgnored(t *testing.T) {
	down := &captureDownstream{}
	d, rec := newTestDispatcher(down, false)

	d.Dispatch(context.Background(), []byte(`{"type":"response.output_item.added"}`))

	if rec.Len() != 0 || len(down.text) != 0 {
		t.Error("unknown event produced side effects")
	}
}

package convlog

import (
	"math"
	"time"
)

// Recorder is the append-only in-memory conversation log for one session.
//
// All appends happen from the relay's single receiver goroutine, so the
// recorder performs no locking of its own. Snapshot and Document may be
// called after the receiver has stopped (session teardown).
type Recorder struct {
	sessionID string
	model     string
	endpoint  string

	start     time.Time
	lastEvent time.Time
	events    []Event

	// now is swappable in tests to drive deterministic timing.
	now func() time.Time
}

// RecorderOption configures a [Recorder].
type RecorderOption func(*Recorder)

// WithClock overrides the recorder's time source. Used in tests.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a Recorder for the given session. The session start
// time is taken from the clock at construction.
func NewRecorder(sessionID, model, endpoint string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		sessionID: sessionID,
		model:     model,
		endpoint:  endpoint,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.start = r.now()
	return r
}

// Append records one conversation event. Elapsed seconds since session start
// and the delta since the previous event are computed here; the delta is nil
// for the first event. Events are never reordered or mutated after append.
func (r *Recorder) Append(kind EventKind, speaker Speaker, text string, metadata map[string]any) Event {
	now := r.now()

	var since *float64
	if !r.lastEvent.IsZero() {
		d := roundSeconds(now.Sub(r.lastEvent))
		since = &d
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	evt := Event{
		Timestamp:     now,
		Elapsed:       roundSeconds(now.Sub(r.start)),
		SincePrevious: since,
		Kind:          kind,
		Speaker:       speaker,
		Text:          text,
		Metadata:      metadata,
	}
	r.events = append(r.events, evt)
	r.lastEvent = now
	return evt
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int { return len(r.events) }

// SessionID returns the session identifier the recorder was created with.
func (r *Recorder) SessionID() string { return r.sessionID }

// Start returns the session start time.
func (r *Recorder) Start() time.Time { return r.start }

// Snapshot returns a copy of the recorded events in arrival order.
func (r *Recorder) Snapshot() []Event {
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Document assembles the persisted session document. Duration is measured
// from session start to the recorder's clock at the time of the call.
func (r *Recorder) Document() *Document {
	return &Document{
		SessionID:       r.sessionID,
		SessionStart:    r.start,
		DurationSeconds: math.Round(r.now().Sub(r.start).Seconds()*100) / 100,
		TotalEvents:     len(r.events),
		Model:           r.model,
		Endpoint:        r.endpoint,
		Conversation:    r.Snapshot(),
	}
}

// roundSeconds converts d to seconds rounded to millisecond precision,
// matching the precision stored in persisted logs.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/observe"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/storage"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/convlog"
)

type sessionState int

const (
	stateCreated sessionState = iota
	stateConnecting
	stateActive
	stateClosing
	stateClosed
	stateFailed
)

func (s sessionState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateConnecting:
		return "connecting"
	case stateActive:
		return "active"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SessionParams bundles everything a [Session] needs: the upstream link
// configuration, the caller-facing channel, the persistence sinks, and the
// ambient metrics and logger.
type SessionParams struct {
	Upstream   UpstreamConfig
	Downstream DownstreamLink

	// RawAudio selects binary passthrough for audio deltas instead of
	// base64-wrapped JSON frames. Fixed for the session lifetime.
	RawAudio bool

	Sinks   []storage.Sink
	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// Session owns one caller's relay: the upstream WebSocket, the outbound
// queue, the sender and receiver pumps, the event dispatcher, and the
// conversation recorder. It is created per caller connection and closed
// exactly once when either side disconnects.
//
// External callers feed audio in via [Session.ForwardInbound] or
// [Session.ForwardCallerFrame]; everything flowing the other way goes
// through the [DownstreamLink] handed in at construction.
type Session struct {
	id       string
	link     *UpstreamLink
	queue    *OutboundQueue
	recorder *convlog.Recorder
	dispatch *EventDispatcher
	sinks    []storage.Sink
	metrics  *observe.Metrics
	log      *slog.Logger

	started time.Time

	mu     sync.Mutex
	state  sessionState
	cancel context.CancelFunc
	doneCh chan struct{}
	runErr error
}

// NewSession creates a session in the created state. Nothing connects until
// [Session.Connect].
func NewSession(p SessionParams) *Session {
	id := uuid.NewString()
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("session_id", id)

	metrics := p.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	recorder := convlog.NewRecorder(id, p.Upstream.Model, p.Upstream.Endpoint)

	return &Session{
		id:       id,
		link:     NewUpstreamLink(p.Upstream),
		queue:    NewOutboundQueue(defaultQueueCapacity),
		recorder: recorder,
		dispatch: newEventDispatcher(recorder, NewAudioPacer(), p.Downstream, p.RawAudio, metrics, log),
		sinks:    p.Sinks,
		metrics:  metrics,
		log:      log,
		state:    stateCreated,
	}
}

// ID returns the generated session identifier.
func (s *Session) ID() string { return s.id }

// Connect dials and configures the upstream service, then starts the sender
// and receiver pumps. ctx bounds the dial only; the pumps run until
// [Session.Close] or an upstream transport failure.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != stateCreated {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("relay: connect in state %s", state)
	}
	s.state = stateConnecting
	s.mu.Unlock()

	if err := s.link.Connect(ctx); err != nil {
		s.mu.Lock()
		s.state = stateFailed
		s.mu.Unlock()
		return err
	}

	// The pumps must outlive the dial context: the caller's accept handler
	// hands control back once the session is up.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, runCtx := errgroup.WithContext(runCtx)
	g.Go(func() error { return s.senderPump(runCtx) })
	g.Go(func() error { return s.receiverPump(runCtx) })

	done := make(chan struct{})
	go func() {
		err := g.Wait()
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
		close(done)
	}()

	s.mu.Lock()
	s.state = stateActive
	s.cancel = cancel
	s.doneCh = done
	s.started = time.Now()
	s.mu.Unlock()

	s.metrics.ActiveSessions.Add(ctx, 1)
	s.log.Info("session active", "endpoint", s.link.URL())
	return nil
}

// senderPump drains the outbound queue into the upstream socket. Send
// failures on a live context are logged and skipped so a transient write
// error does not tear the session down; the receiver pump is the authority
// on connection death.
func (s *Session) senderPump(ctx context.Context) error {
	for {
		msg, err := s.queue.Dequeue(ctx)
		if err != nil {
			return ctx.Err()
		}
		if err := s.link.Send(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("upstream send failed", "error", err)
			continue
		}
		s.metrics.OutboundMessages.Add(ctx, 1)
	}
}

// receiverPump reads upstream events and hands them to the dispatcher. A
// read failure outside cancellation surfaces as a [*TransportError], which
// cancels the errgroup and with it the sender pump.
func (s *Session) receiverPump(ctx context.Context) error {
	for {
		data, err := s.link.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransportError{Err: err}
		}
		s.dispatch.Dispatch(ctx, data)
	}
}

// ForwardInbound wraps raw caller audio as a buffer-append message and
// enqueues it for the sender pump. Blocks when the queue is full. Returns
// [ErrSessionClosed] once [Session.Close] has been called.
func (s *Session) ForwardInbound(ctx context.Context, audio []byte) error {
	if s.terminal() {
		return ErrSessionClosed
	}
	msg, err := json.Marshal(appendAudioMessage{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
	if err != nil {
		return fmt.Errorf("relay: marshal audio append: %w", err)
	}
	return s.queue.Enqueue(ctx, msg)
}

// ForwardCallerFrame parses a JSON frame from the caller channel and
// forwards its audio payload upstream. Non-audio kinds and silent frames
// are dropped; a frame with no silent flag counts as silent.
func (s *Session) ForwardCallerFrame(ctx context.Context, data []byte) error {
	if s.terminal() {
		return ErrSessionClosed
	}
	var frame callerFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.metrics.ProtocolErrors.Add(ctx, 1)
		s.log.Warn("malformed caller frame", "error", err)
		return nil
	}
	if frame.Kind != "AudioData" || frame.AudioData == nil {
		return nil
	}
	if frame.AudioData.Silent == nil || *frame.AudioData.Silent {
		return nil
	}
	msg, err := json.Marshal(appendAudioMessage{
		Type:  "input_audio_buffer.append",
		Audio: frame.AudioData.Data,
	})
	if err != nil {
		return fmt.Errorf("relay: marshal audio append: %w", err)
	}
	return s.queue.Enqueue(ctx, msg)
}

func (s *Session) terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateClosing || s.state == stateClosed
}

// Done is closed once both pumps have stopped.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneCh
}

// Err reports why the pumps stopped. Nil until [Session.Done] is closed;
// [context.Canceled] after a clean shutdown.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// Close shuts the session down exactly once: stop the pumps, wait for them,
// persist the conversation to every sink, then close the upstream socket.
// Subsequent calls are no-ops and return nil.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case stateClosing, stateClosed:
		s.mu.Unlock()
		return nil
	}
	prev := s.state
	s.state = stateClosing
	cancel, done := s.cancel, s.doneCh
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	drained := true
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			drained = false
			s.log.Warn("pumps did not stop in time, conversation not persisted", "error", ctx.Err())
		}
	}

	// The recorder is written lock-free by the receiver pump, so it is only
	// safe to read once both pumps have stopped.
	if prev == stateActive && drained {
		s.flush(ctx)
	}

	closeErr := s.link.Close()

	s.mu.Lock()
	s.state = stateClosed
	s.mu.Unlock()

	if prev == stateActive {
		s.metrics.ActiveSessions.Add(ctx, -1)
		s.metrics.SessionDuration.Record(ctx, time.Since(s.started).Seconds())
	}

	if runErr := s.Err(); runErr != nil && !errors.Is(runErr, context.Canceled) {
		s.log.Info("session closed", "events", s.recorder.Len(), "cause", runErr)
	} else {
		s.log.Info("session closed", "events", s.recorder.Len())
	}
	return closeErr
}

func (s *Session) flush(ctx context.Context) {
	if len(s.sinks) == 0 {
		return
	}
	doc := s.recorder.Document()
	for _, outcome := range storage.FlushAll(ctx, s.sinks, doc) {
		status := "ok"
		if outcome.Err != nil {
			status = "error"
			s.log.Error("conversation flush failed", "sink", outcome.Sink, "error", outcome.Err)
		} else {
			s.log.Info("conversation persisted", "sink", outcome.Sink, "location", outcome.Location)
		}
		s.metrics.RecordFlushOutcome(ctx, outcome.Sink, status)
	}
}

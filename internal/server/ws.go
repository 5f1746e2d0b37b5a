package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/observe"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/relay"
)

var _ relay.DownstreamLink = (*wsDownstream)(nil)

// wsDownstream adapts a caller WebSocket connection to [relay.DownstreamLink].
// The dispatcher and the session writer both send on it, so writes are
// serialised with a mutex.
type wsDownstream struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (d *wsDownstream) SendBinary(ctx context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn.Write(ctx, websocket.MessageBinary, data)
}

func (d *wsDownstream) SendText(ctx context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn.Write(ctx, websocket.MessageText, data)
}

// handleMedia serves the telephony media endpoint: inbound caller frames
// are JSON with a nested audioData payload, outbound audio is wrapped in
// JSON stream frames.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	s.serveCall(w, r, false)
}

// handleAudio serves the raw endpoint: inbound binary frames are PCM
// chunks, outbound audio is relayed as binary. Control frames stay JSON.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	s.serveCall(w, r, true)
}

func (s *Server) serveCall(w http.ResponseWriter, r *http.Request, rawAudio bool) {
	// The metrics middleware opened a span for this request; carry its ids
	// on every log line for the call.
	log := observe.Logger(r.Context(), s.log)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	sess := relay.NewSession(relay.SessionParams{
		Upstream:   s.upstream,
		Downstream: &wsDownstream{conn: conn},
		RawAudio:   rawAudio,
		Sinks:      s.sinks,
		Metrics:    s.metrics,
		Logger:     log,
	})

	ctx := r.Context()
	if err := sess.Connect(ctx); err != nil {
		log.Error("upstream connect failed", "error", err, "session_id", sess.ID())
		conn.Close(websocket.StatusInternalError, "upstream unavailable")
		return
	}

	readErr := s.callerReadLoop(ctx, conn, sess, rawAudio)

	closeCtx, cancel := context.WithTimeout(context.Background(), sessionCloseTimeout)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil {
		log.Warn("session close", "error", err, "session_id", sess.ID())
	}

	switch {
	case readErr == nil || websocket.CloseStatus(readErr) != -1:
		conn.Close(websocket.StatusNormalClosure, "call ended")
	default:
		log.Warn("caller read loop ended", "error", readErr, "session_id", sess.ID())
	}
}

// callerReadLoop pumps caller frames into the session until the caller
// disconnects or the session's pumps stop.
func (s *Server) callerReadLoop(ctx context.Context, conn *websocket.Conn, sess *relay.Session, rawAudio bool) error {
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-sess.Done():
			cancel()
		case <-readCtx.Done():
		}
	}()

	for {
		typ, data, err := conn.Read(readCtx)
		if err != nil {
			if readCtx.Err() != nil && ctx.Err() == nil {
				// Session pumps stopped first; the caller socket is fine.
				return nil
			}
			return err
		}

		if rawAudio && typ == websocket.MessageBinary {
			err = sess.ForwardInbound(readCtx, data)
		} else {
			err = sess.ForwardCallerFrame(readCtx, data)
		}
		if err != nil {
			return err
		}
	}
}

package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// tokenScope is the Entra ID scope requested for the managed-identity auth
// path.
const tokenScope = "https://cognitiveservices.azure.com/.default"

// UpstreamConfig describes how to reach and authenticate with the Voice Live
// service, plus the session settings pushed immediately after connecting.
type UpstreamConfig struct {
	// Endpoint is the service base URL. A trailing slash is stripped; the
	// scheme is rewritten to its WebSocket equivalent.
	Endpoint string

	// Model is the realtime model identifier placed in the query string.
	Model string

	// APIVersion pins the wire API version in the query string.
	APIVersion string

	// APIKey is the static-key credential. Used only when Credential is nil.
	APIKey string

	// Credential, when non-nil, selects the managed-identity path: a bearer
	// token is resolved once per connection attempt and sent in the
	// Authorization header instead of the api-key header.
	Credential azcore.TokenCredential

	// Session is the configuration sent in the initial session.update.
	Session SessionSettings
}

// SessionSettings is the upstream session configuration: persona
// instructions, turn-detection tuning, transcription and audio-cleanup
// options, and voice selection.
type SessionSettings struct {
	Instructions       string
	TurnDetection      TurnDetectionSettings
	TranscriptionModel string
	NoiseReduction     string
	EchoCancellation   string
	Voice              VoiceSettings
}

// TurnDetectionSettings tunes upstream voice-activity detection.
type TurnDetectionSettings struct {
	Type              string
	Threshold         float64
	PrefixPaddingMs   int
	SilenceDurationMs int
	RemoveFillerWords bool
	EndOfUtterance    *EndOfUtteranceSettings
}

// EndOfUtteranceSettings configures the optional end-of-utterance
// sub-detector.
type EndOfUtteranceSettings struct {
	Model          string
	Threshold      float64
	TimeoutSeconds float64
}

// VoiceSettings selects the synthesised voice.
type VoiceSettings struct {
	Name        string
	Type        string
	Temperature float64
}

// UpstreamLink manages the single WebSocket connection to the Voice Live
// service: connect and authenticate, send, receive, close.
//
// The auth path is chosen once at connect time and is not re-evaluated
// mid-session; token refresh is out of scope. Connect failures surface as
// [*ConnectionError] with no retry — retry policy belongs to the
// orchestrating layer.
type UpstreamLink struct {
	cfg  UpstreamConfig
	conn *websocket.Conn
}

// NewUpstreamLink creates an unconnected link.
func NewUpstreamLink(cfg UpstreamConfig) *UpstreamLink {
	return &UpstreamLink{cfg: cfg}
}

// URL derives the WebSocket endpoint from the configured base endpoint,
// API version, and model.
func (l *UpstreamLink) URL() string {
	endpoint := strings.TrimSuffix(l.cfg.Endpoint, "/")
	u := fmt.Sprintf("%s/voice-live/realtime?api-version=%s&model=%s",
		endpoint, l.cfg.APIVersion, strings.TrimSpace(l.cfg.Model))
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u
}

// Connect dials the service and sends the two initial control messages in
// order: session.update with the configured session settings, then
// response.create to trigger the opening assistant turn.
//
// Exactly one authentication header is attached: a bearer token resolved
// through the managed-identity credential when one is configured, otherwise
// the static api-key header. Every attempt carries a freshly generated
// client request id.
func (l *UpstreamLink) Connect(ctx context.Context) error {
	header := http.Header{
		"x-ms-client-request-id": []string{uuid.NewString()},
	}

	if l.cfg.Credential != nil {
		token, err := l.cfg.Credential.GetToken(ctx, policy.TokenRequestOptions{
			Scopes: []string{tokenScope},
		})
		if err != nil {
			return &ConnectionError{Err: fmt.Errorf("resolve managed identity token: %w", err)}
		}
		header.Set("Authorization", "Bearer "+token.Token)
	} else {
		header.Set("api-key", l.cfg.APIKey)
	}

	conn, _, err := websocket.Dial(ctx, l.URL(), &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return &ConnectionError{Err: fmt.Errorf("dial: %w", err)}
	}
	l.conn = conn

	if err := l.writeJSON(ctx, sessionUpdateFromSettings(l.cfg.Session)); err != nil {
		conn.Close(websocket.StatusInternalError, "session update failed")
		l.conn = nil
		return &ConnectionError{Err: fmt.Errorf("session update: %w", err)}
	}
	if err := l.writeJSON(ctx, responseCreateMessage{Type: "response.create"}); err != nil {
		conn.Close(websocket.StatusInternalError, "response create failed")
		l.conn = nil
		return &ConnectionError{Err: fmt.Errorf("response create: %w", err)}
	}

	return nil
}

// Send writes one serialized message as a text frame.
func (l *UpstreamLink) Send(ctx context.Context, msg []byte) error {
	return l.conn.Write(ctx, websocket.MessageText, msg)
}

// Receive blocks until the next inbound message arrives and returns its
// payload.
func (l *UpstreamLink) Receive(ctx context.Context) ([]byte, error) {
	_, data, err := l.conn.Read(ctx)
	return data, err
}

// Close closes the WebSocket connection. Safe to call on an unconnected
// link.
func (l *UpstreamLink) Close() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close(websocket.StatusNormalClosure, "session closed")
	l.conn = nil
	return err
}

// writeJSON marshals v and writes it as a text frame.
func (l *UpstreamLink) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return l.conn.Write(ctx, websocket.MessageText, data)
}

// sessionUpdateFromSettings maps SessionSettings onto the wire form of the
// session.update control message.
func sessionUpdateFromSettings(s SessionSettings) sessionUpdateMessage {
	params := sessionParams{
		Instructions: s.Instructions,
	}

	if s.TurnDetection.Type != "" {
		td := &turnDetection{
			Type:              s.TurnDetection.Type,
			Threshold:         s.TurnDetection.Threshold,
			PrefixPaddingMs:   s.TurnDetection.PrefixPaddingMs,
			SilenceDurationMs: s.TurnDetection.SilenceDurationMs,
			RemoveFillerWords: s.TurnDetection.RemoveFillerWords,
		}
		if eou := s.TurnDetection.EndOfUtterance; eou != nil {
			td.EndOfUtterance = &endOfUtterance{
				Model:          eou.Model,
				Threshold:      eou.Threshold,
				TimeoutSeconds: eou.TimeoutSeconds,
			}
		}
		params.TurnDetection = td
	}
	if s.TranscriptionModel != "" {
		params.InputAudioTranscription = &audioTranscription{Model: s.TranscriptionModel}
	}
	if s.NoiseReduction != "" {
		params.InputAudioNoiseReduction = &typedOption{Type: s.NoiseReduction}
	}
	if s.EchoCancellation != "" {
		params.InputAudioEchoCancellation = &typedOption{Type: s.EchoCancellation}
	}
	if s.Voice.Name != "" {
		params.Voice = &voiceParams{
			Name:        s.Voice.Name,
			Type:        s.Voice.Type,
			Temperature: s.Voice.Temperature,
		}
	}

	return sessionUpdateMessage{Type: "session.update", Session: params}
}

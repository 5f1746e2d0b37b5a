package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/convlog"
)

func testDocument() *convlog.Document {
	return &convlog.Document{
		SessionID:       "a1b2c3d4-e5f6-7890-abcd-ef0123456789",
		SessionStart:    time.Date(2026, 3, 14, 9, 30, 15, 0, time.UTC),
		DurationSeconds: 42.5,
		TotalEvents:     2,
		Model:           "gpt-4o-realtime-preview",
		Endpoint:        "https://example.test",
		Conversation: []convlog.Event{
			{Kind: convlog.KindTranscript, Speaker: convlog.SpeakerUser, Text: "hello", Metadata: map[string]any{}},
			{Kind: convlog.KindTranscript, Speaker: convlog.SpeakerAssistant, Text: "hi", Metadata: map[string]any{}},
		},
	}
}

func TestDocumentFilename(t *testing.T) {
	got := DocumentFilename(testDocument())
	want := "conversation_20260314_093015_a1b2c3d4.json"
	if got != want {
		t.Errorf("DocumentFilename = %q, want %q", got, want)
	}
}

func TestDocumentFilenameShortSessionID(t *testing.T) {
	doc := testDocument()
	doc.SessionID = "abc"
	got := DocumentFilename(doc)
	if got != "conversation_20260314_093015_abc.json" {
		t.Errorf("DocumentFilename = %q", got)
	}
}

func TestFileSinkWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir)
	doc := testDocument()

	if err := sink.Write(context.Background(), doc); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, DocumentFilename(doc)))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got convlog.Document
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.SessionID != doc.SessionID || got.TotalEvents != 2 {
		t.Errorf("round trip = %+v", got)
	}
	if len(got.Conversation) != 2 || got.Conversation[0].Text != "hello" {
		t.Errorf("conversation = %+v", got.Conversation)
	}
}

func TestFileSinkCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	sink := NewFileSink(dir)

	if err := sink.Write(context.Background(), testDocument()); err != nil {
		t.Fatalf("write into missing directory: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestFileSinkRespectsCancelledContext(t *testing.T) {
	sink := NewFileSink(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sink.Write(ctx, testDocument()); err == nil {
		t.Error("write with cancelled context succeeded")
	}
}

// failSink always fails; okSink always succeeds.
type failSink struct{}

func (failSink) Name() string                                   { return "failing" }
func (failSink) Write(context.Context, *convlog.Document) error { return errors.New("boom") }

type okSink struct{ wrote int }

func (s *okSink) Name() string { return "ok" }
func (s *okSink) Write(context.Context, *convlog.Document) error {
	s.wrote++
	return nil
}

func TestFlushAllAttemptsEverySink(t *testing.T) {
	ok := &okSink{}
	outcomes := FlushAll(context.Background(), []Sink{failSink{}, ok}, testDocument())

	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	if outcomes[0].Sink != "failing" || outcomes[0].Err == nil {
		t.Errorf("first outcome = %+v, want failure", outcomes[0])
	}
	if outcomes[1].Sink != "ok" || outcomes[1].Err != nil {
		t.Errorf("second outcome = %+v, want success", outcomes[1])
	}
	if ok.wrote != 1 {
		t.Errorf("ok sink writes = %d, want 1 (failure must not stop later sinks)", ok.wrote)
	}
}

func TestFlushAllReportsLocation(t *testing.T) {
	dir := t.TempDir()
	doc := testDocument()
	outcomes := FlushAll(context.Background(), []Sink{NewFileSink(dir)}, doc)

	if len(outcomes) != 1 || outcomes[0].Err != nil {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	want := filepath.Join(dir, DocumentFilename(doc))
	if outcomes[0].Location != want {
		t.Errorf("Location = %q, want %q", outcomes[0].Location, want)
	}
}

func TestCheckDirWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	if err := CheckDirWritable(dir); err != nil {
		t.Errorf("CheckDirWritable on creatable dir: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("probe file left behind: %v", entries)
	}
}

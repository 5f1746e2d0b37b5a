// Package storage persists conversation documents to durable sinks: local
// JSON files, Azure Blob Storage, and PostgreSQL.
//
// All writes are best-effort. Sinks are attempted independently — a failure
// in one never prevents attempting another — and each attempt produces an
// explicit [Outcome] that the caller aggregates for observability. A flush
// failure never blocks or fails session teardown.
package storage

import (
	"context"
	"time"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/convlog"
)

// writeTimeout bounds a single sink write so a hung sink cannot stall
// session teardown.
const writeTimeout = 10 * time.Second

// Sink persists one conversation document.
type Sink interface {
	// Name is a short label for logs and metrics (e.g. "file", "blob").
	Name() string

	// Write persists doc. It must respect context cancellation.
	Write(ctx context.Context, doc *convlog.Document) error
}

// Outcome is the result of one sink attempt.
type Outcome struct {
	// Sink is the sink's Name.
	Sink string

	// Location describes where the document landed ("" on failure).
	Location string

	// Err is nil when the write succeeded.
	Err error
}

// FlushAll writes doc to every sink, independently, and returns one outcome
// per sink in the order given. Errors are captured, never propagated.
func FlushAll(ctx context.Context, sinks []Sink, doc *convlog.Document) []Outcome {
	outcomes := make([]Outcome, 0, len(sinks))
	for _, sink := range sinks {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := sink.Write(writeCtx, doc)
		cancel()

		out := Outcome{Sink: sink.Name(), Err: err}
		if err == nil {
			if loc, ok := sink.(interface{ Location(*convlog.Document) string }); ok {
				out.Location = loc.Location(doc)
			}
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// DocumentFilename derives the canonical log filename for doc:
// conversation_<YYYYMMDD_HHMMSS>_<first 8 chars of session id>.json.
func DocumentFilename(doc *convlog.Document) string {
	sid := doc.SessionID
	if len(sid) > 8 {
		sid = sid[:8]
	}
	return "conversation_" + doc.SessionStart.Format("20060102_150405") + "_" + sid + ".json"
}

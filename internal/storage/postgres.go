package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/convlog"
)

var _ Sink = (*PostgresSink)(nil)

const ddlConversations = `
CREATE TABLE IF NOT EXISTS conversations (
    session_id       TEXT         PRIMARY KEY,
    session_start    TIMESTAMPTZ  NOT NULL,
    duration_seconds DOUBLE PRECISION NOT NULL,
    total_events     INTEGER      NOT NULL,
    model            TEXT         NOT NULL DEFAULT '',
    endpoint         TEXT         NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS conversation_events (
    id              BIGSERIAL    PRIMARY KEY,
    session_id      TEXT         NOT NULL REFERENCES conversations (session_id) ON DELETE CASCADE,
    seq             INTEGER      NOT NULL,
    timestamp       TIMESTAMPTZ  NOT NULL,
    elapsed_seconds DOUBLE PRECISION NOT NULL,
    event_type      TEXT         NOT NULL,
    speaker         TEXT         NOT NULL DEFAULT '',
    text            TEXT         NOT NULL DEFAULT '',
    metadata        JSONB
);

CREATE INDEX IF NOT EXISTS idx_conversation_events_session
    ON conversation_events (session_id, seq);
`

// PostgresSink persists conversation documents into two relational tables:
// one header row per session and one row per event. All methods are safe
// for concurrent use.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink establishes a connection pool to the database at dsn and
// ensures the conversation tables exist.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres sink: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlConversations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres sink: migrate: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// Name implements [Sink].
func (s *PostgresSink) Name() string { return "postgres" }

// Location returns the header-table reference for doc.
func (s *PostgresSink) Location(doc *convlog.Document) string {
	return "conversations/" + doc.SessionID
}

// Write implements [Sink]. The header row and all event rows are inserted
// in a single transaction so a partially stored conversation never becomes
// visible.
func (s *PostgresSink) Write(ctx context.Context, doc *convlog.Document) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres sink: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertHeader = `
		INSERT INTO conversations
		    (session_id, session_start, duration_seconds, total_events, model, endpoint)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
		    duration_seconds = EXCLUDED.duration_seconds,
		    total_events     = EXCLUDED.total_events`

	_, err = tx.Exec(ctx, insertHeader,
		doc.SessionID,
		doc.SessionStart,
		doc.DurationSeconds,
		doc.TotalEvents,
		doc.Model,
		doc.Endpoint,
	)
	if err != nil {
		return fmt.Errorf("postgres sink: insert header: %w", err)
	}

	const insertEvent = `
		INSERT INTO conversation_events
		    (session_id, seq, timestamp, elapsed_seconds, event_type, speaker, text, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for i, ev := range doc.Conversation {
		var meta []byte
		if len(ev.Metadata) > 0 {
			meta, err = json.Marshal(ev.Metadata)
			if err != nil {
				return fmt.Errorf("postgres sink: marshal metadata: %w", err)
			}
		}
		_, err = tx.Exec(ctx, insertEvent,
			doc.SessionID,
			i,
			ev.Timestamp,
			ev.Elapsed,
			string(ev.Kind),
			string(ev.Speaker),
			ev.Text,
			meta,
		)
		if err != nil {
			return fmt.Errorf("postgres sink: insert event %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres sink: commit: %w", err)
	}
	return nil
}

// Close releases all connections held by the underlying pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/convlog"
)

var _ Sink = (*FileSink)(nil)

// CheckDirWritable verifies that dir exists (creating it if needed) and
// accepts writes. Used by the readiness probe.
func CheckDirWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("storage: %s not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// FileSink writes conversation documents as indented JSON files into a local
// directory. Primarily used for development and as the analyzer CLI's input.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink rooted at dir. The directory is created on
// first write if it does not exist.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Name implements [Sink].
func (s *FileSink) Name() string { return "file" }

// Location returns the path the document for doc is written to.
func (s *FileSink) Location(doc *convlog.Document) string {
	return filepath.Join(s.dir, DocumentFilename(doc))
}

// Write implements [Sink].
func (s *FileSink) Write(ctx context.Context, doc *convlog.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("file sink: create dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("file sink: marshal: %w", err)
	}

	path := s.Location(doc)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("file sink: write %q: %w", path, err)
	}
	return nil
}

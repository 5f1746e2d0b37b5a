// Package persona resolves the system instructions sent to the voice
// service in the initial session configuration.
package persona

import (
	"log/slog"
	"os"
	"strings"
)

// DefaultInstructions is used when no prompt file is configured or the
// configured file cannot be read.
const DefaultInstructions = "You are a helpful voice assistant for a customer call center. " +
	"Keep responses concise and conversational since they will be spoken aloud. " +
	"If you cannot help with a request, say so clearly and offer to transfer the " +
	"caller to a human agent."

// Load returns the system instructions from the file at path. An empty
// path, an unreadable file, or a blank file all fall back to
// [DefaultInstructions] with a warning, so a misplaced prompt file degrades
// the persona rather than taking calls down.
func Load(path string, log *slog.Logger) string {
	if path == "" {
		log.Info("using built-in persona instructions")
		return DefaultInstructions
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("persona file unreadable, using built-in instructions",
			"path", path, "error", err)
		return DefaultInstructions
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		log.Warn("persona file is empty, using built-in instructions", "path", path)
		return DefaultInstructions
	}

	log.Info("loaded persona instructions", "path", path, "bytes", len(text))
	return text
}

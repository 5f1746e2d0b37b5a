// Command convanalyzer inspects conversation logs written by the voice
// agent: turn timeline, response-time statistics, and transcript export.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/convlog"
)

var logDir string

var rootCmd = &cobra.Command{
	Use:           "convanalyzer [file]",
	Short:         "Analyze voice agent conversation logs",
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `convanalyzer reads the JSON conversation logs the voice agent writes at
session end and reports on them: event timeline, caller/assistant turn
counts, response-time statistics, and significant pauses.

With no arguments it analyzes the most recent log in the log directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logDir, "dir", "logs", "conversation log directory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveDocument loads the named file, or the newest conversation log in
// the log directory when args is empty.
func resolveDocument(args []string) (*convlog.Document, string, error) {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		latest, err := latestLog(logDir)
		if err != nil {
			return nil, "", err
		}
		path = latest
	}

	doc, err := loadDocument(path)
	if err != nil {
		return nil, "", err
	}
	return doc, path, nil
}

func loadDocument(path string) (*convlog.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	var doc convlog.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}

// latestLog picks the newest conversation log. The timestamped filename
// scheme makes lexicographic order chronological.
func latestLog(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "conversation_*.json"))
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no conversation logs in %s", dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

func speakerLabel(s convlog.Speaker) string {
	switch s {
	case convlog.SpeakerUser:
		return "Caller"
	case convlog.SpeakerAssistant:
		return "Assistant"
	case convlog.SpeakerSystem:
		return "System"
	default:
		return string(s)
	}
}

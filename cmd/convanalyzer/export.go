package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/analyze"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export a conversation transcript as plain text",
	Long: `Export writes the completed transcripts of a conversation log as a
plain-text dialogue, one line per turn. With no file argument the most
recent log in the log directory is exported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	doc, _, err := resolveDocument(args)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation %s — %s\n\n", doc.SessionID, doc.SessionStart.Format("2006-01-02 15:04:05"))
	for _, evt := range analyze.Transcripts(doc) {
		fmt.Fprintf(&b, "%s: %s\n", speakerLabel(evt.Speaker), evt.Text)
	}

	if exportOutput == "" {
		fmt.Print(b.String())
		return nil
	}
	if err := os.WriteFile(exportOutput, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOutput, err)
	}
	fmt.Printf("wrote %s\n", exportOutput)
	return nil
}

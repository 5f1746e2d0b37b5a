package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversation logs in the log directory",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	matches, err := filepath.Glob(filepath.Join(logDir, "conversation_*.json"))
	if err != nil {
		return fmt.Errorf("scan %s: %w", logDir, err)
	}
	if len(matches) == 0 {
		fmt.Printf("no conversation logs in %s\n", logDir)
		return nil
	}
	sort.Strings(matches)

	for _, path := range matches {
		doc, err := loadDocument(path)
		if err != nil {
			fmt.Printf("%-54s (unreadable: %v)\n", filepath.Base(path), err)
			continue
		}
		fmt.Printf("%-54s %s  %6.1fs  %3d events\n",
			filepath.Base(path),
			doc.SessionStart.Format("2006-01-02 15:04:05"),
			doc.DurationSeconds,
			doc.TotalEvents,
		)
	}
	return nil
}

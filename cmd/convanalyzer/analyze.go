package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/analyze"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/convlog"
)

var summaryOnly bool

func init() {
	rootCmd.Flags().BoolVar(&summaryOnly, "summary", false, "print statistics only, no timeline")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	doc, path, err := resolveDocument(args)
	if err != nil {
		return err
	}

	fmt.Printf("Conversation %s\n", doc.SessionID)
	fmt.Printf("  file:     %s\n", path)
	fmt.Printf("  started:  %s\n", doc.SessionStart.Format("2006-01-02 15:04:05"))
	fmt.Printf("  duration: %.2fs\n", doc.DurationSeconds)
	fmt.Printf("  events:   %d\n", doc.TotalEvents)
	if doc.Model != "" {
		fmt.Printf("  model:    %s\n", doc.Model)
	}

	if !summaryOnly {
		fmt.Println()
		printTimeline(doc)
	}

	fmt.Println()
	printStats(analyze.Timing(doc))
	return nil
}

func printTimeline(doc *convlog.Document) {
	for _, evt := range doc.Conversation {
		if evt.SincePrevious != nil && *evt.SincePrevious > 1.0 {
			fmt.Printf("          ··· %.1fs pause ···\n", *evt.SincePrevious)
		}
		switch evt.Kind {
		case convlog.KindTranscript:
			fmt.Printf("[%7.2fs] %s: %s\n", evt.Elapsed, speakerLabel(evt.Speaker), evt.Text)
		case convlog.KindSpeechStarted:
			fmt.Printf("[%7.2fs] %s started speaking\n", evt.Elapsed, speakerLabel(evt.Speaker))
		case convlog.KindSpeechStopped:
			fmt.Printf("[%7.2fs] %s stopped speaking\n", evt.Elapsed, speakerLabel(evt.Speaker))
		default:
			if evt.Text != "" {
				fmt.Printf("[%7.2fs] %s\n", evt.Elapsed, evt.Text)
			}
		}
	}
}

func printStats(s analyze.Stats) {
	fmt.Println("Statistics")
	fmt.Printf("  caller turns:    %d\n", s.UserTurns)
	fmt.Printf("  assistant turns: %d\n", s.AssistantTurns)
	if s.AssistantTurns > 0 {
		fmt.Printf("  response time:   avg %.2fs  min %.2fs  max %.2fs\n",
			s.AvgResponseSeconds, s.MinResponseSeconds, s.MaxResponseSeconds)
	}
	if s.SignificantPauses > 0 {
		fmt.Printf("  pauses >2s:      %d (longest %.1fs)\n",
			s.SignificantPauses, s.LongestPauseSeconds)
	}
}

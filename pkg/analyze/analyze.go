// Package analyze computes timing and interaction statistics over persisted
// conversation documents. It is a pure library: the analyzer CLI renders its
// results, and tests exercise it directly against synthetic documents.
package analyze

import (
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/pkg/convlog"
)

// significantPause is the delta between consecutive events above which a gap
// is counted as a significant pause.
const significantPause = 2.0

// Stats summarises conversation flow for one session document.
type Stats struct {
	// UserTurns is the number of completed user transcripts.
	UserTurns int

	// AssistantTurns is the number of completed assistant transcripts.
	AssistantTurns int

	// AvgResponseSeconds is the mean delay between the caller finishing an
	// utterance (speech_stopped) and the next assistant transcript. Zero when
	// no response pair exists.
	AvgResponseSeconds float64

	// MinResponseSeconds is the fastest observed response delay.
	MinResponseSeconds float64

	// MaxResponseSeconds is the slowest observed response delay.
	MaxResponseSeconds float64

	// SignificantPauses counts inter-event gaps longer than two seconds.
	SignificantPauses int

	// LongestPauseSeconds is the largest significant pause, or zero.
	LongestPauseSeconds float64
}

// Timing walks the document's event list and derives [Stats].
//
// Response time is measured from each user speech_stopped event to the first
// assistant transcript that follows it, mirroring how a listener perceives
// agent latency.
func Timing(doc *convlog.Document) Stats {
	var s Stats
	events := doc.Conversation

	var responseTimes []float64
	for i, evt := range events {
		switch {
		case evt.Kind == convlog.KindTranscript && evt.Speaker == convlog.SpeakerUser:
			s.UserTurns++
		case evt.Kind == convlog.KindTranscript && evt.Speaker == convlog.SpeakerAssistant:
			s.AssistantTurns++
		}

		if evt.Kind == convlog.KindSpeechStopped && evt.Speaker == convlog.SpeakerUser {
			for j := i + 1; j < len(events); j++ {
				next := events[j]
				if next.Kind == convlog.KindTranscript && next.Speaker == convlog.SpeakerAssistant {
					responseTimes = append(responseTimes, next.Elapsed-evt.Elapsed)
					break
				}
			}
		}

		if evt.SincePrevious != nil && *evt.SincePrevious > significantPause {
			s.SignificantPauses++
			if *evt.SincePrevious > s.LongestPauseSeconds {
				s.LongestPauseSeconds = *evt.SincePrevious
			}
		}
	}

	if len(responseTimes) > 0 {
		sum := 0.0
		s.MinResponseSeconds = responseTimes[0]
		s.MaxResponseSeconds = responseTimes[0]
		for _, rt := range responseTimes {
			sum += rt
			if rt < s.MinResponseSeconds {
				s.MinResponseSeconds = rt
			}
			if rt > s.MaxResponseSeconds {
				s.MaxResponseSeconds = rt
			}
		}
		s.AvgResponseSeconds = sum / float64(len(responseTimes))
	}

	return s
}

// Transcripts filters the document down to completed transcript events in
// arrival order. Used by the export command.
func Transcripts(doc *convlog.Document) []convlog.Event {
	var out []convlog.Event
	for _, evt := range doc.Conversation {
		if evt.Kind == convlog.KindTranscript {
			out = append(out, evt)
		}
	}
	return out
}

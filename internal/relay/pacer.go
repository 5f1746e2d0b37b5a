package relay

// Silence padding prepended to the first audio delta of each response turn.
// Abrupt PCM onset causes an audible click on the caller's line; 50 ms of
// leading silence at 24 kHz, 16-bit mono (2400 samples, 4800 bytes) masks it.
const (
	paddingSampleRate     = 24000
	paddingBytesPerSample = 2
	paddingDurationMs     = 50
	paddingBytes          = paddingSampleRate * paddingBytesPerSample * paddingDurationMs / 1000
)

// AudioPacer applies the first-chunk silence-padding policy per logical
// response turn. A turn is identified by the response id carried on audio
// delta events; a change of id marks the start of a new turn and re-arms
// the padding.
//
// The pacer is written and read exclusively from the session's receiver
// pump. Single writer, no concurrent reader: no locking required.
type AudioPacer struct {
	currentResponseID string
	firstChunk        bool
}

// NewAudioPacer returns a pacer with no current turn.
func NewAudioPacer() *AudioPacer {
	return &AudioPacer{}
}

// Pace returns the decoded audio for one delta event, with the silence block
// prepended when this is the first delta of a new response turn. Subsequent
// deltas of the same turn pass through unmodified. Padding is always applied
// to the decoded byte sequence, before any downstream re-encoding.
func (p *AudioPacer) Pace(responseID string, audio []byte) []byte {
	if responseID != p.currentResponseID {
		p.currentResponseID = responseID
		p.firstChunk = true
	}
	if !p.firstChunk {
		return audio
	}
	p.firstChunk = false

	padded := make([]byte, paddingBytes+len(audio))
	copy(padded[paddingBytes:], audio)
	return padded
}

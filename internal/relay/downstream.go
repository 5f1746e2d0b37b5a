package relay

import "context"

// DownstreamLink abstracts the caller-facing media channel. The relay sends
// either raw binary audio frames or structured JSON control frames through
// it, depending on the channel mode fixed when the downstream is attached.
//
// Send failures on the downstream are recovered locally by the relay: they
// are logged and counted but never affect the upstream pumps.
type DownstreamLink interface {
	// SendBinary writes one raw binary frame (PCM audio bytes).
	SendBinary(ctx context.Context, data []byte) error

	// SendText writes one structured JSON control frame.
	SendText(ctx context.Context, data []byte) error
}

package relay

import (
	"bytes"
	"testing"
)

func TestPacePadsFirstChunkOfTurn(t *testing.T) {
	p := NewAudioPacer()
	audio := []byte{1, 2, 3, 4}

	out := p.Pace("resp-a", audio)
	if len(out) != paddingBytes+len(audio) {
		t.Fatalf("padded length = %d, want %d", len(out), paddingBytes+len(audio))
	}
	if !bytes.Equal(out[:paddingBytes], make([]byte, paddingBytes)) {
		t.Error("padding prefix is not all zero bytes")
	}
	if !bytes.Equal(out[paddingBytes:], audio) {
		t.Error("audio payload corrupted by padding")
	}
}

func TestPaceSubsequentChunksPassThrough(t *testing.T) {
	p := NewAudioPacer()
	p.Pace("resp-a", []byte{1})

	audio := []byte{5, 6, 7}
	out := p.Pace("resp-a", audio)
	if !bytes.Equal(out, audio) {
		t.Errorf("second chunk = %d bytes, want unmodified %d bytes", len(out), len(audio))
	}
}

func TestPaceRearmsOnNewResponseID(t *testing.T) {
	p := NewAudioPacer()

	// Turn sequence A, A, B, B: padding exactly at positions 0 and 2.
	outs := [][]byte{
		p.Pace("resp-a", []byte{1}),
		p.Pace("resp-a", []byte{2}),
		p.Pace("resp-b", []byte{3}),
		p.Pace("resp-b", []byte{4}),
	}
	padded := []bool{true, false, true, false}
	for i, out := range outs {
		got := len(out) > 1
		if got != padded[i] {
			t.Errorf("chunk %d padded = %v, want %v", i, got, padded[i])
		}
	}
}

func TestPacePaddingSize(t *testing.T) {
	// 50 ms of 24 kHz 16-bit mono PCM.
	if paddingBytes != 4800 {
		t.Errorf("paddingBytes = %d, want 4800", paddingBytes)
	}

	p := NewAudioPacer()
	out := p.Pace("resp-a", make([]byte, 44))
	if len(out) != 4844 {
		t.Errorf("first delta of 44 bytes paced to %d, want 4844", len(out))
	}
}

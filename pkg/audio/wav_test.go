package audio

import (
	"bytes"
	"testing"
)

func TestNewWavBuffer(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1}
	sampleRate := 16000
	wav := NewWavBuffer(samples, sampleRate)

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Errorf("expected RIFF prefix")
	}
	if !bytes.Contains(wav, []byte("WAVE")) {
		t.Errorf("expected WAVE format identifier")
	}

	expectedLen := 44 + len(samples)*2
	if len(wav) != expectedLen {
		t.Errorf("expected length %d, got %d", expectedLen, len(wav))
	}
}

func TestNewWavBufferClipsOutOfRange(t *testing.T) {
	wav := NewWavBuffer([]float32{2, -2}, 16000)
	if len(wav) != 44+4 {
		t.Fatalf("unexpected length %d", len(wav))
	}
}

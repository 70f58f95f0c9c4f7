package recognizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRemoteRequiresAPIKey(t *testing.T) {
	_, err := NewRemote(RemoteConfig{})
	assert.Error(t, err)
}

func TestFloatToPCM16Clips(t *testing.T) {
	pcm := floatToPCM16([]float32{2, -2, 0})
	assert.Len(t, pcm, 6)
	// 2 clips to 1.0 -> 32767 little-endian
	assert.Equal(t, byte(0xFF), pcm[0])
	assert.Equal(t, byte(0x7F), pcm[1])
}

func TestRemotePeekDoesNotConsumeFinal(t *testing.T) {
	r := &Remote{updates: make(chan struct{}, 1)}
	r.mu.Lock()
	r.final = "hello there"
	r.mu.Unlock()

	assert.Equal(t, "hello there", r.Peek())
	assert.Equal(t, "hello there", r.Peek())
	assert.Equal(t, "hello there", r.CurrentText())
	assert.Equal(t, "", r.CurrentText())
}

func TestRemoteUpdatesSignalCoalesces(t *testing.T) {
	r := &Remote{updates: make(chan struct{}, 1)}
	select {
	case r.updates <- struct{}{}:
	default:
	}
	select {
	case r.updates <- struct{}{}:
	default:
	}

	select {
	case <-r.Updates():
	default:
		t.Fatal("expected a pending update signal")
	}
	select {
	case <-r.Updates():
		t.Fatal("expected the second signal to have coalesced with the first")
	default:
	}
}

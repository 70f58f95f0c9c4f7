// Package preroll implements the bounded FIFO that keeps a short tail of
// recently captured audio so hot-mic mode can hand the recognizer audio
// that predates the toggle that started listening.
package preroll

import "github.com/listen-cli/listend/pkg/audio"

// Ring is a bounded FIFO of audio.Chunk keyed by cumulative sample count.
// It is not safe for concurrent use; callers serialize access the same
// way they serialize access to the recognizer.
type Ring struct {
	capSamples int
	chunks     []audio.Chunk
	samples    int
}

// NewRing builds a ring capped at rate*seconds samples. A non-positive
// capacity disables pre-roll entirely: Append becomes a no-op and Drain
// always returns nil.
func NewRing(sampleRate int, seconds float64) *Ring {
	cap := int(float64(sampleRate) * seconds)
	return &Ring{capSamples: cap}
}

func (r *Ring) Append(c audio.Chunk) {
	if r.capSamples <= 0 {
		return
	}
	r.chunks = append(r.chunks, c)
	r.samples += len(c.Samples)
	for r.samples > r.capSamples && len(r.chunks) > 0 {
		r.samples -= len(r.chunks[0].Samples)
		r.chunks = r.chunks[1:]
	}
}

// Drain returns the buffered chunks in capture order and clears the ring.
func (r *Ring) Drain() []audio.Chunk {
	if len(r.chunks) == 0 {
		return nil
	}
	out := r.chunks
	r.chunks = nil
	r.samples = 0
	return out
}

func (r *Ring) Clear() {
	r.chunks = nil
	r.samples = 0
}

// Samples reports the number of buffered samples, always <= capacity.
func (r *Ring) Samples() int {
	return r.samples
}

func (r *Ring) Capacity() int {
	return r.capSamples
}

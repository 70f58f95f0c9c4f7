package preroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/listen-cli/listend/pkg/audio"
)

func TestRingNeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capSeconds := rapid.Float64Range(0.05, 2.0).Draw(t, "capSeconds")
		sampleRate := rapid.IntRange(1000, 48000).Draw(t, "sampleRate")
		r := NewRing(sampleRate, capSeconds)

		n := rapid.IntRange(0, 50).Draw(t, "numChunks")
		for i := 0; i < n; i++ {
			size := rapid.IntRange(1, 4000).Draw(t, "chunkSize")
			r.Append(audio.Chunk{Samples: make([]float32, size), SampleRate: sampleRate})
			assert.LessOrEqual(t, r.Samples(), r.Capacity())
		}
	})
}

func TestRingDrainClears(t *testing.T) {
	r := NewRing(1000, 1.0)
	r.Append(audio.Chunk{Samples: make([]float32, 100)})
	r.Append(audio.Chunk{Samples: make([]float32, 100)})

	drained := r.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, r.Samples())
	assert.Nil(t, r.Drain())
}

func TestRingZeroCapacityDisablesPreroll(t *testing.T) {
	r := NewRing(1000, 0)
	r.Append(audio.Chunk{Samples: make([]float32, 500)})
	assert.Equal(t, 0, r.Samples())
	assert.Nil(t, r.Drain())
}

func TestRingClear(t *testing.T) {
	r := NewRing(1000, 1.0)
	r.Append(audio.Chunk{Samples: make([]float32, 100)})
	r.Clear()
	assert.Equal(t, 0, r.Samples())
}

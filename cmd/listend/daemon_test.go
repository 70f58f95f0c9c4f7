package main

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listen-cli/listend/internal/envconfig"
	"github.com/listen-cli/listend/pkg/audio"
	"github.com/listen-cli/listend/pkg/engine"
	"github.com/listen-cli/listend/pkg/logging"
	"github.com/listen-cli/listend/pkg/preview"
	"github.com/listen-cli/listend/pkg/punctuator"
	"github.com/listen-cli/listend/pkg/tmux"
)

type fakeSource struct {
	mu     sync.Mutex
	chunks chan audio.Chunk
	closed bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{chunks: make(chan audio.Chunk, 16)}
}

func (f *fakeSource) Open() error { return nil }

func (f *fakeSource) Read() (audio.Chunk, error) {
	c, ok := <-f.chunks
	if !ok {
		return audio.Chunk{}, audio.ErrClosed
	}
	return c, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.chunks)
	}
	return nil
}

// fakeRecognizer produces one word of text per Decode call once it has
// been fed any samples at all, mirroring the shape used elsewhere to
// exercise the engine without a real ONNX session.
type fakeRecognizer struct {
	mu      sync.Mutex
	pending int
	text    string
}

func (r *fakeRecognizer) Accept(samples []float32, sampleRate int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending += len(samples)
	return nil
}

func (r *fakeRecognizer) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending > 0
}

func (r *fakeRecognizer) Decode() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = 0
	r.text = "hello"
	return nil
}

func (r *fakeRecognizer) CurrentText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

func (r *fakeRecognizer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = ""
	r.pending = 0
}

func (r *fakeRecognizer) Close() error { return nil }

type fakeSink struct {
	mu    sync.Mutex
	texts []string
}

func (s *fakeSink) SetPreview(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func newTestDaemon(t *testing.T) (*daemon, *tmux.Client) {
	t.Helper()
	src := newFakeSource()
	rec := &fakeRecognizer{}
	eng := engine.New(engine.Config{HotMic: false, SampleRate: 1000, ChunkMs: 10, SilencePrimeMs: 0},
		src, rec, punctuator.Noop{})
	require.NoError(t, eng.Init())

	var tmuxCalls [][]string
	var tmuxMu sync.Mutex
	client := &tmux.Client{Runner: func(name string, args ...string) error {
		tmuxMu.Lock()
		tmuxCalls = append(tmuxCalls, append([]string{name}, args...))
		tmuxMu.Unlock()
		return nil
	}}
	emitter := preview.NewEmitter(&fakeSink{}, time.Millisecond)
	d := newDaemon(envconfig.Config{}, eng, emitter, client, logging.NoOp{}, nil)
	return d, client
}

// TestToggleSecondCallWhileStoppingIsNoOp exercises the stopping-flag
// dedup: once a stop-toggle has kicked off the async stop+paste, a second
// toggle that arrives before it finishes must not touch the engine at
// all — it should see stopping and return immediately.
func TestToggleSecondCallWhileStoppingIsNoOp(t *testing.T) {
	d, _ := newTestDaemon(t)
	require.NoError(t, d.eng.Start())
	assert.True(t, d.eng.IsListening())

	d.Toggle("%1")

	d.mu.Lock()
	stopping := d.stopping
	d.mu.Unlock()
	assert.True(t, stopping, "first stop-toggle should mark the daemon stopping")

	d.Toggle("%1")

	d.mu.Lock()
	stillStopping := d.stopping
	d.mu.Unlock()
	assert.True(t, stillStopping, "second toggle must be a silent no-op, not start a new stop")

	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return !d.stopping
	}, time.Second, time.Millisecond, "stopping flag should clear once stopAndMaybePaste finishes")

	assert.True(t, d.eng.IsReady())
	assert.False(t, d.eng.IsListening())
	require.NoError(t, d.eng.Shutdown())
}

func TestToggleStartsWhenIdleAndReady(t *testing.T) {
	d, _ := newTestDaemon(t)
	assert.True(t, d.eng.IsReady())
	assert.False(t, d.eng.IsListening())

	d.Toggle("%1")
	assert.True(t, d.eng.IsListening())

	_, err := d.eng.StopQuick()
	require.NoError(t, err)
	require.NoError(t, d.eng.Shutdown())
}

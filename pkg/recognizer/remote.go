package recognizer

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// RemoteConfig configures the realtime WebSocket recognizer.
type RemoteConfig struct {
	Host     string
	APIKey   string
	Language string
}

type remoteMessage struct {
	Type  string `json:"type"` // "partial" | "final" | "error"
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Remote streams audio to a realtime transcription service over a single
// WebSocket connection and folds partial/final messages read by a
// background goroutine into state guarded by mu: it dials once, writes
// audio as binary messages, and reads transcript JSON messages off the
// same connection.
type Remote struct {
	cfg RemoteConfig

	mu      sync.Mutex
	conn    *websocket.Conn
	ctx     context.Context
	cancel  context.CancelFunc
	partial string
	final   string
	readErr error
	closed  bool

	// updates carries a signal (not a payload) each time readLoop updates
	// partial or final, so a caller can bridge transcript changes onto a
	// live preview without consuming them the way CurrentText does. It is
	// buffered 1 and coalesces: a pending signal means "something changed
	// since you last looked," not "exactly one change happened."
	updates chan struct{}
}

func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("recognizer: remote requires an API key")
	}
	if cfg.Host == "" {
		cfg.Host = "api.listen-cli.dev"
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Remote{cfg: cfg, ctx: ctx, cancel: cancel, updates: make(chan struct{}, 1)}

	u := url.URL{Scheme: "wss", Host: cfg.Host, Path: "/v1/stream", RawQuery: "api_key=" + cfg.APIKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("recognizer: dial remote stream: %w", err)
	}
	r.conn = conn

	req := map[string]interface{}{"language": cfg.Language}
	if err := wsjson.Write(ctx, conn, req); err != nil {
		conn.Close(websocket.StatusAbnormalClosure, "failed to write init request")
		cancel()
		return nil, fmt.Errorf("recognizer: send init request: %w", err)
	}

	go r.readLoop()
	return r, nil
}

func (r *Remote) readLoop() {
	for {
		var msg remoteMessage
		if err := wsjson.Read(r.ctx, r.conn, &msg); err != nil {
			r.mu.Lock()
			if !r.closed {
				r.readErr = fmt.Errorf("recognizer: remote read: %w", err)
			}
			r.mu.Unlock()
			return
		}
		r.mu.Lock()
		switch msg.Type {
		case "partial":
			r.partial = msg.Text
		case "final":
			r.final = msg.Text
			r.partial = ""
		case "error":
			r.readErr = fmt.Errorf("recognizer: remote error: %s", msg.Error)
		}
		r.mu.Unlock()

		select {
		case r.updates <- struct{}{}:
		default:
		}
	}
}

func (r *Remote) Accept(samples []float32, sampleRate int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	pcm := floatToPCM16(samples)
	if err := r.conn.Write(r.ctx, websocket.MessageBinary, pcm); err != nil {
		return fmt.Errorf("recognizer: write audio frame: %w", err)
	}
	return nil
}

// IsReady always reports false for the remote backend: transcripts arrive
// asynchronously on the read-loop goroutine, not synchronously from a
// Decode call, so the façade relies on Updates/Peek for live preview and
// on CurrentText only when finalizing an utterance.
func (r *Remote) IsReady() bool { return false }

func (r *Remote) Decode() error { return nil }

// CurrentText returns and consumes the latest final transcript if one
// has arrived, otherwise the latest partial. It is meant to be called
// once, when finalizing an utterance — repeated calls after a final has
// been consumed return whatever partial text (if any) has arrived since.
func (r *Remote) CurrentText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.final != "" {
		text := r.final
		r.final = ""
		return text
	}
	return r.partial
}

// Updates signals whenever Peek's result may have changed.
func (r *Remote) Updates() <-chan struct{} { return r.updates }

// Peek reports the current best transcript (final if one has arrived,
// otherwise partial) without consuming it, for a live preview that
// shouldn't interfere with CurrentText's later read.
func (r *Remote) Peek() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.final != "" {
		return r.final
	}
	return r.partial
}

func (r *Remote) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readErr
}

func (r *Remote) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partial = ""
	r.final = ""
}

func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.cancel()
	return r.conn.Close(websocket.StatusNormalClosure, "")
}

func floatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

// Package engine is the ASR façade: it owns the audio source, the
// pre-roll ring, the streaming recognizer, and the punctuator, and
// exposes the lifecycle the control server drives.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/listen-cli/listend/pkg/audio"
	"github.com/listen-cli/listend/pkg/logging"
	"github.com/listen-cli/listend/pkg/preroll"
	"github.com/listen-cli/listend/pkg/punctuator"
	"github.com/listen-cli/listend/pkg/recognizer"
)

// Start and StopQuick each claim their state transition under mu, so a
// concurrent duplicate call returns an error instead of running twice;
// Shutdown is not coordinated with a Start or StopQuick that is already
// in progress, and the control server does not serialize calls. The recognizer and
// the pre-roll ring are each owned exclusively by one goroutine at a
// time (captureLoop in hot-mic mode) so neither is ever touched from two
// goroutines at once.
type Engine struct {
	cfg    Config
	source audio.Source
	rec    recognizer.Recognizer
	punct  punctuator.Punctuator
	ring   *preroll.Ring
	log    logging.Logger

	onPartial func(string)
	onError   func(error)

	mu    sync.Mutex
	state State

	feeding             bool // true once capture goroutine should drive the recognizer
	firstStartAfterInit bool // first Start after Init discards the ring instead of draining it
	utterance           []float32

	stopCapture chan struct{}
	captureDone chan struct{}

	// startReq/stopReq hand the ring-priming and recognizer-finalization
	// work to the long-lived capture goroutine in hot-mic mode, so Start
	// and StopQuick never touch the recognizer or the ring directly while
	// captureLoop might also be mid-call on them.
	startReq chan chan struct{}
	stopReq  chan chan stopResult

	readyWatchers []chan struct{}
	closeOnce     sync.Once
}

type stopResult struct {
	text string
	err  error
}

type Option func(*Engine)

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithOnPartial(f func(string)) Option {
	return func(e *Engine) { e.onPartial = f }
}

func WithOnError(f func(error)) Option {
	return func(e *Engine) { e.onError = f }
}

// New constructs an Engine in StateUninitialized. Call Init to advance it
// through its lifecycle phases to StateReady.
func New(cfg Config, source audio.Source, rec recognizer.Recognizer, punct punctuator.Punctuator, opts ...Option) *Engine {
	if cfg.SampleRate == 0 {
		cfg = defaultConfig()
	}
	e := &Engine{
		cfg:                 cfg,
		source:              source,
		rec:                 rec,
		punct:               punct,
		ring:                preroll.NewRing(cfg.SampleRate, cfg.PrerollSeconds),
		log:                 logging.NoOp{},
		firstStartAfterInit: true,
		startReq:            make(chan chan struct{}),
		stopReq:             make(chan chan stopResult),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) IsReady() bool {
	s := e.State()
	return s == StateReady || s == StateListening || s == StateStopping
}

func (e *Engine) IsListening() bool {
	return e.State() == StateListening
}

// Init runs the construction-time lifecycle: model load already happened
// in the recognizer constructor. For hot-mic configurations it opens the
// audio device, starts the capture goroutine (which begins filling the
// pre-roll ring), and waits SilencePrimeMs before declaring the engine
// Ready; no silence is fed to the recognizer here and no initial reads
// are discarded. Per-utterance configurations open the device on each
// Start instead, so Init only declares them Ready.
func (e *Engine) Init() error {
	e.mu.Lock()
	if e.state != StateUninitialized {
		e.mu.Unlock()
		return nil
	}
	e.state = StateLoading
	e.mu.Unlock()

	if e.cfg.HotMic {
		if err := e.source.Open(); err != nil {
			return fmt.Errorf("engine: open audio source: %w", err)
		}
		e.stopCapture = make(chan struct{})
		e.captureDone = make(chan struct{})
		go e.captureLoop()
		time.Sleep(time.Duration(e.cfg.SilencePrimeMs) * time.Millisecond)
	}

	e.mu.Lock()
	e.state = StateReady
	watchers := e.readyWatchers
	e.readyWatchers = nil
	e.mu.Unlock()
	for _, ch := range watchers {
		close(ch)
	}
	return nil
}

// Prewarm runs Init synchronously. It adds no model warm-up of its own:
// recognizers load their models eagerly at construction, matching the
// original daemon's sherpa-onnx prewarm behavior of "nothing else to do"
// beyond whatever Init performs.
func (e *Engine) Prewarm() error {
	return e.Init()
}

// WatchReady returns a channel that closes once the engine reaches
// StateReady, or a nil channel if it already has.
func (e *Engine) WatchReady() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateUninitialized && e.state != StateLoading {
		return nil
	}
	ch := make(chan struct{})
	e.readyWatchers = append(e.readyWatchers, ch)
	return ch
}

// Start begins feeding captured audio to the recognizer. For hot-mic
// engines the capture goroutine is already running and buffering into
// the pre-roll ring; the very first Start after Init discards that ring
// instead of draining it, since it only holds the boot/silence-prime
// noise captured during Init, not real pre-toggle speech. Every
// subsequent Start drains the ring into the recognizer before switching
// the goroutine to feed it directly, so utterance text includes audio
// captured just before the toggle. Either way a short run of silence is
// fed first to give the recognizer acoustic context before live audio.
func (e *Engine) Start() error {
	e.mu.Lock()
	switch e.state {
	case StateShutdown:
		e.mu.Unlock()
		return ErrShutdown
	case StateListening:
		e.mu.Unlock()
		return ErrAlreadyStarted
	case StateReady:
	default:
		e.mu.Unlock()
		return ErrNotReady
	}
	e.state = StateListening
	e.mu.Unlock()

	if !e.cfg.HotMic {
		if err := e.source.Open(); err != nil {
			e.mu.Lock()
			e.state = StateReady
			e.mu.Unlock()
			return fmt.Errorf("engine: open audio source: %w", err)
		}
		e.rec.Reset()
		e.primeUtterance()
		e.mu.Lock()
		e.utterance = e.utterance[:0]
		e.feeding = true
		e.mu.Unlock()
		e.stopCapture = make(chan struct{})
		e.captureDone = make(chan struct{})
		go e.captureLoop()
		return nil
	}

	reply := make(chan struct{})
	e.startReq <- reply
	<-reply
	return nil
}

// handleStart runs on the capture goroutine: it is the sole owner of the
// ring and the recognizer while the hot-mic loop is alive, so priming a
// new utterance never races with captureLoop's own reads of them.
func (e *Engine) handleStart() {
	e.rec.Reset()
	if e.firstStartAfterInit {
		e.ring.Clear()
		e.firstStartAfterInit = false
	} else {
		for _, chunk := range e.ring.Drain() {
			if err := e.rec.Accept(chunk.Samples, chunk.SampleRate); err != nil {
				e.log.Warn("preroll accept failed", "err", err)
			}
		}
	}
	e.primeUtterance()

	e.mu.Lock()
	e.utterance = e.utterance[:0]
	e.feeding = true
	e.mu.Unlock()
}

// primeUtterance feeds a short run of silence into the recognizer ahead
// of live audio, giving a streaming transducer acoustic context before
// the first real frame instead of starting cold.
func (e *Engine) primeUtterance() {
	padding := e.cfg.SampleRate * e.cfg.SilencePrimeMs / 1000
	if padding <= 0 {
		return
	}
	if err := e.rec.Accept(make([]float32, padding), e.cfg.SampleRate); err != nil {
		e.log.Warn("padding accept failed", "err", err)
	}
}

// LastUtterance returns the raw samples captured during the most recent
// utterance and the sample rate they were captured at, for optional
// debug export. Valid after StopQuick returns until the next Start.
func (e *Engine) LastUtterance() ([]float32, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]float32, len(e.utterance))
	copy(out, e.utterance)
	return out, e.cfg.SampleRate
}

// StopQuick ends the current utterance and returns its finalized,
// punctuated text (possibly empty). It is idempotent against concurrent
// callers: only the caller that observes StateListening performs the
// stop; everyone else gets ErrNotListening, so at most one stop is ever
// in flight. In hot-mic mode the finalization itself (draining the
// recognizer, reading its text, resetting it, clearing the ring) runs on
// the capture goroutine via stopReq rather than here, since that
// goroutine is the recognizer's sole owner; in per-utterance mode the
// capture goroutine has already exited by the time we touch either, so
// no handoff is needed.
func (e *Engine) StopQuick() (string, error) {
	e.mu.Lock()
	if e.state != StateListening {
		e.mu.Unlock()
		return "", ErrNotListening
	}
	e.state = StateStopping
	e.mu.Unlock()

	var text string
	if e.cfg.HotMic {
		reply := make(chan stopResult)
		e.stopReq <- reply
		res := <-reply
		if res.err != nil {
			e.reportError(res.err)
		}
		text = res.text
	} else {
		e.mu.Lock()
		e.feeding = false
		e.mu.Unlock()
		close(e.stopCapture)
		<-e.captureDone
		e.source.Close()

		for e.rec.IsReady() {
			if err := e.rec.Decode(); err != nil {
				e.reportError(fmt.Errorf("engine: decode: %w", err))
				break
			}
		}
		text = e.rec.CurrentText()
		e.rec.Reset()
		e.ring.Clear()
	}

	if text != "" {
		if punctuated, err := e.punct.Punctuate(text); err != nil {
			e.reportError(fmt.Errorf("engine: punctuate: %w", err))
		} else {
			text = punctuated
		}
	}

	e.mu.Lock()
	e.state = StateReady
	e.mu.Unlock()
	return text, nil
}

// handleStop runs on the capture goroutine, finalizing the recognizer
// and clearing the ring without any locking beyond the feeding flag,
// since nothing else touches either while this goroutine is alive.
func (e *Engine) handleStop() stopResult {
	e.mu.Lock()
	e.feeding = false
	e.mu.Unlock()

	var decodeErr error
	for e.rec.IsReady() {
		if err := e.rec.Decode(); err != nil {
			decodeErr = fmt.Errorf("engine: decode: %w", err)
			break
		}
	}
	text := e.rec.CurrentText()
	e.rec.Reset()
	e.ring.Clear()
	return stopResult{text: text, err: decodeErr}
}

// Shutdown is idempotent and releases every owned resource: the audio
// source, the recognizer's ONNX sessions, and the punctuator's session.
func (e *Engine) Shutdown() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		wasListening := e.state == StateListening
		e.state = StateShutdown
		e.feeding = false
		e.mu.Unlock()

		if e.cfg.HotMic || wasListening {
			if e.stopCapture != nil {
				select {
				case <-e.stopCapture:
				default:
					close(e.stopCapture)
				}
				<-e.captureDone
			}
			e.source.Close()
		}
		e.rec.Close()
		e.punct.Close()
	})
	return nil
}

// capturedChunk carries one audio.Source.Read result from the dedicated
// reader goroutine to captureLoop's select.
type capturedChunk struct {
	chunk audio.Chunk
	err   error
}

// captureLoop is, in hot-mic mode, the sole owner of the recognizer and
// the pre-roll ring for the engine's lifetime: Start and StopQuick hand
// it priming/finalization work over startReq/stopReq instead of touching
// either directly, so there is never more than one goroutine calling
// into the recognizer or the ring at a time. In per-utterance mode it
// runs for a single utterance and never touches the ring; StopQuick waits
// for it to exit before touching the recognizer itself.
//
// Reading the source is delegated to a small goroutine feeding chunkCh,
// since audio.Source.Read blocks: folding it directly into this
// function's loop would make it unreachable while blocked waiting for
// the next chunk, starving startReq/stopReq/updates of a chance to run.
func (e *Engine) captureLoop() {
	defer close(e.captureDone)

	var updates <-chan struct{}
	var peek func() string
	if u, ok := e.rec.(recognizer.Updater); ok {
		updates = u.Updates()
		peek = u.Peek
	}

	chunkCh := make(chan capturedChunk)
	go func() {
		for {
			chunk, err := e.source.Read()
			select {
			case chunkCh <- capturedChunk{chunk, err}:
			case <-e.stopCapture:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-e.stopCapture:
			return

		case reply := <-e.startReq:
			e.handleStart()
			close(reply)

		case reply := <-e.stopReq:
			reply <- e.handleStop()

		case <-updates:
			e.mu.Lock()
			feeding := e.feeding
			e.mu.Unlock()
			if feeding && peek != nil {
				if text := peek(); text != "" && e.onPartial != nil {
					e.onPartial(text)
				}
			}

		case res := <-chunkCh:
			if res.err != nil {
				if res.err == audio.ErrClosed {
					return
				}
				e.reportError(fmt.Errorf("engine: capture: %w", res.err))
				continue
			}

			e.mu.Lock()
			feeding := e.feeding
			e.mu.Unlock()

			if feeding {
				e.mu.Lock()
				e.utterance = append(e.utterance, res.chunk.Samples...)
				e.mu.Unlock()

				if err := e.rec.Accept(res.chunk.Samples, res.chunk.SampleRate); err != nil {
					e.reportError(fmt.Errorf("engine: accept: %w", err))
					continue
				}
				for e.rec.IsReady() {
					if err := e.rec.Decode(); err != nil {
						e.reportError(fmt.Errorf("engine: decode: %w", err))
						break
					}
					if text := e.rec.CurrentText(); text != "" && e.onPartial != nil {
						e.onPartial(text)
					}
				}
			} else if e.cfg.HotMic {
				e.ring.Append(res.chunk)
			}
		}
	}
}

func (e *Engine) reportError(err error) {
	e.log.Error("engine error", "err", err)
	if e.onError != nil {
		e.onError(err)
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/listen-cli/listend/internal/envconfig"
	"github.com/listen-cli/listend/pkg/audio"
	"github.com/listen-cli/listend/pkg/engine"
	"github.com/listen-cli/listend/pkg/logging"
	"github.com/listen-cli/listend/pkg/preview"
	"github.com/listen-cli/listend/pkg/tmux"
)

// daemon wires the engine façade, the preview emitter, and tmux delivery
// together and implements control.Handler. It is the Go counterpart of
// the original ASRDaemon class: toggle() has the exact same three-way
// branch (idle+ready -> start, idle+not-ready -> "Loading…", listening ->
// mark stopping and hand off to an async stop+paste).
type daemon struct {
	cfg     envconfig.Config
	eng     *engine.Engine
	emitter *preview.Emitter
	tmux    *tmux.Client
	log     logging.Logger

	debug *debugRecorder

	mu       sync.Mutex
	stopping bool
}

func newDaemon(cfg envconfig.Config, eng *engine.Engine, emitter *preview.Emitter, client *tmux.Client, log logging.Logger, debug *debugRecorder) *daemon {
	return &daemon{cfg: cfg, eng: eng, emitter: emitter, tmux: client, log: log, debug: debug}
}

func (d *daemon) Toggle(paneID string) {
	d.mu.Lock()
	listening := d.eng.IsListening()
	stopping := d.stopping
	d.mu.Unlock()

	if !listening && !stopping {
		if !d.eng.IsReady() {
			d.emitter.Force("Loading…")
			d.watchReady()
			return
		}
		d.start()
		return
	}
	if stopping {
		d.log.Debug("toggle ignored (stopping)")
		return
	}

	d.mu.Lock()
	d.stopping = true
	d.mu.Unlock()
	d.tmux.StatusOn(false)
	d.emitter.Force("Pasting…")
	go d.stopAndMaybePaste(paneID)
}

func (d *daemon) start() {
	d.log.Debug("toggle start")
	d.tmux.StatusOn(true)
	d.emitter.Force("")
	if err := d.eng.Start(); err != nil {
		d.tmux.StatusOn(false)
		d.emitter.Force("Error: " + err.Error())
		d.log.Error("engine start failed", "err", err)
	}
}

func (d *daemon) stopAndMaybePaste(paneID string) {
	defer func() {
		d.mu.Lock()
		d.stopping = false
		d.mu.Unlock()
	}()

	text, err := d.eng.StopQuick()
	if err != nil {
		d.log.Error("stop_quick failed", "err", err)
		d.emitter.Force("")
		return
	}
	if d.debug != nil {
		samples, rate := d.eng.LastUtterance()
		d.debug.save(text, samples, rate)
	}
	if strings.TrimSpace(text) != "" && paneID != "" {
		if err := d.tmux.PasteIntoPane(paneID, text); err != nil {
			d.log.Error("paste failed", "err", err)
		}
	}
	d.emitter.Force("")
}

// watchReady mirrors the original daemon's background "Loading…"
// watcher: it blocks on WatchReady (a no-op if already ready) and clears
// the status message once the engine becomes usable.
func (d *daemon) watchReady() {
	ch := d.eng.WatchReady()
	if ch == nil {
		return
	}
	go func() {
		<-ch
		d.emitter.Force("")
		d.tmux.Message("")
	}()
}

func (d *daemon) onPartial(text string) {
	d.emitter.Partial(text)
}

func (d *daemon) onError(err error) {
	d.emitter.Force("Error: " + err.Error())
}

// debugRecorder logs each finalized utterance's text and, alongside it,
// dumps the utterance's raw samples as a WAV file when LISTEN_DEBUG is
// set, mirroring the original daemon's debug_log/DEBUG_PATH behavior
// extended to cover audio as well as text.
type debugRecorder struct {
	path string
	dir  string
	seq  int
}

func newDebugRecorder(cfg envconfig.Config) *debugRecorder {
	if !cfg.Debug {
		return nil
	}
	return &debugRecorder{path: cfg.DebugLog, dir: filepath.Dir(cfg.DebugLog)}
}

func (d *debugRecorder) save(text string, samples []float32, sampleRate int) {
	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err == nil {
		f.WriteString(time.Now().Format(time.RFC3339) + " final: " + text + "\n")
		f.Close()
	}

	if len(samples) == 0 {
		return
	}
	d.seq++
	wavPath := filepath.Join(d.dir, fmt.Sprintf("utterance-%04d.wav", d.seq))
	if err := os.WriteFile(wavPath, audio.NewWavBuffer(samples, sampleRate), 0o644); err != nil {
		return
	}
}

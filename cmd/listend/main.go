// Command listend is the ASR sidecar daemon: one instance runs per
// terminal multiplexer session in a hidden window, listening on a Unix
// control socket for TOGGLE/PING commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/listen-cli/listend/internal/envconfig"
	"github.com/listen-cli/listend/pkg/audio"
	"github.com/listen-cli/listend/pkg/control"
	"github.com/listen-cli/listend/pkg/engine"
	"github.com/listen-cli/listend/pkg/logging"
	"github.com/listen-cli/listend/pkg/preview"
	"github.com/listen-cli/listend/pkg/punctuator"
	"github.com/listen-cli/listend/pkg/recognizer"
	"github.com/listen-cli/listend/pkg/tmux"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "listend: no .env file found, using process environment")
	}

	cfg, err := envconfig.Loader{}.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "listend:", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	log.Info("starting", "session", cfg.Session, "socket", cfg.Socket)

	rec, provider, err := recognizer.New(cfg)
	if err != nil {
		log.Error("recognizer init failed", "err", err)
		os.Exit(1)
	}

	var punct = punctuatorFor(cfg, log)

	hotMic := cfg.UsesHotMic(provider)
	source := audio.NewMicSource(cfg.SampleRate, cfg.ChunkMs)

	tmuxClient := tmux.NewClient(cfg.TmuxSocket)
	emitter := preview.NewEmitter(preview.TmuxSink{Client: tmuxClient}, cfg.HUDThrottle())
	debug := newDebugRecorder(cfg)

	d := newDaemon(cfg, nil, emitter, tmuxClient, log, debug)

	eng := engine.New(engine.Config{
		HotMic:         hotMic,
		SampleRate:     cfg.SampleRate,
		ChunkMs:        cfg.ChunkMs,
		PrerollSeconds: cfg.PrerollSeconds,
		SilencePrimeMs: 120,
	}, source, rec, punct,
		engine.WithLogger(log),
		engine.WithOnPartial(d.onPartial),
		engine.WithOnError(d.onError),
	)
	d.eng = eng

	tmuxClient.Preview("")
	tmuxClient.StatusOn(false)

	shouldPrewarm := cfg.Prewarm == "always" || (cfg.Prewarm == "auto" && provider == "local")
	if shouldPrewarm {
		log.Debug("prewarm start")
		if err := eng.Prewarm(); err != nil {
			log.Error("prewarm failed", "err", err)
		} else {
			log.Debug("prewarm done")
		}
	} else {
		go func() {
			if err := eng.Init(); err != nil {
				log.Error("engine init failed", "err", err)
			}
		}()
	}

	srv := control.New(cfg.Socket, d, log)
	if err := srv.Listen(); err != nil {
		log.Error("listen failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutdown signal received")
		cancel()
	}()

	go func() {
		if err := srv.Serve(ctx); err != nil {
			log.Error("serve failed", "err", err)
		}
	}()

	<-ctx.Done()
	if eng.IsListening() {
		log.Debug("shutdown while listening")
		_, _ = eng.StopQuick()
	}
	log.Debug("daemon shutdown begin")
	if err := eng.Shutdown(); err != nil {
		log.Error("engine shutdown failed", "err", err)
	}
	srv.Close()
	log.Debug("daemon shutdown done")
}

func punctuatorFor(cfg envconfig.Config, log logging.Logger) punctuator.Punctuator {
	if cfg.DisablePunct || cfg.PunctModelDir == "" {
		return punctuator.Noop{}
	}
	p, err := punctuator.NewONNX(punctuator.ONNXConfig{
		ModelDir:   cfg.PunctModelDir,
		Provider:   cfg.PunctProvider,
		Threads:    cfg.PunctThreads,
		ORTLibPath: cfg.SherpaORTLib,
		DevMode:    cfg.DevMode,
	})
	if err != nil {
		log.Warn("punctuation model unavailable, falling back to capitalization", "err", err)
		return punctuator.Noop{}
	}
	return p
}

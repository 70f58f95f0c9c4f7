// Package envconfig loads listend's configuration from environment
// variables.
package envconfig

import "time"

type Config struct {
	Session string
	Socket  string

	ASRProvider string // "" means auto-detect
	Prewarm     string // auto|always|never

	HotMicOverride string // "" means auto (provider-dependent)
	PrerollSeconds float64

	SampleRate int
	ChunkMs    int

	HUDThrottleMs int

	SherpaTokens   string
	SherpaEncoder  string
	SherpaDecoder  string
	SherpaJoiner   string
	SherpaModelDir string
	SherpaProvider string
	SherpaThreads  int
	SherpaDecoding string
	SherpaORTLib   string

	DisablePunct  bool
	PunctModelDir string
	PunctProvider string
	PunctThreads  int

	RemoteProvider string
	RemoteAPIKey   string
	RemoteHost     string

	TmuxSocket string

	DevMode bool
	Debug   bool
	DebugLog string

	LogLevel string
}

func defaults() Config {
	return Config{
		PrerollSeconds: 0.4,
		SampleRate:     48000,
		ChunkMs:        100,
		HUDThrottleMs:  75,
		SherpaProvider: "cpu",
		SherpaThreads:  1,
		SherpaDecoding: "greedy_search",
		PunctProvider:  "cpu",
		PunctThreads:   1,
		Prewarm:        "auto",
		LogLevel:       "info",
	}
}

func (c Config) HUDThrottle() time.Duration {
	return time.Duration(c.HUDThrottleMs) * time.Millisecond
}

func (c Config) DefaultSocketPath() string {
	return "/tmp/listen-" + c.Session + ".sock"
}

package envconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Loader loads Config from environment variables. Tests override Lookup
// to inject deterministic maps instead of touching the process environment.
type Loader struct {
	Lookup func(string) (string, bool)
}

// ErrSessionRequired is returned when LISTEN_SESSION is unset.
var ErrSessionRequired = fmt.Errorf("LISTEN_SESSION env var is required")

func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	cfg := defaults()

	session, ok := l.Lookup("LISTEN_SESSION")
	if !ok || strings.TrimSpace(session) == "" {
		return Config{}, ErrSessionRequired
	}
	cfg.Session = session

	overrideString(l.Lookup, "LISTEN_SOCKET", &cfg.Socket)
	if cfg.Socket == "" {
		cfg.Socket = cfg.DefaultSocketPath()
	}

	overrideString(l.Lookup, "LISTEN_ASR_PROVIDER", &cfg.ASRProvider)
	cfg.ASRProvider = strings.ToLower(cfg.ASRProvider)
	overrideString(l.Lookup, "LISTEN_PREWARM", &cfg.Prewarm)
	cfg.Prewarm = strings.ToLower(cfg.Prewarm)
	overrideString(l.Lookup, "BACKGROUND_ALWAYS_LISTEN", &cfg.HotMicOverride)
	cfg.HotMicOverride = strings.ToLower(cfg.HotMicOverride)

	if err := overrideFloat(l.Lookup, "BACKGROUND_PREBUFFER_SECONDS", &cfg.PrerollSeconds); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "LISTEN_SAMPLE_RATE", &cfg.SampleRate); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "LISTEN_CHUNK_MS", &cfg.ChunkMs); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "LISTEN_HUD_THROTTLE_MS", &cfg.HUDThrottleMs); err != nil {
		return Config{}, err
	}

	overrideString(l.Lookup, "LISTEN_SHERPA_TOKENS", &cfg.SherpaTokens)
	overrideString(l.Lookup, "LISTEN_SHERPA_ENCODER", &cfg.SherpaEncoder)
	overrideString(l.Lookup, "LISTEN_SHERPA_DECODER", &cfg.SherpaDecoder)
	overrideString(l.Lookup, "LISTEN_SHERPA_JOINER", &cfg.SherpaJoiner)
	overrideString(l.Lookup, "LISTEN_SHERPA_MODEL_DIR", &cfg.SherpaModelDir)
	overrideString(l.Lookup, "LISTEN_SHERPA_PROVIDER", &cfg.SherpaProvider)
	overrideString(l.Lookup, "LISTEN_SHERPA_DECODING", &cfg.SherpaDecoding)
	overrideString(l.Lookup, "LISTEN_SHERPA_ORT_LIB", &cfg.SherpaORTLib)
	if err := overrideInt(l.Lookup, "LISTEN_SHERPA_THREADS", &cfg.SherpaThreads); err != nil {
		return Config{}, err
	}

	if _, ok := l.Lookup("LISTEN_DISABLE_PUNCT"); ok {
		cfg.DisablePunct = true
	}
	overrideString(l.Lookup, "LISTEN_PUNCT_MODEL_DIR", &cfg.PunctModelDir)
	overrideString(l.Lookup, "LISTEN_PUNCT_PROVIDER", &cfg.PunctProvider)
	if err := overrideInt(l.Lookup, "LISTEN_PUNCT_THREADS", &cfg.PunctThreads); err != nil {
		return Config{}, err
	}

	overrideString(l.Lookup, "LISTEN_REMOTE_PROVIDER", &cfg.RemoteProvider)
	if cfg.RemoteProvider != "" {
		key := strings.ToUpper(cfg.RemoteProvider) + "_API_KEY"
		overrideString(l.Lookup, key, &cfg.RemoteAPIKey)
	}
	overrideString(l.Lookup, "LISTEN_REMOTE_HOST", &cfg.RemoteHost)

	overrideString(l.Lookup, "TMUX_SOCKET", &cfg.TmuxSocket)

	if _, ok := l.Lookup("LISTEN_DEV_MODE"); ok {
		cfg.DevMode = true
	}
	if _, ok := l.Lookup("LISTEN_DEBUG"); ok {
		cfg.Debug = true
	}
	cfg.DebugLog = "/tmp/listen-daemon.log"
	overrideString(l.Lookup, "LISTEN_DEBUG_LOG", &cfg.DebugLog)

	overrideString(l.Lookup, "LISTEN_LOG_LEVEL", &cfg.LogLevel)

	return cfg, nil
}

// UsesHotMic decides whether the engine should run hot-mic mode for the
// given provider name, honoring BACKGROUND_ALWAYS_LISTEN overrides.
func (c Config) UsesHotMic(provider string) bool {
	switch c.HotMicOverride {
	case "always", "on", "true", "1", "yes":
		return true
	case "never", "off", "false", "0", "no":
		return false
	}
	return provider == "local"
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideFloat(lookup func(string) (string, bool), key string, target *float64) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("envconfig: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("envconfig: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

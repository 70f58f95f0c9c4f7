package recognizer

import (
	"fmt"
	"os"

	"github.com/listen-cli/listend/internal/envconfig"
)

// New builds the configured recognizer, resolving LISTEN_ASR_PROVIDER the
// way listen_cli.asr.make_engine did: an explicit provider name wins,
// else local is tried if its model paths resolve, else remote is tried
// if an API key is present, else construction fails with a clear error.
func New(cfg envconfig.Config) (Recognizer, string, error) {
	provider := cfg.ASRProvider

	build := func(name string) (Recognizer, string, error) {
		switch name {
		case "local":
			if !localModelFilesExist(cfg) {
				return nil, "", fmt.Errorf("recognizer: missing sherpa model paths for local provider")
			}
			rec, err := NewLocal(LocalConfig{
				Tokens: cfg.SherpaTokens, Encoder: cfg.SherpaEncoder,
				Decoder: cfg.SherpaDecoder, Joiner: cfg.SherpaJoiner,
				Provider: cfg.SherpaProvider, Threads: cfg.SherpaThreads,
				Decoding: cfg.SherpaDecoding, ORTLibPath: cfg.SherpaORTLib,
				DevMode: cfg.DevMode, SampleRate: 16000, FeatureDim: 80,
			})
			return rec, name, err
		case "remote":
			rec, err := NewRemote(RemoteConfig{Host: cfg.RemoteHost, APIKey: cfg.RemoteAPIKey})
			return rec, name, err
		default:
			return nil, "", fmt.Errorf("recognizer: unknown provider %q", name)
		}
	}

	if provider != "" {
		return build(provider)
	}
	if localModelFilesExist(cfg) {
		return build("local")
	}
	if cfg.RemoteAPIKey != "" {
		return build("remote")
	}
	return nil, "", fmt.Errorf("recognizer: no ASR provider configured; set LISTEN_SHERPA_* paths or a remote provider API key")
}

func localModelFilesExist(cfg envconfig.Config) bool {
	if cfg.SherpaTokens != "" && cfg.SherpaEncoder != "" && cfg.SherpaDecoder != "" && cfg.SherpaJoiner != "" {
		return fileExists(cfg.SherpaTokens) && fileExists(cfg.SherpaEncoder) &&
			fileExists(cfg.SherpaDecoder) && fileExists(cfg.SherpaJoiner)
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

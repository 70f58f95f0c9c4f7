package engine

// State is the façade's lifecycle state machine: Uninitialized -> Loading
// -> Ready/Idle <-> Listening -> Stopping -> Ready/Idle, with Shutdown
// terminal from any state.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateListening
	StateStopping
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Config selects hot-mic vs per-utterance lifecycle and the timing knobs
// that lifecycle needs.
type Config struct {
	HotMic         bool
	SampleRate     int
	ChunkMs        int
	PrerollSeconds float64
	SilencePrimeMs int // hot-mic Init waits this long before Ready; every Start feeds this much silence
}

func defaultConfig() Config {
	return Config{SampleRate: 48000, ChunkMs: 100, PrerollSeconds: 0.4, SilencePrimeMs: 120}
}

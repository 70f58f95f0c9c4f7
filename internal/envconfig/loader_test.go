package envconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoadRequiresSession(t *testing.T) {
	_, err := Loader{Lookup: lookupFrom(map[string]string{})}.Load()
	require.ErrorIs(t, err, ErrSessionRequired)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Loader{Lookup: lookupFrom(map[string]string{
		"LISTEN_SESSION": "main",
	})}.Load()
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Session)
	assert.Equal(t, "/tmp/listen-main.sock", cfg.Socket)
	assert.Equal(t, 0.4, cfg.PrerollSeconds)
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, 75, cfg.HUDThrottleMs)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Loader{Lookup: lookupFrom(map[string]string{
		"LISTEN_SESSION":               "dev",
		"LISTEN_SOCKET":                "/tmp/custom.sock",
		"BACKGROUND_PREBUFFER_SECONDS": "1.5",
		"LISTEN_HUD_THROTTLE_MS":       "200",
		"LISTEN_DISABLE_PUNCT":         "1",
	})}.Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.sock", cfg.Socket)
	assert.Equal(t, 1.5, cfg.PrerollSeconds)
	assert.Equal(t, 200, cfg.HUDThrottleMs)
	assert.True(t, cfg.DisablePunct)
}

func TestLoadInvalidNumber(t *testing.T) {
	_, err := Loader{Lookup: lookupFrom(map[string]string{
		"LISTEN_SESSION":         "main",
		"LISTEN_HUD_THROTTLE_MS": "not-a-number",
	})}.Load()
	assert.Error(t, err)
}

func TestUsesHotMic(t *testing.T) {
	cfg := Config{}
	assert.True(t, cfg.UsesHotMic("local"))
	assert.False(t, cfg.UsesHotMic("remote"))

	cfg.HotMicOverride = "always"
	assert.True(t, cfg.UsesHotMic("remote"))

	cfg.HotMicOverride = "never"
	assert.False(t, cfg.UsesHotMic("local"))
}

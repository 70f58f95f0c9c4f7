package tmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVarRefreshesClient(t *testing.T) {
	var calls [][]string
	c := &Client{Runner: func(name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	}}
	c.SetVar("@asr_on", "1")
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"tmux", "set", "-gq", "@asr_on", "1"}, calls[0])
	assert.Equal(t, []string{"tmux", "refresh-client", "-S"}, calls[1])
}

func TestSocketPrependsDashL(t *testing.T) {
	var calls [][]string
	c := &Client{Socket: "mysock", Runner: func(name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	}}
	c.StatusOn(true)
	assert.Equal(t, []string{"tmux", "-L", "mysock", "set", "-gq", "@asr_on", "1"}, calls[0])
}

func TestPasteIntoPaneSequence(t *testing.T) {
	var calls [][]string
	c := &Client{Runner: func(name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	}}
	require.NoError(t, c.PasteIntoPane("%3", "hello world"))
	require.Len(t, calls, 3)
	assert.Equal(t, "load-buffer", calls[0][1])
	assert.Equal(t, "paste-buffer", calls[1][1])
	assert.Equal(t, "delete-buffer", calls[2][1])
}

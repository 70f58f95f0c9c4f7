package preview

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

type fakeSink struct {
	values []string
}

func (f *fakeSink) SetPreview(text string) {
	f.values = append(f.values, text)
}

func TestNormalizeCollapsesWhitespaceAndTruncates(t *testing.T) {
	assert.Equal(t, "hello world", Normalize("hello   \n world"))

	long := strings.Repeat("a", 80)
	got := Normalize(long)
	assert.Equal(t, strings.Repeat("a", 60)+"…", got)
}

func TestNormalizeNeverExceeds61Runes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		got := []rune(Normalize(s))
		assert.LessOrEqual(t, len(got), maxLen+1)
	})
}

func TestEmitterThrottlesRapidUpdates(t *testing.T) {
	sink := &fakeSink{}
	now := time.Unix(0, 0)
	e := NewEmitter(sink, 75*time.Millisecond)
	e.now = func() time.Time { return now }

	assert.True(t, e.Partial("one"))
	assert.False(t, e.Partial("two"))
	now = now.Add(100 * time.Millisecond)
	assert.True(t, e.Partial("three"))

	assert.Equal(t, []string{"one", "three"}, sink.values)
}

func TestForceBypassesThrottle(t *testing.T) {
	sink := &fakeSink{}
	now := time.Unix(0, 0)
	e := NewEmitter(sink, time.Second)
	e.now = func() time.Time { return now }

	e.Partial("one")
	e.Force("Loading…")
	assert.Equal(t, []string{"one", "Loading…"}, sink.values)
}

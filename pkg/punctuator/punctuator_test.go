package punctuator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Hello", Capitalize("hello"))
	assert.Equal(t, "Hello", Capitalize("Hello"))
	assert.Equal(t, "", Capitalize(""))
	assert.Equal(t, "3rd", Capitalize("3rd"))
}

func TestNoopPunctuate(t *testing.T) {
	var p Punctuator = Noop{}
	out, err := p.Punctuate("hello there")
	assert.NoError(t, err)
	assert.Equal(t, "Hello there", out)
}

func TestCapitalizeIdempotentAfterSecondCapitalize(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		once := Capitalize(s)
		twice := Capitalize(once)
		assert.Equal(t, once, twice)
	})
}

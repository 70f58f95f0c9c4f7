package recognizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTokens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.txt")
	require.NoError(t, os.WriteFile(path, []byte("<blk> 0\nhe 1\n▁llo 2\n"), 0o644))

	vocab, err := loadTokens(path)
	require.NoError(t, err)
	assert.Equal(t, "<blk>", vocab[0])
	assert.Equal(t, "he", vocab[1])
	assert.Equal(t, "▁llo", vocab[2])
}

func TestArgmax(t *testing.T) {
	assert.Equal(t, 2, argmax([]float32{0.1, 0.2, 0.9, 0.05}))
	assert.Equal(t, 0, argmax([]float32{5}))
}

func TestAssemble(t *testing.T) {
	vocab := map[int]string{1: "▁hello", 2: "▁world"}
	assert.Equal(t, "hello world", assemble(vocab, []int{1, 2}))
}

func TestNewLocalRequiresModelPaths(t *testing.T) {
	_, err := NewLocal(LocalConfig{})
	assert.Error(t, err)
}

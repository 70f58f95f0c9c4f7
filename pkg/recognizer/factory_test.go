package recognizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/listen-cli/listend/internal/envconfig"
)

func TestNewNoProviderConfigured(t *testing.T) {
	_, _, err := New(envconfig.Config{})
	assert.Error(t, err)
}

func TestNewUnknownExplicitProvider(t *testing.T) {
	_, _, err := New(envconfig.Config{ASRProvider: "bogus"})
	assert.Error(t, err)
}

func TestNewRemoteFallbackWithoutLocalFiles(t *testing.T) {
	_, _, err := New(envconfig.Config{RemoteAPIKey: "key", RemoteHost: "example.com"})
	// dialing will fail in this sandboxed test environment, but the
	// provider-selection path must reach the remote builder rather than
	// reporting "no provider configured".
	assert.Error(t, err)
	assert.NotContains(t, err.Error(), "no ASR provider configured")
}

package engine

import "errors"

var (
	ErrNotReady       = errors.New("engine: not ready")
	ErrAlreadyStarted = errors.New("engine: already listening")
	ErrNotListening   = errors.New("engine: not listening")
	ErrShutdown       = errors.New("engine: shut down")
)

package preview

import "github.com/listen-cli/listend/pkg/tmux"

// TmuxSink adapts a tmux.Client to the Sink interface.
type TmuxSink struct {
	Client *tmux.Client
}

func (s TmuxSink) SetPreview(text string) {
	s.Client.Preview(text)
}

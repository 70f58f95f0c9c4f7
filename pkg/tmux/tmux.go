// Package tmux shells out to the tmux client the same way the original
// listen-cli daemon does: set status-line variables, refresh attached
// clients, and paste text into a pane via the paste buffer.
package tmux

import (
	"fmt"
	"os"
	"os/exec"
)

// Client runs tmux commands against an optional alternate socket
// (TMUX_SOCKET), ignoring exit codes — a daemon must never crash because
// tmux isn't reachable.
type Client struct {
	Socket string
	Runner func(name string, args ...string) error
}

func NewClient(socket string) *Client {
	return &Client{Socket: socket, Runner: runCommand}
}

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (c *Client) run(args ...string) {
	full := args
	if c.Socket != "" {
		full = append([]string{"-L", c.Socket}, args...)
	}
	run := c.Runner
	if run == nil {
		run = runCommand
	}
	_ = run("tmux", full...)
}

func (c *Client) SetVar(name, value string) {
	c.run("set", "-gq", name, value)
	c.run("refresh-client", "-S")
}

func (c *Client) StatusOn(listening bool) {
	v := "0"
	if listening {
		v = "1"
	}
	c.SetVar("@asr_on", v)
}

func (c *Client) Preview(text string) {
	c.SetVar("@asr_preview", text)
}

func (c *Client) Message(text string) {
	c.SetVar("@asr_message", text)
}

// PasteIntoPane writes text to a temp file and loads/pastes/deletes a
// dedicated tmux buffer, avoiding shell-quoting issues with arbitrary
// transcript content.
func (c *Client) PasteIntoPane(paneID, text string) error {
	f, err := os.CreateTemp("", "listen-paste-*")
	if err != nil {
		return fmt.Errorf("tmux: create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return fmt.Errorf("tmux: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("tmux: close temp file: %w", err)
	}

	c.run("load-buffer", "-b", "listen_asr", path)
	c.run("paste-buffer", "-p", "-b", "listen_asr", "-t", paneID)
	c.run("delete-buffer", "-b", "listen_asr")
	return nil
}

// Package tui is the Bubble Tea front end: a login screen followed by the
// chat screen with history, roster, emoji picker and composer.
//
// All chat state lives on the Bubble Tea update loop. Frames from the socket
// arrive as FrameMsg through tea.Program.Send; they are never applied from
// the socket goroutine.
package tui

import (
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/codefionn/chatterm/internal/chat"
	"github.com/codefionn/chatterm/internal/eventbus"
)

// FrameMsg carries one inbound socket frame to the update loop.
type FrameMsg struct {
	Frame string
}

// ConnStateMsg reports a change of the socket connection.
type ConnStateMsg struct {
	State string
	Err   error
}

// ReconnectedMsg is sent after the socket re-established a lost connection.
type ReconnectedMsg struct{}

// Options wires the UI to the rest of the client.
type Options struct {
	// Username skips the login screen when non-empty.
	Username       string
	ServerURL      string
	AvatarTemplate string
	StrictProtocol bool
	Sender         chat.Sender
	Bus            *eventbus.Bus
}

// Model is the root model. It routes between the login and chat screens.
type Model struct {
	opts    Options
	program *tea.Program

	login loginView
	chat  *chatView

	width     int
	height    int
	connState string
	connErr   error
	quitting  bool
}

// New creates the root model
func New(opts Options) *Model {
	return &Model{
		opts:      opts,
		login:     newLoginView(opts.ServerURL),
		connState: "connecting",
	}
}

// SetProgram must be called before the program runs; inbound frames are
// delivered through it.
func (m *Model) SetProgram(program *tea.Program) {
	m.program = program
}

func (m *Model) Init() tea.Cmd {
	initialWindowSize := func() tea.Msg {
		fd := int(os.Stdout.Fd())
		if !term.IsTerminal(fd) {
			return nil
		}
		if width, height, err := term.GetSize(fd); err == nil && width > 0 && height > 0 {
			return tea.WindowSizeMsg{
				Width:  width,
				Height: height,
			}
		}
		return nil
	}

	if name := strings.TrimSpace(m.opts.Username); name != "" {
		m.mountChat(name)
	}
	return initialWindowSize
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.chat != nil {
			m.chat.resize(msg.Width, msg.Height)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEsc:
			if m.chat == nil {
				m.quitting = true
				return m, tea.Quit
			}
		}

	case ConnStateMsg:
		m.connState = msg.State
		m.connErr = msg.Err
		return m, nil
	}

	if m.chat == nil {
		name, cmd := m.login.update(msg)
		if name != "" {
			m.mountChat(name)
		}
		return m, cmd
	}
	return m, m.chat.update(msg)
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.chat == nil {
		return m.login.view(m.width, m.height)
	}
	return m.chat.view(m.statusLine())
}

// Close tears down the chat session. Call it after the program has exited.
func (m *Model) Close() {
	if m.chat != nil {
		m.chat.close()
	}
}

// Machine returns the chat state of the mounted session, or nil on the login
// screen.
func (m *Model) Machine() *chat.Machine {
	if m.chat == nil {
		return nil
	}
	return m.chat.machine
}

func (m *Model) mountChat(username string) {
	m.chat = newChatView(username, m.opts, m.deliver)
	if m.width > 0 && m.height > 0 {
		m.chat.resize(m.width, m.height)
	}
}

func (m *Model) deliver(msg tea.Msg) {
	if m.program != nil {
		m.program.Send(msg)
	}
}

func (m *Model) statusLine() string {
	status := m.connState
	if m.opts.ServerURL != "" {
		status += " to " + m.opts.ServerURL
	}
	if m.connErr != nil && m.connState != "connected" {
		status += " (" + m.connErr.Error() + ")"
	}
	return status
}

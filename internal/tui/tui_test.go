package tui

import (
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/chatterm/internal/chat"
	"github.com/codefionn/chatterm/internal/eventbus"
	"github.com/codefionn/chatterm/internal/protocol"
)

type recordingSender struct {
	mu     sync.Mutex
	frames []string
}

func (s *recordingSender) Send(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return nil
}

func (s *recordingSender) envelopes(t *testing.T) []protocol.Envelope {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Envelope, 0, len(s.frames))
	for _, f := range s.frames {
		env, err := protocol.Decode(f)
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

func typeText(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func press(m *Model, key tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: key})
	return cmd
}

func newTestModel(t *testing.T, username string) (*Model, *recordingSender, *eventbus.Bus) {
	t.Helper()
	sender := &recordingSender{}
	bus := eventbus.New()
	m := New(Options{
		Username:  username,
		ServerURL: "ws://127.0.0.1:8080",
		Sender:    sender,
		Bus:       bus,
	})
	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	t.Cleanup(m.Close)
	return m, sender, bus
}

func usersFrame(t *testing.T, names ...string) string {
	t.Helper()
	frame, err := protocol.Encode(protocol.NewUsers(names))
	require.NoError(t, err)
	return frame
}

func messageFrame(t *testing.T, from, text string) string {
	t.Helper()
	payload, err := protocol.EncodeChatMessage(protocol.ChatMessage{From: from, Message: text})
	require.NoError(t, err)
	frame, err := protocol.Encode(protocol.NewMessage(payload))
	require.NoError(t, err)
	return frame
}

func TestLoginRequiresName(t *testing.T) {
	m, sender, _ := newTestModel(t, "")

	assert.Nil(t, m.Machine())
	assert.Contains(t, m.View(), "Join")

	press(m, tea.KeyEnter)
	assert.Nil(t, m.Machine(), "empty name must not join")

	typeText(m, "   ")
	press(m, tea.KeyEnter)
	assert.Nil(t, m.Machine(), "blank name must not join")
	assert.Empty(t, sender.envelopes(t))
}

func TestLoginJoinsAndRegisters(t *testing.T) {
	m, sender, bus := newTestModel(t, "")

	typeText(m, " alice ")
	press(m, tea.KeyEnter)

	require.NotNil(t, m.Machine())
	assert.Equal(t, "alice", m.Machine().Username())
	assert.True(t, bus.Subscribed())

	envs := sender.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, protocol.KindRegister, envs[0].Kind)
	assert.Equal(t, "alice", envs[0].Payload())
}

func TestPresetUsernameSkipsLogin(t *testing.T) {
	m, sender, _ := newTestModel(t, "bob")

	require.NotNil(t, m.Machine())
	assert.Equal(t, "bob", m.Machine().Username())
	assert.Len(t, sender.envelopes(t), 1)
}

func TestEscQuitsFromLogin(t *testing.T) {
	m, _, _ := newTestModel(t, "")

	cmd := press(m, tea.KeyEsc)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestFramesUpdateRosterAndHistory(t *testing.T) {
	m, _, _ := newTestModel(t, "alice")

	m.Update(FrameMsg{Frame: usersFrame(t, "alice", "bob")})
	m.Update(FrameMsg{Frame: messageFrame(t, "bob", "hi alice")})

	snap := m.Machine().Snapshot()
	require.Len(t, snap.Roster, 2)
	require.Len(t, snap.History, 1)

	view := m.View()
	assert.Contains(t, view, "Users (2)")
	assert.Contains(t, view, "hi alice")
}

func TestMalformedFrameShowsError(t *testing.T) {
	m, _, _ := newTestModel(t, "alice")

	m.Update(FrameMsg{Frame: "not json"})

	assert.Empty(t, m.Machine().Snapshot().History)
	assert.Contains(t, m.View(), "Error:")
}

func TestEnterSubmitsAndClears(t *testing.T) {
	m, sender, _ := newTestModel(t, "alice")

	typeText(m, "hello there")
	press(m, tea.KeyEnter)

	envs := sender.envelopes(t)
	require.Len(t, envs, 2)
	assert.Equal(t, protocol.KindMessage, envs[1].Kind)
	assert.Equal(t, "hello there", envs[1].Payload())
	assert.Empty(t, m.chat.input.Value())

	// blank input is not sent
	press(m, tea.KeyEnter)
	assert.Len(t, sender.envelopes(t), 2)
}

func TestEmojiPickerFlow(t *testing.T) {
	m, _, _ := newTestModel(t, "alice")
	typeText(m, "hey ")

	press(m, tea.KeyCtrlE)
	require.True(t, m.Machine().EmojiPickerOpen())

	press(m, tea.KeyRight)
	press(m, tea.KeyDown)
	want := chat.Emojis[chat.EmojiPickerColumns+1]

	cmd := press(m, tea.KeyEnter)
	assert.NotNil(t, cmd)
	assert.False(t, m.Machine().EmojiPickerOpen())
	assert.Equal(t, "hey "+want, m.chat.input.Value())
}

func TestEscClosesPicker(t *testing.T) {
	m, sender, _ := newTestModel(t, "alice")

	press(m, tea.KeyCtrlE)
	press(m, tea.KeyEsc)

	assert.False(t, m.Machine().EmojiPickerOpen())
	assert.NotNil(t, m.Machine(), "esc in chat must not quit")
	assert.Len(t, sender.envelopes(t), 1)
}

func TestReconnectedReRegisters(t *testing.T) {
	m, sender, _ := newTestModel(t, "alice")

	m.Update(ReconnectedMsg{})

	envs := sender.envelopes(t)
	require.Len(t, envs, 2)
	assert.Equal(t, protocol.KindRegister, envs[1].Kind)
}

func TestConnStateInStatusLine(t *testing.T) {
	m, _, _ := newTestModel(t, "alice")

	m.Update(ConnStateMsg{State: "reconnecting"})
	assert.Contains(t, m.View(), "reconnecting")
}

func TestCloseUnsubscribes(t *testing.T) {
	m, _, bus := newTestModel(t, "alice")
	require.True(t, bus.Subscribed())

	m.Close()

	assert.False(t, bus.Subscribed())
	assert.True(t, m.Machine().Closed())
}

func TestSmallTerminalHidesRoster(t *testing.T) {
	m, _, _ := newTestModel(t, "alice")
	m.Update(FrameMsg{Frame: usersFrame(t, "alice")})

	m.Update(tea.WindowSizeMsg{Width: 50, Height: 20})
	assert.False(t, m.chat.showRoster)
	assert.NotContains(t, m.View(), "Users (1)")

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 20})
	assert.True(t, m.chat.showRoster)
}

func TestRenderEntry(t *testing.T) {
	t.Run("strips escape sequences", func(t *testing.T) {
		out := renderEntry(chat.Entry{From: "bob", Text: "\x1b[2Jboom", Known: true}, 80)
		assert.NotContains(t, out, "\x1b[2J")
		assert.Contains(t, out, "boom")
	})

	t.Run("gif shown as link", func(t *testing.T) {
		out := renderEntry(chat.Entry{From: "bob", Text: "https://x/cat.gif", Image: true, Known: true}, 80)
		assert.Contains(t, out, "[gif] https://x/cat.gif")
	})

	t.Run("long text wraps", func(t *testing.T) {
		text := strings.Repeat("word ", 40)
		out := renderEntry(chat.Entry{From: "bob", Text: text, Known: true}, 40)
		assert.Greater(t, strings.Count(out, "\n"), 2)
	})
}

func TestEmptyHistory(t *testing.T) {
	assert.Contains(t, renderHistory(nil, 80), "No messages yet.")
}

func TestNameColorStable(t *testing.T) {
	assert.Equal(t, nameColor("alice"), nameColor("alice"))
}

func TestMoveCursor(t *testing.T) {
	last := len(chat.Emojis) - 1
	tests := []struct {
		name   string
		cursor int
		dx, dy int
		want   int
	}{
		{"right", 0, 1, 0, 1},
		{"left clamps", 0, -1, 0, 0},
		{"up clamps", 3, 0, -1, 3},
		{"down", 0, 0, 1, chat.EmojiPickerColumns},
		{"down clamps", last, 0, 1, last},
		{"right clamps at row end", chat.EmojiPickerColumns - 1, 1, 0, chat.EmojiPickerColumns - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, moveCursor(tt.cursor, tt.dx, tt.dy))
		})
	}
}

func TestPickerHeightMatchesRender(t *testing.T) {
	assert.Equal(t, pickerHeight(), strings.Count(renderPicker(0), "\n")+1)
}

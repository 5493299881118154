package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/codefionn/chatterm/internal/chat"
	"github.com/codefionn/chatterm/internal/eventbus"
)

const (
	headerHeight   = 2
	composerHeight = 3
	footerHeight   = 1
)

// chatView is the mounted chat screen. It owns the state machine and the bus
// subscription of one session.
type chatView struct {
	machine  *chat.Machine
	input    textinput.Model
	viewport viewport.Model
	sub      *eventbus.Subscription

	pickerCursor int
	width        int
	height       int
	showRoster   bool
	lastErr      error
}

// newChatView subscribes to bus before the machine registers, so the roster
// answer to our own register frame is not lost. deliver must hand messages
// to the Bubble Tea loop.
func newChatView(username string, opts Options, deliver func(tea.Msg)) *chatView {
	v := &chatView{
		input:    newComposerInput(),
		viewport: viewport.New(0, 0),
	}

	if opts.Bus != nil {
		v.sub = opts.Bus.Subscribe(func(frame string) {
			deliver(FrameMsg{Frame: frame})
		})
	}

	machineOpts := []chat.Option{
		chat.WithAvatarTemplate(opts.AvatarTemplate),
		chat.WithStrictDecoding(opts.StrictProtocol),
		chat.WithErrorHandler(func(err error) { v.lastErr = err }),
	}
	v.machine = chat.New(username, opts.Sender, composer{input: &v.input}, machineOpts...)
	return v
}

func (v *chatView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case FrameMsg:
		if v.machine.HandleFrame(msg.Frame) {
			v.refresh()
		}
		return nil

	case ReconnectedMsg:
		v.machine.Register()
		return nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return cmd

	case tea.KeyMsg:
		if cmd, handled := v.handleKey(msg); handled {
			return cmd
		}
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return cmd
}

// handleKey processes keys that belong to the chat screen rather than to the
// text input.
func (v *chatView) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.Type == tea.KeyCtrlE {
		if v.machine.ToggleEmojiPicker() {
			v.layout()
		}
		return nil, true
	}

	if v.machine.EmojiPickerOpen() {
		switch msg.Type {
		case tea.KeyLeft:
			v.pickerCursor = moveCursor(v.pickerCursor, -1, 0)
			return nil, true
		case tea.KeyRight:
			v.pickerCursor = moveCursor(v.pickerCursor, 1, 0)
			return nil, true
		case tea.KeyUp:
			v.pickerCursor = moveCursor(v.pickerCursor, 0, -1)
			return nil, true
		case tea.KeyDown:
			v.pickerCursor = moveCursor(v.pickerCursor, 0, 1)
			return nil, true
		case tea.KeyEnter:
			if v.machine.InsertEmoji(chat.Emojis[v.pickerCursor]) {
				v.layout()
			}
			return textinput.Blink, true
		case tea.KeyEsc:
			v.machine.ToggleEmojiPicker()
			v.layout()
			return nil, true
		}
		return nil, false
	}

	switch msg.Type {
	case tea.KeyEnter:
		if v.machine.Submit() {
			v.refresh()
		}
		return nil, true
	case tea.KeyPgUp:
		v.viewport.SetYOffset(v.viewport.YOffset - v.viewport.Height)
		return nil, true
	case tea.KeyPgDown:
		v.viewport.SetYOffset(v.viewport.YOffset + v.viewport.Height)
		return nil, true
	}
	return nil, false
}

func (v *chatView) resize(width, height int) {
	v.width = width
	v.height = height
	v.layout()
}

// layout distributes the terminal between history, roster, picker and
// composer.
func (v *chatView) layout() {
	if v.width <= 0 || v.height <= 0 {
		return
	}

	contentWidth := v.width
	v.showRoster = false
	if v.width >= rosterPanelTriggerWidth && v.width-rosterPanelWidth-rosterPanelSpacing >= minContentWidth {
		v.showRoster = true
		contentWidth = v.width - rosterPanelWidth - rosterPanelSpacing
	}

	vpHeight := v.height - headerHeight - composerHeight - footerHeight
	if v.machine.EmojiPickerOpen() {
		vpHeight -= pickerHeight()
	}
	if vpHeight < 1 {
		vpHeight = 1
	}

	v.viewport.Width = contentWidth
	v.viewport.Height = vpHeight

	inputWidth := contentWidth - 6
	if inputWidth < 10 {
		inputWidth = 10
	}
	v.input.Width = inputWidth

	v.refresh()
}

// refresh re-renders the history, following the tail unless the user has
// scrolled up.
func (v *chatView) refresh() {
	follow := v.viewport.AtBottom() || v.viewport.TotalLineCount() == 0
	v.viewport.SetContent(renderHistory(v.machine.Entries(), v.viewport.Width))
	if follow {
		v.viewport.GotoBottom()
	}
}

func (v *chatView) view(status string) string {
	snap := v.machine.Snapshot()

	return render(func(sb *strings.Builder) {
		sb.WriteString(titleStyle.Render("chatterm"))
		sb.WriteString(statusStyle.Render(fmt.Sprintf("%s · %s", sanitize(snap.Username), status)))
		sb.WriteString("\n\n")

		history := v.viewport.View()
		if v.showRoster {
			spacer := strings.Repeat(" ", rosterPanelSpacing)
			history = lipgloss.JoinHorizontal(lipgloss.Top, history, spacer, renderRoster(snap.Roster, v.viewport.Height))
		}
		sb.WriteString(history)
		sb.WriteString("\n")

		if snap.EmojiPickerOpen {
			sb.WriteString(renderPicker(v.pickerCursor))
			sb.WriteString("\n")
		}

		sb.WriteString(composerStyle.Render(v.input.View()))
		sb.WriteString("\n")

		if v.lastErr != nil {
			msg := sanitize(fmt.Sprintf("Error: %v", v.lastErr))
			if v.width > 0 {
				msg = ansi.Truncate(msg, v.width, "…")
			}
			sb.WriteString(errorStyle.Render(msg))
		} else {
			sb.WriteString(statusStyle.Render("Ctrl+E emoji · PgUp/PgDn scroll · Ctrl+C quit"))
		}
	})
}

// close unsubscribes and tears the session down. It must not run while a
// delivery is blocked on the Bubble Tea loop, i.e. only after the program
// has stopped.
func (v *chatView) close() {
	v.sub.Unsubscribe()
	v.machine.Close()
}

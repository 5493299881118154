package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxUsernameLength = 64

// loginView asks for the display name. Joining is disabled while the trimmed
// name is empty.
type loginView struct {
	input     textinput.Model
	serverURL string
}

func newLoginView(serverURL string) loginView {
	ti := textinput.New()
	ti.Placeholder = "Username"
	ti.Prompt = "> "
	ti.CharLimit = maxUsernameLength
	ti.Width = 30
	ti.Focus()
	return loginView{input: ti, serverURL: serverURL}
}

func (l loginView) canSubmit() bool {
	return strings.TrimSpace(l.input.Value()) != ""
}

// update returns the chosen name once the user confirms a non-empty one.
func (l *loginView) update(msg tea.Msg) (string, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		if !l.canSubmit() {
			return "", nil
		}
		return strings.TrimSpace(l.input.Value()), nil
	}

	var cmd tea.Cmd
	l.input, cmd = l.input.Update(msg)
	return "", cmd
}

func (l loginView) view(width, height int) string {
	button := disabledStyle.Render("[ Join ]")
	if l.canSubmit() {
		button = enabledStyle.Render("[ Join ]")
	}

	box := loginBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.UnsetMarginLeft().Render("chatterm"),
		disabledStyle.Render(sanitize(l.serverURL)),
		"",
		l.input.View(),
		"",
		button,
	))

	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

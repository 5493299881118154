package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
)

const composerPlaceholder = "Message (Enter to send, Ctrl+E for emoji)"

// composer lets the chat state machine read, replace and focus the text
// input without owning it.
type composer struct {
	input *textinput.Model
}

func newComposerInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = composerPlaceholder
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()
	return ti
}

func (c composer) Text() string {
	return c.input.Value()
}

func (c composer) SetText(text string) {
	c.input.SetValue(text)
	c.input.CursorEnd()
}

func (c composer) Focus() {
	c.input.Focus()
}

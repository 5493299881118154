package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/codefionn/chatterm/internal/chat"
)

const bodyIndent = 2

// sanitize removes terminal escape sequences from relay-supplied text, so a
// peer cannot move the cursor or recolour the screen.
func sanitize(s string) string {
	return ansi.Strip(s)
}

// renderHistory renders the message list for a viewport of the given width
func renderHistory(entries []chat.Entry, width int) string {
	if len(entries) == 0 {
		return emptyStyle.Render("No messages yet.")
	}
	return render(func(sb *strings.Builder) {
		for i, e := range entries {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(renderEntry(e, width))
		}
	})
}

func renderEntry(e chat.Entry, width int) string {
	from := sanitize(e.From)
	var name string
	if e.Known {
		name = nameStyle(from).Render(from)
	} else {
		name = unknownSenderStyle.Render(from)
	}

	text := sanitize(e.Text)
	if e.Image {
		return name + "\n" + indent.String(imageStyle.Render("[gif] "+text), bodyIndent)
	}

	wrapWidth := width - bodyIndent
	if wrapWidth < minContentWidth {
		wrapWidth = minContentWidth
	}
	return name + "\n" + indent.String(wordwrap.String(text, wrapWidth), bodyIndent)
}

// renderRoster renders the user panel
func renderRoster(roster []chat.UserProfile, height int) string {
	inner := rosterPanelWidth - 4
	content := render(func(sb *strings.Builder) {
		sb.WriteString(rosterTitleStyle.Render(fmt.Sprintf("Users (%d)", len(roster))))
		if len(roster) == 0 {
			sb.WriteString("\n")
			sb.WriteString(emptyStyle.Render("nobody here"))
			return
		}
		for _, u := range roster {
			name := sanitize(u.Name)
			sb.WriteString("\n")
			sb.WriteString(nameStyle(name).Render(ansi.Truncate(name, inner, "…")))
			sb.WriteString("\n")
			sb.WriteString(avatarStyle.Render(ansi.Truncate(u.AvatarURL, inner, "…")))
		}
	})

	style := rosterPanelStyle
	if height > 2 {
		style = style.Height(height - 2)
	}
	return style.Render(content)
}

// renderPicker renders the emoji grid with the cursor cell highlighted
func renderPicker(cursor int) string {
	grid := render(func(sb *strings.Builder) {
		for i, glyph := range chat.Emojis {
			if i > 0 && i%chat.EmojiPickerColumns == 0 {
				sb.WriteString("\n")
			}
			cell := " " + glyph + " "
			if i == cursor {
				cell = pickerSelectedStyle.Render(cell)
			}
			sb.WriteString(cell)
		}
		sb.WriteString("\n")
		sb.WriteString(disabledStyle.Render("arrows move · enter inserts · esc closes"))
	})
	return pickerStyle.Render(grid)
}

// pickerHeight is the number of lines renderPicker occupies
func pickerHeight() int {
	rows := (len(chat.Emojis) + chat.EmojiPickerColumns - 1) / chat.EmojiPickerColumns
	return rows + 1 + 2
}

// moveCursor moves the picker cursor by dx columns and dy rows, clamped to
// the grid.
func moveCursor(cursor, dx, dy int) int {
	cols := chat.EmojiPickerColumns
	row, col := cursor/cols, cursor%cols
	col += dx
	row += dy
	if col < 0 {
		col = 0
	}
	if col >= cols {
		col = cols - 1
	}
	rows := (len(chat.Emojis) + cols - 1) / cols
	if row < 0 {
		row = 0
	}
	if row >= rows {
		row = rows - 1
	}
	next := row*cols + col
	if next >= len(chat.Emojis) {
		next = len(chat.Emojis) - 1
	}
	return next
}

package chat

import (
	"net/url"
	"strings"

	"github.com/codefionn/chatterm/internal/protocol"
)

const (
	// DefaultAvatarTemplate is the avatar service used when none is configured.
	// "{name}" is replaced by the path-escaped username.
	DefaultAvatarTemplate = "https://avatars.dicebear.com/api/adventurer-neutral/{name}.svg"

	// PlaceholderAvatarURL is shown for a message whose sender is not in the
	// current roster.
	PlaceholderAvatarURL = "https://avatars.dicebear.com/api/initials/%3F.svg"

	imageSuffix = ".gif"
)

// UserProfile is one roster entry.
type UserProfile struct {
	Name      string
	AvatarURL string
}

// Snapshot is the render-ready view of a Machine.
type Snapshot struct {
	Username        string
	Roster          []UserProfile
	History         []protocol.ChatMessage
	EmojiPickerOpen bool
}

// Entry is one history item resolved against the roster.
type Entry struct {
	From      string
	Text      string
	AvatarURL string
	// Known is false when From had no roster entry at render time.
	Known bool
	// Image is true when Text should be shown as an inline image.
	Image bool
}

// AvatarURL derives a user's avatar from template. A template without a
// "{name}" placeholder is treated as a base URL and the name is appended as
// the last path segment.
func AvatarURL(template, name string) string {
	escaped := url.PathEscape(name)
	if strings.Contains(template, "{name}") {
		return strings.ReplaceAll(template, "{name}", escaped)
	}
	return strings.TrimRight(template, "/") + "/" + escaped
}

// IsImage reports whether text is rendered as an image: it must end in
// ".gif", compared case-sensitively.
func IsImage(text string) bool {
	return strings.HasSuffix(text, imageSuffix)
}

// Entries resolves every history item to the roster entry with exactly the
// same name. A miss falls back to PlaceholderAvatarURL.
func Entries(s Snapshot) []Entry {
	byName := make(map[string]UserProfile, len(s.Roster))
	for _, p := range s.Roster {
		if _, dup := byName[p.Name]; !dup {
			byName[p.Name] = p
		}
	}

	entries := make([]Entry, 0, len(s.History))
	for _, msg := range s.History {
		e := Entry{
			From:      msg.From,
			Text:      msg.Message,
			AvatarURL: PlaceholderAvatarURL,
			Image:     IsImage(msg.Message),
		}
		if p, ok := byName[msg.From]; ok {
			e.AvatarURL = p.AvatarURL
			e.Known = true
		}
		entries = append(entries, e)
	}
	return entries
}

func buildRoster(names []string, template string) []UserProfile {
	roster := make([]UserProfile, 0, len(names))
	for _, name := range names {
		roster = append(roster, UserProfile{Name: name, AvatarURL: AvatarURL(template, name)})
	}
	return roster
}

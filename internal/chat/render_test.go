package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/chatterm/internal/protocol"
)

func TestIsImage(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"cat.gif", true},
		{"https://media.example/cat.gif", true},
		{"cat.gif2", false},
		{"CAT.GIF", false},
		{"cat.Gif", false},
		{"cat.gif ", false},
		{".gif", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsImage(tt.text))
		})
	}
}

func TestAvatarURL(t *testing.T) {
	assert.Equal(t,
		"https://avatars.dicebear.com/api/adventurer-neutral/alice.svg",
		AvatarURL(DefaultAvatarTemplate, "alice"))
	assert.Equal(t,
		"https://avatars.example/u/bob%20smith",
		AvatarURL("https://avatars.example/u/", "bob smith"))
	assert.Equal(t,
		"https://avatars.example/a%2Fb.png",
		AvatarURL("https://avatars.example/{name}.png", "a/b"))
}

func TestEntriesJoinMissUsesPlaceholder(t *testing.T) {
	snap := Snapshot{
		Roster: []UserProfile{{Name: "bob", AvatarURL: "bob.svg"}},
		History: []protocol.ChatMessage{
			{From: "alice", Message: "before the roster changed"},
			{From: "bob", Message: "cat.gif"},
		},
	}

	entries := Entries(snap)
	require.Len(t, entries, 2)

	assert.False(t, entries[0].Known)
	assert.Equal(t, PlaceholderAvatarURL, entries[0].AvatarURL)
	assert.False(t, entries[0].Image)

	assert.True(t, entries[1].Known)
	assert.Equal(t, "bob.svg", entries[1].AvatarURL)
	assert.True(t, entries[1].Image)
}

func TestEntriesExactNameMatch(t *testing.T) {
	snap := Snapshot{
		Roster: []UserProfile{
			{Name: "Alice", AvatarURL: "upper.svg"},
			{Name: "alice", AvatarURL: "first.svg"},
			{Name: "alice", AvatarURL: "second.svg"},
		},
		History: []protocol.ChatMessage{{From: "alice", Message: "hi"}},
	}

	entries := Entries(snap)
	require.Len(t, entries, 1)
	assert.Equal(t, "first.svg", entries[0].AvatarURL)
}

func TestEmojiPalette(t *testing.T) {
	assert.Len(t, Emojis, 24)
	assert.Zero(t, len(Emojis)%EmojiPickerColumns)
}

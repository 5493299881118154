package chat

// Emojis is the picker palette, in display order.
var Emojis = []string{
	"😀", "😂", "😍", "🤔", "😎", "🚀", "⚡", "🔥",
	"💯", "👍", "👏", "❤️", "🎉", "🎊", "💫", "⭐",
	"🌟", "✨", "💎", "🎯", "🎮", "🎵", "🎸", "🎭",
}

// EmojiPickerColumns is the width of the picker grid.
const EmojiPickerColumns = 8

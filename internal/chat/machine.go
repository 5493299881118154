// Package chat holds the client-side chat state machine: it owns the roster
// and message history of one session, interprets inbound frames and turns
// user intents into outbound frames.
//
// A Machine is not safe for concurrent use. All calls are expected to come
// from one event loop (the Bubble Tea update loop or the CLI loop), which is
// also where inbound frames are delivered.
package chat

import (
	"strings"

	"github.com/google/uuid"

	"github.com/codefionn/chatterm/internal/logger"
	"github.com/codefionn/chatterm/internal/protocol"
)

// Sender is the outbound half of the socket channel. Send either enqueues the
// frame or fails immediately; it never waits for delivery.
type Sender interface {
	Send(frame string) error
}

// Composer is the message input owned by the presentation layer.
type Composer interface {
	Text() string
	SetText(text string)
	Focus()
}

// Option configures a Machine.
type Option func(*Machine)

// WithAvatarTemplate sets the avatar URL template (see AvatarURL).
func WithAvatarTemplate(template string) Option {
	return func(m *Machine) {
		if template != "" {
			m.avatarTemplate = template
		}
	}
}

// WithLogger replaces the session logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// WithErrorHandler registers fn to be told about frames that failed to
// decode. fn runs on the caller's goroutine.
func WithErrorHandler(fn func(error)) Option {
	return func(m *Machine) {
		m.onError = fn
	}
}

// WithStrictDecoding makes frames with an unknown messageType count as
// protocol errors instead of being ignored.
func WithStrictDecoding(strict bool) Option {
	return func(m *Machine) {
		m.strict = strict
	}
}

// Machine is the chat view state of a single session.
type Machine struct {
	username       string
	sessionID      string
	sender         Sender
	composer       Composer
	avatarTemplate string
	strict         bool
	onError        func(error)
	log            *logger.Logger

	roster          []UserProfile
	history         []protocol.ChatMessage
	emojiPickerOpen bool
	closed          bool
}

// New creates the state for a freshly mounted chat view and immediately
// registers username with the relay.
func New(username string, sender Sender, composer Composer, opts ...Option) *Machine {
	sessionID := uuid.NewString()
	m := &Machine{
		username:       username,
		sessionID:      sessionID,
		sender:         sender,
		composer:       composer,
		avatarTemplate: DefaultAvatarTemplate,
		log:            logger.Global().WithPrefix("chat:" + sessionID[:8]),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.Register()
	return m
}

// Username returns the name this session registered with.
func (m *Machine) Username() string { return m.username }

// SessionID identifies this mount of the chat view in logs.
func (m *Machine) SessionID() string { return m.sessionID }

// Register (re)announces the username to the relay. New calls it once; the
// transport calls it again after a reconnect.
func (m *Machine) Register() {
	if m.closed {
		return
	}
	if m.send(protocol.NewRegister(m.username)) {
		m.log.Debug("register sent for %q", m.username)
	}
}

// HandleFrame applies one inbound frame and reports whether the view must be
// re-rendered. Undecodable frames are logged, passed to the error handler
// and otherwise dropped; the session keeps going.
func (m *Machine) HandleFrame(frame string) bool {
	if m.closed {
		return false
	}

	decode := protocol.Decode
	if m.strict {
		decode = protocol.DecodeStrict
	}
	env, err := decode(frame)
	if err != nil {
		m.fail(frame, err)
		return false
	}

	switch env.Kind {
	case protocol.KindUsers:
		m.roster = buildRoster(env.DataArray, m.avatarTemplate)
		m.log.Debug("roster replaced: %d users", len(m.roster))
		return true
	case protocol.KindMessage:
		msg, err := env.ChatMessage()
		if err != nil {
			m.fail(frame, err)
			return false
		}
		m.history = append(m.history, msg)
		return true
	default:
		m.log.Debug("ignoring %q envelope", env.Kind)
		return false
	}
}

// SubmitMessage sends raw as a chat message unless it is blank. The text is
// sent untrimmed. It reports whether the composer should be cleared; send
// failures are logged and still count as submitted.
func (m *Machine) SubmitMessage(raw string) bool {
	if m.closed || strings.TrimSpace(raw) == "" {
		return false
	}
	m.send(protocol.NewMessage(raw))
	return true
}

// Submit reads the composer, submits its text and clears it on success.
func (m *Machine) Submit() bool {
	if m.closed || m.composer == nil {
		return false
	}
	if !m.SubmitMessage(m.composer.Text()) {
		return false
	}
	m.composer.SetText("")
	return true
}

// ToggleEmojiPicker flips the picker.
func (m *Machine) ToggleEmojiPicker() bool {
	if m.closed {
		return false
	}
	m.emojiPickerOpen = !m.emojiPickerOpen
	return true
}

// InsertEmoji appends glyph to the composer text, hands focus back to the
// composer and closes the picker.
func (m *Machine) InsertEmoji(glyph string) bool {
	if m.closed {
		return false
	}
	if m.composer != nil {
		m.composer.SetText(m.composer.Text() + glyph)
		m.composer.Focus()
	}
	m.emojiPickerOpen = false
	return true
}

// EmojiPickerOpen reports the picker state.
func (m *Machine) EmojiPickerOpen() bool { return m.emojiPickerOpen }

// Snapshot returns a copy of the render-relevant state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		Username:        m.username,
		Roster:          append([]UserProfile(nil), m.roster...),
		History:         append([]protocol.ChatMessage(nil), m.history...),
		EmojiPickerOpen: m.emojiPickerOpen,
	}
}

// Entries joins the current history to the current roster.
func (m *Machine) Entries() []Entry {
	return Entries(m.Snapshot())
}

// Close discards the session state. Every later call is a no-op.
func (m *Machine) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.roster = nil
	m.history = nil
	m.emojiPickerOpen = false
	m.log.Debug("chat session closed")
}

// Closed reports whether Close has been called.
func (m *Machine) Closed() bool { return m.closed }

func (m *Machine) send(env protocol.Envelope) bool {
	frame, err := protocol.Encode(env)
	if err != nil {
		m.log.Error("encode %s envelope: %v", env.Kind, err)
		return false
	}
	if m.sender == nil {
		m.log.Warn("no channel to send %s envelope", env.Kind)
		return false
	}
	if err := m.sender.Send(frame); err != nil {
		m.log.Debug("error sending to channel: %v", err)
		return false
	}
	return true
}

func (m *Machine) fail(frame string, err error) {
	perr := &ProtocolError{Frame: frame, Err: err}
	m.log.Warn("%v", perr)
	if m.onError != nil {
		m.onError(perr)
	}
}
